package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunCommandPrintsExports(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mod.cjs")
	require.NoError(t, os.WriteFile(file, []byte(`module.exports = { answer: 42 };`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", file})

	require.NoError(t, rootCmd.Execute())
	require.Contains(t, out.String(), `"answer": 42`)
}

func TestRunCommandTypeScriptWithProject(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "mod.ts")
	require.NoError(t, os.WriteFile(file, []byte(`const n: number = 7;
export default { value: n };`), 0o644))

	tsconfig := filepath.Join(dir, "tsconfig.json")
	require.NoError(t, os.WriteFile(tsconfig, []byte(`{
	// default project
	"compilerOptions": { "target": "es2017" },
}`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", file, "--project", tsconfig})

	require.NoError(t, rootCmd.Execute())
	require.Contains(t, out.String(), `"value": 7`)
}
