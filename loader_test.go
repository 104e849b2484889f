package modload_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"testing"

	"github.com/dop251/goja"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/relationsone/modload"
	"github.com/relationsone/modload/compiler"
)

func newTestLoader(t *testing.T, files map[string]string) *modload.ScriptLoader {
	t.Helper()

	filesystem := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(filesystem, name, []byte(content), 0o644))
	}

	loader, err := modload.NewScriptLoader(filesystem, "/", "")
	require.NoError(t, err)
	return loader
}

func TestLoadESModuleDefault(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/a.mjs": `export default 42;
export const name = "answer";`,
	})

	value, err := loader.Load(context.Background(), "a.mjs", nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), value.Export())
}

func TestLoadESModuleWithoutDefault(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/b.mjs": `export const value = 1;`,
	})

	value, err := loader.Load(context.Background(), "b.mjs", nil)
	require.NoError(t, err)
	require.True(t, goja.IsUndefined(value))
}

func TestLoadCommonJSNoUnwrapping(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/a.cjs": `module.exports = { answer: 42, default: "untouched" };`,
	})

	value, err := loader.Load(context.Background(), "a.cjs", nil)
	require.NoError(t, err)

	exported, ok := value.Export().(map[string]interface{})
	require.True(t, ok, "expected the raw module object, got %T", value.Export())
	require.Equal(t, int64(42), exported["answer"])
	require.Equal(t, "untouched", exported["default"])
}

func TestLoadCommonJSPrimitive(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/n.cjs": `module.exports = 7;`,
	})

	value, err := loader.Load(context.Background(), "n.cjs", nil)
	require.NoError(t, err)
	require.Equal(t, int64(7), value.Export())
}

func TestLoadTypeScriptDefaultExport(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/a.ts": `const answer: number = 42;
export default answer;`,
	})

	value, err := loader.Load(context.Background(), "a.ts", nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), value.Export())
}

func TestLoadTypeScriptNamedExportsOnly(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/named.ts": `export const greeting: string = "hi";`,
	})

	value, err := loader.Load(context.Background(), "named.ts", nil)
	require.NoError(t, err)

	exported, ok := value.Export().(map[string]interface{})
	require.True(t, ok, "expected the exports container, got %T", value.Export())
	require.Equal(t, "hi", exported["greeting"])
}

func TestLoadTypeScriptCommonJSStyle(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/c.ts": `const v: string = "plain";
module.exports = v;`,
	})

	value, err := loader.Load(context.Background(), "c.ts", nil)
	require.NoError(t, err)
	require.Equal(t, "plain", value.Export())
}

func TestLoadTypeScriptESMProjectFallsBack(t *testing.T) {
	project, err := compiler.NewProject("tsconfig.json", `{
		// this project compiles to ECMAScript modules
		"compilerOptions": {
			"module": "esnext",
		},
	}`)
	require.NoError(t, err)

	loader := newTestLoader(t, map[string]string{
		"/m.ts": `export default "esm";`,
	})

	value, err := loader.Load(context.Background(), "m.ts", project)
	require.NoError(t, err)
	require.Equal(t, "esm", value.Export())
}

func TestLoadJavaScriptPlain(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/p.js": `module.exports = { n: 1, default: "kept" };`,
	})

	value, err := loader.Load(context.Background(), "p.js", nil)
	require.NoError(t, err)

	exported, ok := value.Export().(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, int64(1), exported["n"])
	require.Equal(t, "kept", exported["default"])
}

func TestLoadJavaScriptESMFallsBack(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/e.js": `export default "from-esm";`,
	})

	value, err := loader.Load(context.Background(), "e.js", nil)
	require.NoError(t, err)
	require.Equal(t, "from-esm", value.Export())
}

func TestLoadUnsupportedExtension(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/pic.png": "\x89PNG",
	})

	_, err := loader.Load(context.Background(), "pic.png", nil)
	require.Error(t, err)

	var extErr *modload.UnsupportedExtensionError
	require.ErrorAs(t, err, &extErr)
	require.Equal(t, ".png", extErr.Ext)
}

func TestLoadTwiceYieldsIndependentResults(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/s.cjs": `globalThis.hits = (globalThis.hits || 0) + 1;
module.exports = globalThis.hits;`,
	})

	first, err := loader.Load(context.Background(), "s.cjs", nil)
	require.NoError(t, err)
	second, err := loader.Load(context.Background(), "s.cjs", nil)
	require.NoError(t, err)

	// Each load runs in a fresh sandbox, so the counter never carries over
	require.Equal(t, int64(1), first.Export())
	require.Equal(t, int64(1), second.Export())
}

func TestLoadResolvesRelativeRequires(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/app.cjs": `const dep = require('./lib/dep');
module.exports = dep.twice(21);`,
		"/lib/dep.js": `exports.twice = function (n) { return n * 2; };`,
	})

	value, err := loader.Load(context.Background(), "app.cjs", nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), value.Export())
}

func TestRequireESMFromCommonJSPropagates(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/root.cjs": `module.exports = require('./esm.mjs');`,
		"/esm.mjs":  `export default 1;`,
	})

	_, err := loader.Load(context.Background(), "root.cjs", nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, modload.ErrRequireESM))
}

func TestLoadESModuleWithStaticImports(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/main.mjs": `import { double } from './math.mjs';
export default double(21);`,
		"/math.mjs": `export function double(n) { return n * 2; }`,
	})

	value, err := loader.Load(context.Background(), "main.mjs", nil)
	require.NoError(t, err)
	require.Equal(t, int64(42), value.Export())
}

func TestLoadGzipCompressedSource(t *testing.T) {
	var compressed bytes.Buffer
	writer := gzip.NewWriter(&compressed)
	_, err := writer.Write([]byte(`module.exports = "zipped";`))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	filesystem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(filesystem, "/z.cjs.gz", compressed.Bytes(), 0o644))

	loader, err := modload.NewScriptLoader(filesystem, "/", "")
	require.NoError(t, err)

	value, err := loader.Load(context.Background(), "z.cjs.gz", nil)
	require.NoError(t, err)
	require.Equal(t, "zipped", value.Export())
}

func TestLoadCanceledContext(t *testing.T) {
	loader := newTestLoader(t, map[string]string{
		"/a.cjs": `module.exports = 1;`,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.Load(ctx, "a.cjs", nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadMissingFilePropagates(t *testing.T) {
	loader := newTestLoader(t, nil)

	_, err := loader.Load(context.Background(), "missing.cjs", nil)
	require.Error(t, err)
	require.False(t, errors.Is(err, modload.ErrRequireESM))
}

func TestProjectRegistrationReleasedOnFailure(t *testing.T) {
	project, err := compiler.NewProject("tsconfig.json", "")
	require.NoError(t, err)

	loader := newTestLoader(t, map[string]string{
		"/bad.ts": `export default missingFunction();`,
	})

	_, err = loader.Load(context.Background(), "bad.ts", project)
	require.Error(t, err)

	// The registration must be gone: Active is clear and a new registration
	// does not block
	require.Nil(t, loader.Registry().Active())
	registration := loader.Registry().Register(project)
	registration.Deregister()
}

func TestProjectRegistrationReleasedOnSuccess(t *testing.T) {
	project, err := compiler.NewProject("tsconfig.json", "")
	require.NoError(t, err)

	loader := newTestLoader(t, map[string]string{
		"/ok.ts": `export default 1;`,
	})

	_, err = loader.Load(context.Background(), "ok.ts", project)
	require.NoError(t, err)
	require.Nil(t, loader.Registry().Active())
}
