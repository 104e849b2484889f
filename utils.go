package modload

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
	"github.com/go-errors/errors"
	"github.com/spf13/afero"
)

var moduleSyntax = regexp.MustCompile(`(?m)^[ \t]*(?:import[ \t("'{*]|export[ \t{*])`)

// hasModuleSyntax is a cheap pre-check for top-level import/export
// statements. It may report false positives, so callers confirm with the
// parser before treating a source as module-style.
func hasModuleSyntax(source []byte) bool {
	return moduleSyntax.Match(source)
}

func isDefined(value goja.Value) bool {
	return value != nil && value != goja.Null() && value != goja.Undefined()
}

func orUndefined(value goja.Value) goja.Value {
	if value == nil {
		return goja.Undefined()
	}
	return value
}

func fileExists(filesystem afero.Fs, filename string) bool {
	exists, err := afero.Exists(filesystem, filename)
	return err == nil && exists
}

func isTypeScript(filename string) bool {
	ext := scriptExtension(filename)
	return ext == ".ts" || ext == ".tsx"
}

func trimCompressionSuffix(filename string) string {
	for _, suffix := range []string{".gz", ".bz2"} {
		if strings.HasSuffix(filename, suffix) {
			return strings.TrimSuffix(filename, suffix)
		}
	}
	return filename
}

// scriptExtension returns the trailing extension with any compression suffix
// removed, so "a.cjs.gz" dispatches like "a.cjs".
func scriptExtension(filename string) string {
	return path.Ext(trimCompressionSuffix(filename))
}

func findScriptFile(filesystem afero.Fs, filename string, baseDir string) string {
	if !path.IsAbs(filename) {
		filename = path.Join(baseDir, filename)
	}

	// Clean path (removes ../ and ./)
	filename = path.Clean(filename)

	// See if we already have an extension
	if ext := scriptExtension(filename); ext != "" {
		// If filename exists, we can stop here
		if fileExists(filesystem, filename) {
			return filename
		}
	}
	candidates := []string{
		filename + ".js",
		filename + ".cjs",
		filename + ".mjs",
		filename + ".ts",
		path.Join(filename, "index.js"),
		path.Join(filename, "index.ts"),
		filename + ".js.gz",
		filename + ".ts.gz",
	}
	for _, candidate := range candidates {
		if fileExists(filesystem, candidate) {
			return candidate
		}
	}
	return filename
}

// fileURL converts a filesystem path into the canonical module locator used
// by the dynamic import path.
func fileURL(filename string) string {
	p := path.Clean(filename)
	if !path.IsAbs(p) {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

func fileURLPath(locator string) (string, error) {
	if !strings.HasPrefix(locator, "file://") {
		return locator, nil
	}
	u, err := url.Parse(locator)
	if err != nil {
		return "", errors.New(err)
	}
	return u.Path, nil
}

func wrapSource(source []byte) []byte {
	return []byte(fmt.Sprintf("(function(module, exports, require, __filename, __dirname) {\n%s\n})", source))
}

func compileJavascript(filename string, source []byte) (*goja.Program, error) {
	ast, err := parser.ParseFile(nil, filename, string(source), 0)
	if err != nil {
		return nil, err
	}
	return goja.CompileAST(ast, true)
}
