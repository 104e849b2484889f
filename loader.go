package modload

import (
	"context"
	"strings"

	"github.com/dop251/goja"
	"github.com/go-errors/errors"
	"github.com/spf13/afero"

	"github.com/relationsone/modload/compiler"
)

// ScriptLoader loads script modules from a filesystem. It is safe for
// concurrent use: every Load call evaluates in its own sandbox, and the only
// shared mutable state is the compiler project registration, which the
// registry serializes.
type ScriptLoader struct {
	filesystem afero.Fs
	basePath   string
	registry   *compiler.Registry
	transpiler *compiler.Transpiler
	resources  ResourceLoader
}

var _ Loader = (*ScriptLoader)(nil)

// NewScriptLoader creates a loader resolving relative module paths against
// basePath. cacheDir names a directory on the same filesystem for the
// transpile cache; an empty cacheDir disables it.
func NewScriptLoader(filesystem afero.Fs, basePath, cacheDir string) (*ScriptLoader, error) {
	if basePath == "" {
		basePath = "/"
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath = basePath + "/"
	}

	registry := compiler.NewRegistry()

	return &ScriptLoader{
		filesystem: filesystem,
		basePath:   basePath,
		registry:   registry,
		transpiler: compiler.NewTranspiler(registry, filesystem, cacheDir),
		resources:  newResourceLoader(),
	}, nil
}

// Registry returns the loader's compiler project registry.
func (l *ScriptLoader) Registry() *compiler.Registry {
	return l.registry
}

// Load evaluates the module at modulePath and returns its exported value.
// The strategy is selected by the path's trailing extension; see the package
// documentation. For TypeScript sources the given project is registered for
// the duration of the call and deregistered on every exit path.
func (l *ScriptLoader) Load(ctx context.Context, modulePath string, project *compiler.Project) (goja.Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	sb := newSandbox(l, ctx)
	sb.logger.Debugf("Loader: Loading script module %s", modulePath)

	switch ext := scriptExtension(modulePath); ext {
	case ".mjs":
		namespace, err := sb.importModule(fileURL(l.resolve(modulePath)))
		if err != nil {
			return nil, err
		}
		return orUndefined(namespace.Get("default")), nil

	case ".cjs":
		module, err := sb.requireModule(modulePath, l.basePath)
		if err != nil {
			return nil, err
		}
		return module.exportsValue(), nil

	case ".ts", ".tsx":
		registration := l.registry.Register(project)
		defer registration.Deregister()
		return l.loadWithFallback(sb, modulePath, true)

	case ".js", ".jsx", "":
		return l.loadWithFallback(sb, modulePath, false)

	default:
		return nil, &UnsupportedExtensionError{Path: modulePath, Ext: ext}
	}
}

// loadWithFallback attempts the synchronous load first and switches to the
// dynamic import path if, and only if, the module turns out to be
// module-style. Any other failure propagates.
func (l *ScriptLoader) loadWithFallback(sb *sandbox, modulePath string, preferDefault bool) (goja.Value, error) {
	module, err := sb.requireModule(modulePath, l.basePath)
	if err == nil {
		exports := module.exportsValue()
		if preferDefault {
			if object, ok := exports.(*goja.Object); ok && isDefined(object.Get("default")) {
				return object.Get("default"), nil
			}
		}
		return exports, nil
	}

	if !errors.Is(err, ErrRequireESM) {
		return nil, err
	}

	sb.logger.Debugf("Loader: %s is in module format, switching to dynamic import", modulePath)

	namespace, err := sb.importModule(fileURL(l.resolve(modulePath)))
	if err != nil {
		return nil, err
	}
	return orUndefined(namespace.Get("default")), nil
}

// loadSource reads a module's source and brings it into evaluable form:
// TypeScript and JSX are transpiled, and module-style sources are either
// lowered (dynamic-import mode) or reported as a format mismatch.
func (l *ScriptLoader) loadSource(sb *sandbox, filename string) ([]byte, error) {
	data, err := l.resources.LoadResource(l.filesystem, filename)
	if err != nil {
		return nil, errors.New(err)
	}

	plain := trimCompressionSuffix(filename)
	ext := scriptExtension(plain)

	if isTypeScript(plain) || ext == ".jsx" {
		if !sb.esm && isTypeScript(plain) {
			if project := l.registry.Active(); project != nil && project.PrefersModuleOutput() {
				return nil, errors.New(ErrRequireESM)
			}
		}
		code, err := l.transpiler.Transpile(plain, data)
		if err != nil {
			return nil, err
		}
		return []byte(code), nil
	}

	if hasModuleSyntax(data) {
		if sb.esm {
			code, err := l.transpiler.Transpile(plain, data)
			if err != nil {
				return nil, err
			}
			return []byte(code), nil
		}

		// The pre-check can false-positive, so only flag a mismatch when the
		// source really does not parse as a classic script
		if _, err := compileJavascript(filename, wrapSource(data)); err != nil {
			return nil, errors.New(ErrRequireESM)
		}
	}

	return data, nil
}

func (l *ScriptLoader) resolve(modulePath string) string {
	return findScriptFile(l.filesystem, modulePath, l.basePath)
}
