package modload

import (
	"path"

	"github.com/dop251/goja"
	"github.com/go-errors/errors"
)

type moduleOrigin struct {
	filename string
	path     string
}

func (o *moduleOrigin) Filename() string {
	return o.filename
}

func (o *moduleOrigin) Path() string {
	return o.path
}

// scriptModule is one evaluated module within a single load call.
type scriptModule struct {
	origin  *moduleOrigin
	exports *goja.Object
	value   goja.Value
}

// exportsValue returns module.exports, honoring a reassignment by the script.
func (m *scriptModule) exportsValue() goja.Value {
	if m.value != nil {
		return m.value
	}
	return m.exports
}

// requireModule implements the synchronous CommonJS load primitive. Outside
// of dynamic-import mode it fails with ErrRequireESM when the target is
// module-style, either by extension or by top-level import/export syntax.
func (sb *sandbox) requireModule(filename string, baseDir string) (*scriptModule, error) {
	if err := sb.ctx.Err(); err != nil {
		return nil, err
	}

	filename = findScriptFile(sb.loader.filesystem, filename, baseDir)

	if module := sb.modules[filename]; module != nil {
		return module, nil
	}

	if scriptExtension(filename) == ".mjs" && !sb.esm {
		return nil, errors.New(ErrRequireESM)
	}

	source, err := sb.loader.loadSource(sb, filename)
	if err != nil {
		return nil, err
	}

	return sb.evaluateModule(filename, source)
}

func (sb *sandbox) evaluateModule(filename string, source []byte) (*scriptModule, error) {
	sb.logger.Debugf("Sandbox: Evaluating script module %s", filename)

	prog, err := compileJavascript(filename, wrapSource(source))
	if err != nil {
		return nil, errors.New(err)
	}

	val, err := sb.vm.RunProgram(prog)
	if err != nil {
		return nil, errors.New(err)
	}

	var factory goja.Callable
	if err := sb.vm.ExportTo(val, &factory); err != nil {
		return nil, errors.New(err)
	}

	module := &scriptModule{
		origin: &moduleOrigin{
			filename: path.Base(filename),
			path:     path.Dir(filename),
		},
		exports: sb.vm.NewObject(),
	}
	module.value = module.exports

	moduleObject := sb.vm.NewObject()
	if err := moduleObject.Set("exports", module.exports); err != nil {
		return nil, errors.New(err)
	}

	// Registered before execution so require cycles see the partial exports
	sb.modules[filename] = module

	requireFunction := func(call goja.FunctionCall) goja.Value {
		specifier := call.Argument(0).String()
		required, err := sb.requireModule(specifier, module.origin.Path())
		if err != nil {
			sb.nested = err
			panic(sb.vm.NewGoError(err))
		}
		return required.exportsValue()
	}

	_, err = factory(goja.Undefined(),
		moduleObject,
		module.exports,
		sb.vm.ToValue(requireFunction),
		sb.vm.ToValue(filename),
		sb.vm.ToValue(module.origin.Path()))
	if err != nil {
		delete(sb.modules, filename)
		if nested := sb.takeNestedError(err); nested != nil {
			return nil, nested
		}
		return nil, errors.New(err)
	}

	module.value = moduleObject.Get("exports")
	return module, nil
}
