package modload

import (
	"github.com/dop251/goja"
)

// importModule implements the dynamic import primitive. The specifier is a
// canonical file URL (or a plain path); the module and its static import
// graph are lowered to CommonJS and the result is exposed as an ECMAScript
// module namespace object.
func (sb *sandbox) importModule(specifier string) (*goja.Object, error) {
	filename, err := fileURLPath(specifier)
	if err != nil {
		return nil, err
	}

	sb.logger.Debugf("Sandbox: Importing module %s", specifier)

	sb.esm = true
	module, err := sb.requireModule(filename, sb.loader.basePath)
	if err != nil {
		return nil, err
	}

	return sb.namespaceObject(module), nil
}

func (sb *sandbox) namespaceObject(module *scriptModule) *goja.Object {
	namespace := sb.vm.NewObject()
	exports := module.exportsValue()

	object, isObject := exports.(*goja.Object)
	if isObject {
		for _, key := range object.Keys() {
			namespace.Set(key, object.Get(key))
		}
		if isDefined(object.Get("__esModule")) && object.Get("__esModule").ToBoolean() {
			return namespace
		}
	}

	// CommonJS imported dynamically: the whole exports value becomes the
	// namespace's default member
	namespace.Set("default", exports)
	return namespace
}
