package modload

import (
	"context"

	"github.com/dop251/goja"
	"github.com/spf13/afero"

	"github.com/relationsone/modload/compiler"
)

// Loader loads a script module and returns the value it exports. The project
// descriptor is only consulted for TypeScript sources and may be nil.
type Loader interface {
	Load(ctx context.Context, modulePath string, project *compiler.Project) (goja.Value, error)
}

// ResourceLoader reads raw script content from a filesystem.
type ResourceLoader interface {
	LoadResource(filesystem afero.Fs, filename string) ([]byte, error)
}
