package modload

import (
	"errors"
	"fmt"
)

// ErrRequireESM signals that a module cannot be loaded synchronously because
// it is in ECMAScript module format. It is the only failure the loader
// recovers from, by switching to the dynamic import path; everything else
// propagates to the caller unchanged.
var ErrRequireESM = errors.New("cannot load ECMAScript module synchronously")

// UnsupportedExtensionError is returned when a module path carries an
// extension that maps to no known script format.
type UnsupportedExtensionError struct {
	Path string
	Ext  string
}

func (e *UnsupportedExtensionError) Error() string {
	return fmt.Sprintf("unsupported script extension %q: %s", e.Ext, e.Path)
}
