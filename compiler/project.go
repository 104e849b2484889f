package compiler

import (
	"encoding/json"
	"strings"

	"github.com/go-errors/errors"
	"github.com/hjson/hjson-go/v4"
	"github.com/spf13/afero"
)

// Project describes a compiler project (a tsconfig). It is treated as an
// opaque descriptor by the loader; the transpiler hands the raw configuration
// to the transform backend.
type Project struct {
	name string
	raw  string

	moduleKind string
}

// NewProject creates a project from raw tsconfig text. The text may be JSONC
// (comments and trailing commas), as tsconfig files usually are.
func NewProject(name, raw string) (*Project, error) {
	normalized := ""
	var config map[string]interface{}

	if strings.TrimSpace(raw) != "" {
		var parsed interface{}
		if err := hjson.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, errors.New(err)
		}

		// Re-emit as strict JSON so the transform backend never sees JSONC
		data, err := json.Marshal(parsed)
		if err != nil {
			return nil, errors.New(err)
		}
		normalized = string(data)

		if err := json.Unmarshal(data, &config); err != nil {
			return nil, errors.New(err)
		}
	}

	return &Project{
		name:       name,
		raw:        normalized,
		moduleKind: moduleKind(config),
	}, nil
}

// LoadProject reads and parses a tsconfig file from the given filesystem.
func LoadProject(filesystem afero.Fs, filename string) (*Project, error) {
	data, err := afero.ReadFile(filesystem, filename)
	if err != nil {
		return nil, errors.New(err)
	}
	return NewProject(filename, string(data))
}

func (p *Project) Name() string {
	return p.name
}

// Raw returns the project configuration as strict JSON.
func (p *Project) Raw() string {
	return p.raw
}

// PrefersModuleOutput reports whether the project's compilerOptions select an
// ECMAScript module output format. Source files compiled under such a project
// cannot be loaded synchronously.
func (p *Project) PrefersModuleOutput() bool {
	switch p.moduleKind {
	case "es6", "es2015", "es2020", "es2022", "esnext":
		return true
	}
	return false
}

func moduleKind(config map[string]interface{}) string {
	if config == nil {
		return ""
	}
	options, ok := config["compilerOptions"].(map[string]interface{})
	if !ok {
		return ""
	}
	kind, ok := options["module"].(string)
	if !ok {
		return ""
	}
	return strings.ToLower(kind)
}
