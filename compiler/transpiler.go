package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/go-errors/errors"
	"github.com/spf13/afero"
)

const cacheJsonFile = "cache.json"

// Transpiler lowers TypeScript and ECMAScript module sources to plain
// CommonJS scripts the embedded runtime can evaluate. Transform results are
// cached on the given filesystem, keyed by source checksum, so repeated loads
// of unchanged files skip the transform.
type Transpiler struct {
	registry *Registry
	fs       afero.Fs
	cacheDir string

	mu                sync.Mutex
	transpiledModules []transpiledModule
}

// NewTranspiler creates a transpiler bound to the given registry and
// filesystem. An empty cacheDir disables the transform cache.
func NewTranspiler(registry *Registry, filesystem afero.Fs, cacheDir string) *Transpiler {
	var modules []transpiledModule

	if cacheDir != "" {
		cacheFile := filepath.Join(cacheDir, cacheJsonFile)
		if file, err := afero.ReadFile(filesystem, cacheFile); err == nil {
			json.Unmarshal(file, &modules)
		}
	}

	if modules == nil {
		modules = make([]transpiledModule, 0)
	}

	return &Transpiler{
		registry:          registry,
		fs:                filesystem,
		cacheDir:          cacheDir,
		transpiledModules: modules,
	}
}

// Transpile lowers the given source to CommonJS, honoring the compiler
// options of the currently registered project.
func (t *Transpiler) Transpile(filename string, source []byte) (string, error) {
	project := t.registry.Active()

	checksum := hash(string(source))
	cacheFile := t.cacheFile(filename, project)

	if cacheFile != "" {
		t.mu.Lock()
		module := t.findTranspiledModule(cacheFile)
		t.mu.Unlock()

		if module != nil && module.Checksum == checksum {
			if data, err := afero.ReadFile(t.fs, cacheFile); err == nil {
				log.Debugf("Transpiler: Using cached transform of %s", filename)
				return string(data), nil
			}
		}
	}

	log.Debugf("Transpiler: Transpiling %s...", filename)

	code, err := t.transform(filename, string(source), project)
	if err != nil {
		return "", err
	}

	if cacheFile != "" {
		if err := t.storeTranspiledModule(filename, cacheFile, checksum, code); err != nil {
			return "", err
		}
	}

	return code, nil
}

func (t *Transpiler) transform(filename, source string, project *Project) (string, error) {
	options := api.TransformOptions{
		Sourcefile: filename,
		Loader:     loaderForFile(filename),
		Format:     api.FormatCommonJS,
		Target:     api.ES2017,
		LogLevel:   api.LogLevelSilent,
	}
	if project != nil {
		options.TsconfigRaw = project.Raw()
	}

	result := api.Transform(source, options)
	if len(result.Errors) > 0 {
		return "", errors.New(transformError(filename, result.Errors))
	}

	return string(result.Code), nil
}

func (t *Transpiler) cacheFile(filename string, project *Project) string {
	if t.cacheDir == "" {
		return ""
	}
	key := filename
	if project != nil {
		key = project.Raw() + "\n" + filename
	}
	return filepath.Join(t.cacheDir, hash(key))
}

func (t *Transpiler) storeTranspiledModule(filename, cacheFile, checksum, code string) error {
	if err := t.fs.MkdirAll(t.cacheDir, os.ModePerm); err != nil {
		return errors.New(err)
	}
	if err := afero.WriteFile(t.fs, cacheFile, []byte(code), os.ModePerm); err != nil {
		return errors.New(err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.removeTranspiledModule(cacheFile)
	t.transpiledModules = append(t.transpiledModules, transpiledModule{filename, cacheFile, checksum})

	return t.storeModuleCacheInformation()
}

func (t *Transpiler) findTranspiledModule(cacheFile string) *transpiledModule {
	for i := range t.transpiledModules {
		if t.transpiledModules[i].CacheFile == cacheFile {
			return &t.transpiledModules[i]
		}
	}
	return nil
}

func (t *Transpiler) removeTranspiledModule(cacheFile string) {
	for i, temp := range t.transpiledModules {
		if temp.CacheFile == cacheFile {
			t.transpiledModules = append(t.transpiledModules[:i], t.transpiledModules[i+1:]...)
			return
		}
	}
}

func (t *Transpiler) storeModuleCacheInformation() error {
	file := filepath.Join(t.cacheDir, cacheJsonFile)
	data, err := json.Marshal(t.transpiledModules)
	if err != nil {
		return errors.New(err)
	}
	if err := afero.WriteFile(t.fs, file, data, os.ModePerm); err != nil {
		return errors.New(err)
	}
	return nil
}

type transpiledModule struct {
	OriginalFile string `json:"originalFile"`
	CacheFile    string `json:"cacheFile"`
	Checksum     string `json:"checksum"`
}

func loaderForFile(filename string) api.Loader {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	case ".jsx":
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}

func transformError(filename string, messages []api.Message) string {
	lines := make([]string, len(messages))
	for i, message := range messages {
		location := filename
		if message.Location != nil {
			location = message.Location.File
		}
		lines[i] = location + ": " + message.Text
	}
	return strings.Join(lines, "\n")
}

func hash(value string) string {
	hasher := sha256.New()
	hasher.Write([]byte(value))
	sum := hasher.Sum(nil)
	return hex.EncodeToString(sum)
}
