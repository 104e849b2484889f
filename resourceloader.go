package modload

import (
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/spf13/afero"
)

type resourceLoader struct {
}

func newResourceLoader() ResourceLoader {
	return &resourceLoader{}
}

func (rl *resourceLoader) LoadResource(filesystem afero.Fs, filename string) ([]byte, error) {
	file, err := filesystem.OpenFile(filename, os.O_RDONLY, os.ModePerm)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if strings.HasSuffix(filename, ".gz") {
		log.Debugf("ResourceLoader: GZIP decompressing scriptfile: %s", filename)
		reader, err := gzip.NewReader(file)
		if err != nil {
			return nil, err
		}
		return io.ReadAll(reader)
	}

	if strings.HasSuffix(filename, ".bz2") {
		log.Debugf("ResourceLoader: BZIP decompressing scriptfile: %s", filename)
		return io.ReadAll(bzip2.NewReader(file))
	}

	return io.ReadAll(file)
}
