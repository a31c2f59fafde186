package learning

import (
	"io"
	"os"
)

// Source opens one document for reading. Each call must return a fresh stream.
type Source func() (io.ReadCloser, error)

// FileSource reads the file at path
func FileSource(path string) Source {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}

// FileSources converts paths to sources
func FileSources(paths []string) []Source {
	sources := make([]Source, len(paths))
	for i, path := range paths {
		sources[i] = FileSource(path)
	}
	return sources
}

// ReaderSource wraps an already open reader. It can be read only once.
func ReaderSource(r io.Reader) Source {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	}
}
