package calc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// maxSuffix bounds the search for a free output name
const maxSuffix = 1000

// ReadFile reads a whole file to send or inspect
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read %s: %w", path, err)
	}
	return data, nil
}

// WriteOutput stores data at path. Unless overwrite is set an existing file
// is left alone and the first free name of path.1, path.2, ... is used
// instead. It returns the path written.
func WriteOutput(path string, data []byte, overwrite bool) (string, error) {
	f, name, err := createOutput(path, overwrite)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return name, nil
}

func createOutput(path string, overwrite bool) (*os.File, string, error) {
	if overwrite {
		f, err := os.Create(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		return f, path, nil
	}

	for i := 0; i < maxSuffix; i++ {
		name := path
		if i > 0 {
			name = fmt.Sprintf("%s.%d", path, i)
		}
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, name, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("failed to create %s: %w", name, err)
		}
	}
	return nil, "", fmt.Errorf("no free output name for %s", path)
}
