package assets

import (
	"fmt"
	"os"
	"path/filepath"
)

// FilesystemLoader serves assets from an override directory. Reads go
// through an os.Root, so neither names nor symlinks reach files outside it.
type FilesystemLoader struct {
	fsLoader
	root *os.Root
}

// NewFilesystemLoader opens basePath. It returns ErrInvalidBasePath when the
// path is empty, missing or not a directory.
func NewFilesystemLoader(basePath string) (*FilesystemLoader, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidBasePath)
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory: %s", ErrInvalidBasePath, abs)
	}

	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBasePath, err)
	}
	return &FilesystemLoader{fsLoader: fsLoader{fsys: root.FS()}, root: root}, nil
}

// Dir returns the directory the loader reads from.
func (f *FilesystemLoader) Dir() string {
	return f.root.Name()
}

// Close releases the directory handle.
func (f *FilesystemLoader) Close() error {
	return f.root.Close()
}

var _ AssetLoader = (*FilesystemLoader)(nil)
