package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const tmpPrefix = ".blob_tmp_"

// FileSystem stores blobs as files in a single directory.
type FileSystem struct {
	dir string
}

// NewFileSystem creates the directory if needed.
func NewFileSystem(dir string) (*FileSystem, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileSystem{dir: dir}, nil
}

// Dir returns the storage directory path.
func (f *FileSystem) Dir() string {
	return f.dir
}

// Path returns the on-disk path of a blob.
func (f *FileSystem) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(f.dir, name), nil
}

func (f *FileSystem) Put(ctx context.Context, name string, content io.Reader) error {
	path, err := f.Path(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Temp file in the same directory so the rename is atomic
	tmpFile, err := os.CreateTemp(f.dir, tmpPrefix)
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // no-op after a successful rename
	}()

	if _, err := io.Copy(tmpFile, content); err != nil {
		return fmt.Errorf("write blob %s: %w", name, err)
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

func (f *FileSystem) Open(_ context.Context, name string) (io.ReadCloser, error) {
	path, err := f.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (f *FileSystem) Delete(_ context.Context, name string) error {
	path, err := f.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *FileSystem) Exists(_ context.Context, name string) (bool, error) {
	path, err := f.Path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

func (f *FileSystem) List(ctx context.Context) ([]BlobInfo, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, err
	}

	blobs := make([]BlobInfo, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), tmpPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // removed while listing
		}
		blobs = append(blobs, BlobInfo{
			Name:       entry.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
		})
	}
	return blobs, nil
}
