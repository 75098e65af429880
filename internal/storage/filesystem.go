package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidKey = errors.New("invalid cache key")

type Filesystem struct {
	baseDir string
}

func NewFilesystem(baseDir string) (*Filesystem, error) {
	cacheDir := filepath.Join(baseDir, "cache")
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Filesystem{baseDir: cacheDir}, nil
}

// Path returns the blob path for key: XX/key.jpg
// e.g., 9f/9f86d0..._w800_q70_native.jpg
func (fs *Filesystem) Path(key string) (string, error) {
	if !validKey(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(fs.baseDir, key[0:2], key+".jpg"), nil
}

func (fs *Filesystem) Save(key string, data []byte) error {
	path, err := fs.Path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	// Write to a temp file first so readers never see a partial blob.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename file: %w", err)
	}

	return nil
}

func (fs *Filesystem) Read(key string) ([]byte, error) {
	path, err := fs.Path(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Delete removes the blob for key. Missing blobs are not an error.
func (fs *Filesystem) Delete(key string) error {
	path, err := fs.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (fs *Filesystem) Exists(key string) bool {
	path, err := fs.Path(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (fs *Filesystem) GetDiskUsage() (int64, error) {
	var total int64
	err := filepath.Walk(fs.baseDir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

func validKey(key string) bool {
	if len(key) < 2 || len(key) > 128 {
		return false
	}
	return strings.IndexFunc(key, func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_')
	}) == -1
}
