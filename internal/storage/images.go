package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ImageStore is the object-storage collaborator: upload a file, get back the
// public URL used as a product's image reference.
type ImageStore interface {
	Save(filename string, r io.Reader) (string, error)
	PublicURL(key string) string
}

// DiskStore keeps uploads on the local filesystem and serves them from a
// static route. Keys are prefixed with the upload time so repeated uploads
// of the same file never collide.
type DiskStore struct {
	Dir     string
	BaseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create upload dir: %w", err)
	}
	return &DiskStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStore) Save(filename string, r io.Reader) (string, error) {
	key := fmt.Sprintf("%d-%s", time.Now().UnixMilli(), sanitize(filename))
	dst, err := os.Create(filepath.Join(s.Dir, key))
	if err != nil {
		return "", fmt.Errorf("storage: cannot create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("storage: write failed: %w", err)
	}
	return s.PublicURL(key), nil
}

func (s *DiskStore) PublicURL(key string) string {
	return s.BaseURL + "/" + key
}

func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, " ", "_")
	if name == "." || name == string(filepath.Separator) {
		return "upload"
	}
	return name
}
