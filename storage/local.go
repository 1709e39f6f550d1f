package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"site-cms/models"
)

// LocalStore writes uploads below a root directory that the HTTP layer
// serves statically at baseURL.
type LocalStore struct {
	root    string
	baseURL string
	maxSize int64
}

func NewLocalStore(root, baseURL string, maxSize int64) *LocalStore {
	return &LocalStore{root: root, baseURL: baseURL, maxSize: maxSize}
}

func (s *LocalStore) Save(_ context.Context, folder string, upload Upload) (*models.FileRef, error) {
	name := objectName(upload)
	key := objectKey(folder, name)
	dest := filepath.Join(s.root, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}

	reader := upload.Reader
	if s.maxSize > 0 {
		reader = io.LimitReader(upload.Reader, s.maxSize+1)
	}
	written, err := io.Copy(f, reader)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxSize > 0 && written > s.maxSize {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(dest)
		return nil, fmt.Errorf("write upload %s: %w", upload.OriginalName, err)
	}

	return &models.FileRef{
		Filename:     name,
		OriginalName: upload.OriginalName,
		Path:         key,
		MimeType:     upload.ContentType,
		Size:         written,
		URL:          publicURL(s.baseURL, key),
	}, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	full := filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+key)))
	err := os.Remove(full)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload %s: %w", key, err)
	}
	return nil
}
