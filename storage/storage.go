// Package storage persists uploaded files and hands back the references the
// rest of the service stores on submissions and stories.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"site-cms/models"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when an upload exceeds the configured size.
var ErrTooLarge = errors.New("upload exceeds maximum size")

// Upload is one incoming file, independent of how it reached the server.
type Upload struct {
	Field        models.FileRole
	OriginalName string
	ContentType  string
	Size         int64
	Reader       io.Reader
}

// FileStore stores uploads under a folder and removes them by path. A file
// stays retrievable at its URL until Delete is called with its path.
type FileStore interface {
	Save(ctx context.Context, folder string, upload Upload) (*models.FileRef, error)
	Delete(ctx context.Context, path string) error
}

const storiesPrefix = "stories"

// Folder picks the storage folder of an upload: author images and resource
// files share a folder across categories, main images go under their
// category.
func Folder(field models.FileRole, category models.Category) string {
	switch field {
	case models.FileAuthorImage:
		return "Authors"
	case models.FileResourceFile:
		return "Files"
	}
	return string(category)
}

// objectName builds "<field>-<uuid><ext>" keeping only a sane extension.
func objectName(upload Upload) string {
	ext := strings.ToLower(filepath.Ext(upload.OriginalName))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return fmt.Sprintf("%s-%s%s", upload.Field, uuid.NewString(), ext)
}

func objectKey(folder, name string) string {
	return path.Join(storiesPrefix, folder, name)
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

// DeleteAll removes every referenced file, returning the first error after
// attempting them all.
func DeleteAll(ctx context.Context, store FileStore, refs []models.FileRef) error {
	var first error
	for _, ref := range refs {
		if ref.Path == "" {
			continue
		}
		if err := store.Delete(ctx, ref.Path); err != nil && first == nil {
			first = err
		}
	}
	return first
}
