// Package storage stores uploaded images and resolves their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/GTDGit/gtd_catalog/internal/config"
)

// Folders used by the catalog.
const (
	FolderProducts   = "products"
	FolderGallery    = "products/gallery"
	FolderVariants   = "products/variants"
	FolderCategories = "categories"
)

// ErrInvalidPath is returned for paths that escape the store root.
var ErrInvalidPath = errors.New("invalid blob path")

// BlobStore keeps files addressed by a relative path such as
// "products/variants/3f2a....png".
type BlobStore interface {
	Store(ctx context.Context, data []byte, folder, filename string) (string, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	PublicURL(path string) string
}

// New builds the blob store selected by cfg.Driver.
func New(ctx context.Context, cfg *config.StorageConfig) (BlobStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, &cfg.S3)
	case "local", "":
		return NewLocalStore(cfg.LocalDir, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ContentType sniffs the MIME type of data.
func ContentType(data []byte) string {
	return http.DetectContentType(data)
}

// objectPath builds "<folder>/<uuid><ext>". The extension comes from the
// original filename, or from the sniffed content type when it has none.
func objectPath(folder, filename string, data []byte) (string, error) {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "" || folder == "." {
		return "", fmt.Errorf("%w: empty folder", ErrInvalidPath)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(ContentType(data)); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return folder + "/" + uuid.New().String() + ext, nil
}

// cleanPath validates a stored path and returns it without leading slashes.
func cleanPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" || strings.Contains(p, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return strings.TrimLeft(path.Clean("/"+p), "/"), nil
}

func joinURL(base, p string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(p, "/")
}
