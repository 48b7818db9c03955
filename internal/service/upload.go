package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/storage"
)

// DefaultMaxImageSize is used when a service is built without a limit.
const DefaultMaxImageSize = 2 << 20

// validateUpload checks one upload and records problems under field.
func validateUpload(verr *apperr.ValidationError, field string, u models.Upload, maxSize int64) {
	if len(u.Data) == 0 {
		verr.Add(field, "file is empty")
		return
	}
	if int64(len(u.Data)) > maxSize {
		verr.Add(field, fmt.Sprintf("file exceeds %d bytes", maxSize))
		return
	}
	if ct := storage.ContentType(u.Data); !strings.HasPrefix(ct, "image/") {
		verr.Add(field, fmt.Sprintf("unsupported content type %s", ct))
	}
}

// validateImageRef validates the upload carried by ref, if any.
func validateImageRef(verr *apperr.ValidationError, field string, ref models.ImageRef, maxSize int64) {
	switch ref.Kind() {
	case models.ImageUpload:
		validateUpload(verr, field, ref.Upload(), maxSize)
	case models.ImageExisting:
		if strings.TrimSpace(ref.Path()) == "" {
			verr.Add(field, "path must not be empty")
		}
	}
}

// checkImageExists rejects an existing-path ref pointing away from current
// unless the blob store holds that path.
func checkImageExists(ctx context.Context, blobs storage.BlobStore, verr *apperr.ValidationError, field string, ref models.ImageRef, current *string) error {
	if ref.Kind() != models.ImageExisting {
		return nil
	}
	path := strings.TrimSpace(ref.Path())
	if path == "" || (current != nil && *current == path) {
		return nil
	}
	ok, err := blobs.Exists(ctx, path)
	switch {
	case errors.Is(err, storage.ErrInvalidPath):
		verr.Add(field, fmt.Sprintf("invalid image path %q", path))
	case err != nil:
		return fmt.Errorf("failed to check image %s: %w", path, err)
	case !ok:
		verr.Add(field, fmt.Sprintf("image %q does not exist", path))
	}
	return nil
}

// uploadBatch stores files for one request and remembers them so a failed
// request can remove what it wrote.
type uploadBatch struct {
	blobs storage.BlobStore
	paths []string
}

func newUploadBatch(blobs storage.BlobStore) *uploadBatch {
	return &uploadBatch{blobs: blobs}
}

func (b *uploadBatch) put(ctx context.Context, u models.Upload, folder string) (string, error) {
	p, err := b.blobs.Store(ctx, u.Data, folder, u.Filename)
	if err != nil {
		return "", fmt.Errorf("failed to store %s: %w", u.Filename, err)
	}
	b.paths = append(b.paths, p)
	return p, nil
}

// resolve turns ref into the path to persist. Unset keeps current.
func (b *uploadBatch) resolve(ctx context.Context, ref models.ImageRef, current *string, folder string) (*string, error) {
	switch ref.Kind() {
	case models.ImageUpload:
		p, err := b.put(ctx, ref.Upload(), folder)
		if err != nil {
			return nil, err
		}
		return &p, nil
	case models.ImageExisting:
		p := ref.Path()
		return &p, nil
	default:
		return current, nil
	}
}

// rollback deletes every file stored by the batch. Failures are logged only.
func (b *uploadBatch) rollback(ctx context.Context) {
	for _, p := range b.paths {
		if err := b.blobs.Delete(ctx, p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("failed to clean up uploaded image")
		}
	}
	b.paths = nil
}

// removeUnreferenced deletes paths no row points to anymore. It runs after
// commit; failures are logged and never returned.
func removeUnreferenced(ctx context.Context, store repository.ProductStore, blobs storage.BlobStore, paths []string) {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true

		used, err := store.ImageInUse(ctx, p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("failed to check image references")
			continue
		}
		if used {
			continue
		}
		if err := blobs.Delete(ctx, p); err != nil {
			log.Warn().Err(err).Str("path", p).Msg("failed to delete obsolete image")
		}
	}
}
