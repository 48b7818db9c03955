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
	"github.com/GTDGit/gtd_catalog/internal/utils"
)

// CategoryService manages product categories.
type CategoryService struct {
	store        repository.Store
	blobs        storage.BlobStore
	maxImageSize int64
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(store repository.Store, blobs storage.BlobStore, maxImageSize int64) *CategoryService {
	if maxImageSize <= 0 {
		maxImageSize = DefaultMaxImageSize
	}
	return &CategoryService{store: store, blobs: blobs, maxImageSize: maxImageSize}
}

// CategoryInput is the payload of Create and Update.
type CategoryInput struct {
	ParentID    *int
	Name        string
	Slug        string
	Description *string
	SortOrder   int
	Image       models.ImageRef
}

// CategoryDetail adds the public image URL.
type CategoryDetail struct {
	models.Category
	ImageURL string `json:"imageUrl,omitempty"`
}

// Create stores a new category.
func (s *CategoryService) Create(ctx context.Context, in *CategoryInput) (*CategoryDetail, error) {
	slug, err := s.validate(ctx, in, 0)
	if err != nil {
		return nil, err
	}
	if err := s.checkImage(ctx, in.Image, nil); err != nil {
		return nil, err
	}

	c := &models.Category{
		ParentID:    in.ParentID,
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Description: in.Description,
		SortOrder:   in.SortOrder,
	}
	batch := newUploadBatch(s.blobs)
	if c.ImagePath, err = batch.resolve(ctx, in.Image, nil, storage.FolderCategories); err != nil {
		return nil, err
	}
	if err := s.store.CreateCategory(ctx, c); err != nil {
		batch.rollback(ctx)
		return nil, err
	}

	log.Info().Int("category_id", c.ID).Str("slug", c.Slug).Msg("category created")
	return s.detail(c), nil
}

// Get returns a category.
func (s *CategoryService) Get(ctx context.Context, id int) (*CategoryDetail, error) {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.detail(c), nil
}

// List returns every category ordered for display.
func (s *CategoryService) List(ctx context.Context) ([]CategoryDetail, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryDetail, 0, len(categories))
	for i := range categories {
		out = append(out, *s.detail(&categories[i]))
	}
	return out, nil
}

// Update rewrites a category. A replaced image is deleted after the update.
func (s *CategoryService) Update(ctx context.Context, id int, in *CategoryInput) (*CategoryDetail, error) {
	current, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	slug, err := s.validate(ctx, in, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkImage(ctx, in.Image, current.ImagePath); err != nil {
		return nil, err
	}

	c := *current
	c.ParentID = in.ParentID
	c.Name = strings.TrimSpace(in.Name)
	c.Slug = slug
	c.Description = in.Description
	c.SortOrder = in.SortOrder

	batch := newUploadBatch(s.blobs)
	if c.ImagePath, err = batch.resolve(ctx, in.Image, current.ImagePath, storage.FolderCategories); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCategory(ctx, &c); err != nil {
		batch.rollback(ctx)
		return nil, err
	}

	if old := current.ImagePath; old != nil && (c.ImagePath == nil || *c.ImagePath != *old) {
		removeUnreferenced(ctx, s.store, s.blobs, []string{*old})
	}
	return s.detail(&c), nil
}

// Delete removes a category that no product references.
func (s *CategoryService) Delete(ctx context.Context, id int) error {
	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.store.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: category %d has %d products", apperr.ErrInUse, id, n)
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return err
	}
	if c.ImagePath != nil {
		removeUnreferenced(ctx, s.store, s.blobs, []string{*c.ImagePath})
	}
	log.Info().Int("category_id", id).Msg("category deleted")
	return nil
}

func (s *CategoryService) validate(ctx context.Context, in *CategoryInput, id int) (string, error) {
	verr := &apperr.ValidationError{}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		verr.Add("name", "is required")
	case len(name) > maxNameLength:
		verr.Add("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	slug := utils.ResolveSlug(in.Slug, in.Name)
	if slug == "" && name != "" {
		verr.Add("slug", "cannot be derived from name")
	}
	if in.ParentID != nil && id != 0 && *in.ParentID == id {
		verr.Add("parentId", "a category cannot be its own parent")
	}
	validateImageRef(verr, "image", in.Image, s.maxImageSize)
	if err := verr.OrNil(); err != nil {
		return "", err
	}

	if in.ParentID != nil {
		if _, err := s.store.GetCategory(ctx, *in.ParentID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return "", apperr.Invalid("parentId", "parent category does not exist")
			}
			return "", err
		}
	}

	taken, err := s.store.CategorySlugTaken(ctx, slug, id)
	if err != nil {
		return "", err
	}
	if taken {
		return "", apperr.Field(apperr.ErrDuplicateSlug, "slug", fmt.Sprintf("slug %q is already taken", slug))
	}
	return slug, nil
}

func (s *CategoryService) checkImage(ctx context.Context, ref models.ImageRef, current *string) error {
	verr := &apperr.ValidationError{}
	if err := checkImageExists(ctx, s.blobs, verr, "image", ref, current); err != nil {
		return err
	}
	return verr.OrNil()
}

func (s *CategoryService) detail(c *models.Category) *CategoryDetail {
	d := &CategoryDetail{Category: *c}
	if c.ImagePath != nil {
		d.ImageURL = s.blobs.PublicURL(*c.ImagePath)
	}
	return d
}
