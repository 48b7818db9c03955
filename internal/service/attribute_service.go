package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/utils"
	"github.com/GTDGit/gtd_catalog/internal/variation"
)

// AttributeService manages attributes and their values.
type AttributeService struct {
	store repository.Store
	cache ProductCache
}

// NewAttributeService creates a new AttributeService. cache may be nil.
func NewAttributeService(store repository.Store, cache ProductCache) *AttributeService {
	return &AttributeService{store: store, cache: cache}
}

// AttributeInput is the payload of Create and Update. Values are stored in
// list order.
type AttributeInput struct {
	Name        string
	Slug        string
	Description *string
	Values      []AttributeValueInput
}

// AttributeValueInput is one value. ID is set to update an existing value
// in place and left zero to create one.
type AttributeValueInput struct {
	ID    int
	Value string
	Slug  string
}

// Create stores an attribute with its values.
func (s *AttributeService) Create(ctx context.Context, in *AttributeInput) (*models.Attribute, error) {
	slug, err := s.validate(ctx, in, 0, nil)
	if err != nil {
		return nil, err
	}

	a := &models.Attribute{Name: strings.TrimSpace(in.Name), Slug: slug, Description: in.Description}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.CreateAttribute(ctx, a); err != nil {
			return err
		}
		for i, vin := range in.Values {
			v := valueFromInput(a.ID, i, vin)
			if err := tx.CreateAttributeValue(ctx, &v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("attribute_id", a.ID).Str("slug", a.Slug).Int("values", len(in.Values)).Msg("attribute created")
	return s.store.GetAttribute(ctx, a.ID)
}

// Get returns an attribute with its values.
func (s *AttributeService) Get(ctx context.Context, id int) (*models.Attribute, error) {
	return s.store.GetAttribute(ctx, id)
}

// List returns every attribute with its values.
func (s *AttributeService) List(ctx context.Context) ([]models.Attribute, error) {
	return s.store.ListAttributes(ctx)
}

// Update replaces an attribute and its value list. Values listed with an id
// keep that id; values without one are created; values not listed are
// deleted. Deleting a value still used by a variant of a live product fails
// with ErrInUse.
func (s *AttributeService) Update(ctx context.Context, id int, in *AttributeInput) (*models.Attribute, error) {
	current, err := s.store.GetAttribute(ctx, id)
	if err != nil {
		return nil, err
	}
	slug, err := s.validate(ctx, in, id, current.Values)
	if err != nil {
		return nil, err
	}

	listed := make(map[int]bool, len(in.Values))
	for _, v := range in.Values {
		if v.ID != 0 {
			listed[v.ID] = true
		}
	}
	var removed, kept []int
	for _, v := range current.Values {
		if listed[v.ID] {
			kept = append(kept, v.ID)
		} else {
			removed = append(removed, v.ID)
		}
	}

	inUse, err := s.store.ValuesInUse(ctx, removed)
	if err != nil {
		return nil, err
	}
	if len(inUse) > 0 {
		return nil, apperr.Field(apperr.ErrInUse, "values",
			fmt.Sprintf("values %v are used by product variants and cannot be removed", inUse))
	}

	a := &models.Attribute{ID: id, Name: strings.TrimSpace(in.Name), Slug: slug, Description: in.Description}
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.UpdateAttribute(ctx, a); err != nil {
			return err
		}
		if err := tx.DeleteAttributeValues(ctx, removed); err != nil {
			return err
		}
		for i, vin := range in.Values {
			v := valueFromInput(id, i, vin)
			if vin.ID != 0 {
				if err := tx.UpdateAttributeValue(ctx, &v); err != nil {
					return err
				}
				continue
			}
			if err := tx.CreateAttributeValue(ctx, &v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// renamed values show up in cached variant combinations
	s.invalidateUsers(ctx, kept)
	log.Info().Int("attribute_id", id).Int("removed_values", len(removed)).Msg("attribute updated")
	return s.store.GetAttribute(ctx, id)
}

// Delete removes an attribute and its values. Variants lose the deleted
// values from their combinations but are kept; the delete is refused with
// ErrDuplicateCombination when that would leave two variants of one
// product with the same combination.
func (s *AttributeService) Delete(ctx context.Context, id int) error {
	var products []int
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		a, err := tx.GetAttribute(ctx, id)
		if err != nil {
			return err
		}
		drop := make(map[int]bool, len(a.Values))
		ids := make([]int, 0, len(a.Values))
		for _, v := range a.Values {
			drop[v.ID] = true
			ids = append(ids, v.ID)
		}

		if products, err = tx.ProductsUsingValues(ctx, ids); err != nil {
			return err
		}
		for _, productID := range products {
			variants, err := tx.ListVariants(ctx, productID)
			if err != nil {
				return err
			}
			seen := make(map[variation.Key]int, len(variants))
			for _, v := range variants {
				key := variation.Without(v.Combination, drop)
				if other, dup := seen[key]; dup {
					return fmt.Errorf("%w: deleting attribute %q would merge variants %d and %d of product %d",
						apperr.ErrDuplicateCombination, a.Name, other, v.ID, productID)
				}
				seen[key] = v.ID
			}
		}
		return tx.DeleteAttribute(ctx, id)
	})
	if err != nil {
		return err
	}
	if s.cache != nil && len(products) > 0 {
		if err := s.cache.Invalidate(ctx, products...); err != nil {
			log.Warn().Err(err).Ints("product_ids", products).Msg("product cache invalidation failed")
		}
	}
	log.Info().Int("attribute_id", id).Ints("affected_products", products).Msg("attribute deleted")
	return nil
}

func (s *AttributeService) validate(ctx context.Context, in *AttributeInput, id int, current []models.AttributeValue) (string, error) {
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

	if len(in.Values) == 0 {
		verr.Add("values", "at least one value is required")
	}
	owned := make(map[int]bool, len(current))
	for _, v := range current {
		owned[v.ID] = true
	}
	seenID := make(map[int]bool, len(in.Values))
	seenValue := make(map[string]int, len(in.Values))
	for i, v := range in.Values {
		field := fmt.Sprintf("values[%d]", i)
		value := strings.TrimSpace(v.Value)
		if value == "" {
			verr.Add(field+".value", "is required")
		} else if j, dup := seenValue[strings.ToLower(value)]; dup {
			verr.Add(field+".value", fmt.Sprintf("duplicates values[%d]", j))
		} else {
			seenValue[strings.ToLower(value)] = i
		}

		if v.ID == 0 {
			continue
		}
		switch {
		case !owned[v.ID]:
			verr.Add(field+".id", fmt.Sprintf("value %d does not belong to this attribute", v.ID))
		case seenID[v.ID]:
			verr.Add(field+".id", fmt.Sprintf("value %d is listed twice", v.ID))
		}
		seenID[v.ID] = true
	}
	if err := verr.OrNil(); err != nil {
		return "", err
	}

	taken, err := s.store.AttributeSlugTaken(ctx, slug, id)
	if err != nil {
		return "", err
	}
	if taken {
		return "", apperr.Field(apperr.ErrDuplicateSlug, "slug", fmt.Sprintf("slug %q is already taken", slug))
	}
	return slug, nil
}

func (s *AttributeService) invalidateUsers(ctx context.Context, valueIDs []int) {
	if s.cache == nil || len(valueIDs) == 0 {
		return
	}
	products, err := s.store.ProductsUsingValues(ctx, valueIDs)
	if err == nil {
		err = s.cache.Invalidate(ctx, products...)
	}
	if err != nil {
		log.Warn().Err(err).Msg("product cache invalidation failed")
	}
}

func valueFromInput(attributeID, position int, in AttributeValueInput) models.AttributeValue {
	value := strings.TrimSpace(in.Value)
	return models.AttributeValue{
		ID:          in.ID,
		AttributeID: attributeID,
		Value:       value,
		Slug:        utils.ResolveSlug(in.Slug, value),
		Position:    position,
	}
}
