package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_catalog/internal/metrics"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/storage"
	"github.com/GTDGit/gtd_catalog/internal/variation"
)

// VariantReconciler applies a variation.ReconcilePlan to storage.
type VariantReconciler struct{}

// NewVariantReconciler creates a new VariantReconciler.
func NewVariantReconciler() *VariantReconciler {
	return &VariantReconciler{}
}

// ReconcileResult summarizes an applied plan.
type ReconcileResult struct {
	Created  []models.ProductVariant
	Updated  []models.ProductVariant
	Deleted  []int
	Obsolete []string
}

// StoreImages uploads every new variant image of the plan through batch and
// rewrites those refs to the stored path. It must run before the
// transaction so a failed upload never leaves rows behind.
func (r *VariantReconciler) StoreImages(ctx context.Context, plan *variation.ReconcilePlan, batch *uploadBatch) error {
	for i := range plan.Creates {
		img := plan.Creates[i].Spec.Image
		if img.Kind() != models.ImageUpload {
			continue
		}
		p, err := batch.put(ctx, img.Upload(), storage.FolderVariants)
		if err != nil {
			return err
		}
		plan.Creates[i].Spec.Image = models.ExistingImage(p)
	}
	for i := range plan.Updates {
		img := plan.Updates[i].Spec.Image
		if img.Kind() != models.ImageUpload {
			continue
		}
		p, err := batch.put(ctx, img.Upload(), storage.FolderVariants)
		if err != nil {
			return err
		}
		plan.Updates[i].Spec.Image = models.ExistingImage(p)
	}
	return nil
}

// Apply writes the plan through tx: deletes first, then updates, then
// creates. Images must already be stored with StoreImages.
func (r *VariantReconciler) Apply(ctx context.Context, tx repository.VariantStore, productID int, plan *variation.ReconcilePlan) (*ReconcileResult, error) {
	res := &ReconcileResult{Obsolete: plan.ObsoleteImages()}

	if len(plan.Deletes) > 0 {
		ids := make([]int, 0, len(plan.Deletes))
		for _, v := range plan.Deletes {
			ids = append(ids, v.ID)
		}
		if err := tx.DeleteVariants(ctx, ids); err != nil {
			return nil, fmt.Errorf("failed to delete variants: %w", err)
		}
		res.Deleted = ids
	}

	for _, u := range plan.Updates {
		v := toVariant(productID, u.Spec)
		v.ID = u.Current.ID
		v.CreatedAt = u.Current.CreatedAt
		v.ImagePath = u.Current.ImagePath
		if u.ReplaceImage {
			p := u.Spec.Image.Path()
			v.ImagePath = &p
		}
		if err := tx.UpdateVariant(ctx, &v); err != nil {
			return nil, fmt.Errorf("failed to update variant %d: %w", v.ID, err)
		}
		if err := tx.DetachVariantValues(ctx, v.ID, u.RemoveValueIDs); err != nil {
			return nil, fmt.Errorf("failed to detach values of variant %d: %w", v.ID, err)
		}
		if err := tx.AttachVariantValues(ctx, v.ID, u.AddValueIDs); err != nil {
			return nil, fmt.Errorf("failed to attach values to variant %d: %w", v.ID, err)
		}
		res.Updated = append(res.Updated, v)
	}

	for _, c := range plan.Creates {
		v := toVariant(productID, c.Spec)
		if c.Spec.Image.Kind() == models.ImageExisting {
			p := c.Spec.Image.Path()
			v.ImagePath = &p
		}
		if err := tx.CreateVariant(ctx, &v); err != nil {
			return nil, fmt.Errorf("failed to create variant %s: %w", c.Spec.Ref, err)
		}
		if err := tx.AttachVariantValues(ctx, v.ID, v.ValueIDs()); err != nil {
			return nil, fmt.Errorf("failed to attach values to variant %d: %w", v.ID, err)
		}
		res.Created = append(res.Created, v)
	}

	log.Debug().
		Int("product_id", productID).
		Str("mode", plan.Mode.String()).
		Int("created", len(res.Created)).
		Int("updated", len(res.Updated)).
		Int("deleted", len(res.Deleted)).
		Msg("variants reconciled")
	return res, nil
}

// Record counts the applied operations.
func (res *ReconcileResult) Record() {
	metrics.VariantOperations.WithLabelValues("create").Add(float64(len(res.Created)))
	metrics.VariantOperations.WithLabelValues("update").Add(float64(len(res.Updated)))
	metrics.VariantOperations.WithLabelValues("delete").Add(float64(len(res.Deleted)))
}

func toVariant(productID int, s variation.Spec) models.ProductVariant {
	return models.ProductVariant{
		ProductID:     productID,
		Price:         s.Price,
		SalePrice:     s.SalePrice,
		StockQuantity: s.StockQuantity,
		SKU:           strings.TrimSpace(s.SKU),
		Combination:   s.Combination,
	}
}
