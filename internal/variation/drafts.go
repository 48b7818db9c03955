package variation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/models"
)

const defaultSKUPrefix = "SKU"

// DraftDefaults seeds generated drafts, usually from the product form.
type DraftDefaults struct {
	BaseSKU       string
	Price         decimal.Decimal
	SalePrice     decimal.NullDecimal
	StockQuantity int
}

// Drafts turns combinations into new variant specs with default fields.
// Temp keys are "new-1", "new-2", ... in combination order.
func Drafts(combos [][]models.CombinationItem, def DraftDefaults) []Spec {
	out := make([]Spec, 0, len(combos))
	for i, combo := range combos {
		out = append(out, Spec{
			Ref:           models.NewVariant(fmt.Sprintf("new-%d", i+1)),
			Combination:   combo,
			Price:         def.Price,
			SalePrice:     def.SalePrice,
			StockQuantity: def.StockQuantity,
			SKU:           DraftSKU(def.BaseSKU, combo),
		})
	}
	return out
}

// DraftSKU builds "<base>-<RED>-<SMA>" from the first three letters of each value.
func DraftSKU(base string, combo []models.CombinationItem) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = defaultSKUPrefix
	}
	parts := make([]string, 0, len(combo)+1)
	parts = append(parts, base)
	for _, c := range combo {
		r := []rune(strings.TrimSpace(c.Value))
		if len(r) > 3 {
			r = r[:3]
		}
		parts = append(parts, strings.ToUpper(string(r)))
	}
	return strings.Join(parts, "-")
}

// Merge appends the drafts whose combination is not already present in
// current. It returns the merged list and how many drafts were skipped.
func Merge(current, drafts []Spec) ([]Spec, int) {
	keys := make(map[Key]bool, len(current))
	for _, s := range current {
		keys[KeyOfItems(s.Combination)] = true
	}

	merged := append([]Spec(nil), current...)
	skipped := 0
	for _, d := range drafts {
		k := KeyOfItems(d.Combination)
		if keys[k] {
			skipped++
			continue
		}
		keys[k] = true
		merged = append(merged, d)
	}
	return merged, skipped
}

// BulkEdit holds values applied to every spec. Nil fields are left alone.
type BulkEdit struct {
	Price         *decimal.Decimal
	SalePrice     *decimal.Decimal
	StockQuantity *int
}

// Apply returns a copy of specs with the bulk values set.
func (b BulkEdit) Apply(specs []Spec) []Spec {
	out := make([]Spec, len(specs))
	for i, s := range specs {
		if b.Price != nil {
			s.Price = *b.Price
		}
		if b.SalePrice != nil {
			s.SalePrice = decimal.NewNullDecimal(*b.SalePrice)
		}
		if b.StockQuantity != nil {
			s.StockQuantity = *b.StockQuantity
		}
		out[i] = s
	}
	return out
}

// SpecsFromVariants converts persisted variants into specs that keep them as they are.
func SpecsFromVariants(variants []models.ProductVariant) []Spec {
	out := make([]Spec, 0, len(variants))
	for _, v := range variants {
		img := models.NoImage()
		if v.ImagePath != nil {
			img = models.ExistingImage(*v.ImagePath)
		}
		out = append(out, Spec{
			Ref:           models.ExistingVariant(v.ID),
			Combination:   v.Combination,
			Price:         v.Price,
			SalePrice:     v.SalePrice,
			StockQuantity: v.StockQuantity,
			SKU:           v.SKU,
			Image:         img,
		})
	}
	return out
}
