package variation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
	"github.com/GTDGit/gtd_catalog/internal/models"
)

const maxSKULength = 100

// Mode selects how requested specs are reconciled against persisted variants.
type Mode int

const (
	// ModeReconcile matches specs to existing variants by id; unmatched
	// existing variants are deleted.
	ModeReconcile Mode = iota
	// ModeCreateAll is used for a brand-new product: every spec must be new.
	ModeCreateAll
	// ModeDeleteAll ignores specs and deletes every existing variant.
	ModeDeleteAll
)

func (m Mode) String() string {
	switch m {
	case ModeCreateAll:
		return "create_all"
	case ModeDeleteAll:
		return "delete_all"
	default:
		return "reconcile"
	}
}

// Spec is one requested variant.
type Spec struct {
	Ref           models.VariantRef
	Combination   []models.CombinationItem
	Price         decimal.Decimal
	SalePrice     decimal.NullDecimal
	StockQuantity int
	SKU           string
	Image         models.ImageRef
}

// Create is a variant to insert.
type Create struct {
	Spec Spec
	Key  Key
}

// Update is an existing variant to rewrite. AddValueIDs and RemoveValueIDs are
// the join-row delta; both are empty when the combination is unchanged.
type Update struct {
	Spec           Spec
	Current        models.ProductVariant
	Key            Key
	AddValueIDs    []int
	RemoveValueIDs []int
	ReplaceImage   bool
}

// ReconcilePlan is the full set of mutations for one product. It is computed
// and validated before anything is written.
type ReconcilePlan struct {
	Mode    Mode
	Creates []Create
	Updates []Update
	Deletes []models.ProductVariant
}

// Empty reports whether applying the plan would change nothing.
func (p *ReconcilePlan) Empty() bool {
	return len(p.Creates) == 0 && len(p.Updates) == 0 && len(p.Deletes) == 0
}

// Plan diffs specs against the existing variants of one product.
//
// It fails with a *apperr.ValidationError for malformed specs or ids that do
// not belong to the product, with apperr.ErrDuplicateSKU when two specs share
// a SKU and with apperr.ErrDuplicateCombination when two surviving variants
// would have the same combination.
func Plan(existing []models.ProductVariant, specs []Spec, mode Mode) (*ReconcilePlan, error) {
	plan := &ReconcilePlan{Mode: mode}
	if mode == ModeDeleteAll {
		plan.Deletes = append(plan.Deletes, existing...)
		return plan, nil
	}

	byID := make(map[int]models.ProductVariant, len(existing))
	for _, v := range existing {
		byID[v.ID] = v
	}

	verr := &apperr.ValidationError{}
	seen := make(map[int]int, len(specs))
	for i, s := range specs {
		field := fmt.Sprintf("variations[%d]", i)
		verr.Merge(field, ValidateSpec(s))

		id, ok := s.Ref.ID()
		if !ok {
			continue
		}
		switch {
		case mode == ModeCreateAll:
			verr.Add(field+".id", "a new product cannot reference existing variants")
		case byID[id].ID == 0:
			verr.Add(field+".id", fmt.Sprintf("variant %d does not belong to this product", id))
		default:
			if j, dup := seen[id]; dup {
				verr.Add(field+".id", fmt.Sprintf("variant %d is already listed at variations[%d]", id, j))
			}
		}
		seen[id] = i
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	keys := make(map[Key]int, len(specs))
	skus := make(map[string]int, len(specs))
	for i, s := range specs {
		key := KeyOfItems(s.Combination)
		if j, dup := keys[key]; dup {
			return nil, fmt.Errorf("%w: variations[%d] and variations[%d] both resolve to %s",
				apperr.ErrDuplicateCombination, j, i, describe(s.Combination))
		}
		keys[key] = i

		sku := strings.TrimSpace(s.SKU)
		if j, dup := skus[sku]; dup {
			return nil, apperr.Field(apperr.ErrDuplicateSKU, fmt.Sprintf("variations[%d].sku", i),
				fmt.Sprintf("sku %q is already used by variations[%d]", sku, j))
		}
		skus[sku] = i

		id, ok := s.Ref.ID()
		if !ok {
			plan.Creates = append(plan.Creates, Create{Spec: s, Key: key})
			continue
		}
		cur := byID[id]
		add, remove := diffValueIDs(cur.ValueIDs(), valueIDsOf(s.Combination))
		plan.Updates = append(plan.Updates, Update{
			Spec:           s,
			Current:        cur,
			Key:            key,
			AddValueIDs:    add,
			RemoveValueIDs: remove,
			ReplaceImage:   replacesImage(cur.ImagePath, s.Image),
		})
	}

	for _, v := range existing {
		if _, kept := seen[v.ID]; !kept {
			plan.Deletes = append(plan.Deletes, v)
		}
	}
	return plan, nil
}

// ValidateSpec checks the scalar fields and combination shape of one spec.
func ValidateSpec(s Spec) *apperr.ValidationError {
	verr := &apperr.ValidationError{}

	if len(s.Combination) == 0 {
		verr.Add("combination", "must contain at least one attribute value")
	}
	valueOf := make(map[int]int, len(s.Combination))
	for _, it := range s.Combination {
		if it.AttributeID <= 0 || it.ValueID <= 0 {
			verr.Add("combination", "attribute and value ids are required")
			continue
		}
		if prev, ok := valueOf[it.AttributeID]; ok && prev != it.ValueID {
			verr.Add("combination", fmt.Sprintf("attribute %d has more than one value", it.AttributeID))
		}
		valueOf[it.AttributeID] = it.ValueID
	}

	if s.Price.IsNegative() {
		verr.Add("price", "must not be negative")
	}
	if s.SalePrice.Valid {
		if s.SalePrice.Decimal.IsNegative() {
			verr.Add("salePrice", "must not be negative")
		} else if !s.SalePrice.Decimal.LessThan(s.Price) {
			verr.Add("salePrice", "must be lower than price")
		}
	}
	if s.StockQuantity < 0 {
		verr.Add("stockQuantity", "must not be negative")
	}

	sku := strings.TrimSpace(s.SKU)
	switch {
	case sku == "":
		verr.Add("sku", "is required")
	case len(sku) > maxSKULength:
		verr.Add("sku", fmt.Sprintf("must be at most %d characters", maxSKULength))
	}

	if s.Image.Kind() == models.ImageExisting && strings.TrimSpace(s.Image.Path()) == "" {
		verr.Add("image", "path must not be empty")
	}
	if s.Image.Kind() == models.ImageUpload && len(s.Image.Upload().Data) == 0 {
		verr.Add("image", "upload is empty")
	}
	return verr
}

// ObsoleteImages lists image paths that no surviving variant references once
// the plan is applied.
func (p *ReconcilePlan) ObsoleteImages() []string {
	surviving := make(map[string]bool)
	for _, c := range p.Creates {
		if c.Spec.Image.Kind() == models.ImageExisting {
			surviving[c.Spec.Image.Path()] = true
		}
	}
	for _, u := range p.Updates {
		switch {
		case !u.ReplaceImage && u.Current.ImagePath != nil:
			surviving[*u.Current.ImagePath] = true
		case u.ReplaceImage && u.Spec.Image.Kind() == models.ImageExisting:
			surviving[u.Spec.Image.Path()] = true
		}
	}

	var out []string
	seen := make(map[string]bool)
	collect := func(path *string) {
		if path == nil || *path == "" || surviving[*path] || seen[*path] {
			return
		}
		seen[*path] = true
		out = append(out, *path)
	}
	for _, v := range p.Deletes {
		collect(v.ImagePath)
	}
	for _, u := range p.Updates {
		if u.ReplaceImage {
			collect(u.Current.ImagePath)
		}
	}
	return out
}

func replacesImage(current *string, ref models.ImageRef) bool {
	switch ref.Kind() {
	case models.ImageUpload:
		return true
	case models.ImageExisting:
		return current == nil || *current != ref.Path()
	default:
		return false
	}
}

func valueIDsOf(items []models.CombinationItem) []int {
	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ValueID)
	}
	return ids
}

// diffValueIDs returns the ids to add and remove to turn current into target.
func diffValueIDs(current, target []int) (add, remove []int) {
	have := make(map[int]bool, len(current))
	for _, id := range current {
		have[id] = true
	}
	want := make(map[int]bool, len(target))
	for _, id := range target {
		if !want[id] && !have[id] {
			add = append(add, id)
		}
		want[id] = true
	}
	for _, id := range current {
		if !want[id] {
			remove = append(remove, id)
		}
	}
	return add, remove
}

func describe(items []models.CombinationItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.AttributeName != "" && it.Value != "" {
			parts = append(parts, it.AttributeName+"="+it.Value)
			continue
		}
		parts = append(parts, fmt.Sprintf("%d=%d", it.AttributeID, it.ValueID))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
