// Package variation holds the pure variant algorithms shared by the product
// service and the draft-generation endpoint: Cartesian combinations,
// combination keys, reconcile plans and draft helpers. Nothing here touches
// storage.
package variation

import (
	"fmt"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
	"github.com/GTDGit/gtd_catalog/internal/models"
)

// SelectedAttribute is an attribute with the values chosen for generation.
type SelectedAttribute struct {
	AttributeID int
	Name        string
	Values      []SelectedValue
}

// SelectedValue is one chosen attribute value.
type SelectedValue struct {
	ID    int
	Value string
}

// Combinations returns the Cartesian product of the selected values. Each
// combination lists one item per attribute in input order; the last
// attribute varies fastest.
func Combinations(attrs []SelectedAttribute) ([][]models.CombinationItem, error) {
	if len(attrs) == 0 {
		return nil, fmt.Errorf("%w: no attribute selected", apperr.ErrEmptySelection)
	}

	total := 1
	for _, a := range attrs {
		if len(a.Values) == 0 {
			return nil, fmt.Errorf("%w: attribute %q has no selected values", apperr.ErrEmptySelection, a.Name)
		}
		total *= len(a.Values)
	}

	out := make([][]models.CombinationItem, 0, total)
	idx := make([]int, len(attrs))
	for {
		combo := make([]models.CombinationItem, len(attrs))
		for i, a := range attrs {
			v := a.Values[idx[i]]
			combo[i] = models.CombinationItem{
				AttributeID:   a.AttributeID,
				AttributeName: a.Name,
				ValueID:       v.ID,
				Value:         v.Value,
			}
		}
		out = append(out, combo)

		// odometer step
		i := len(attrs) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(attrs[i].Values) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return out, nil
		}
	}
}
