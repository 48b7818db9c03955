package variation

import (
	"sort"
	"strconv"
	"strings"

	"github.com/GTDGit/gtd_catalog/internal/models"
)

// Pair identifies one attribute value inside a combination.
type Pair struct {
	AttributeID int
	ValueID     int
}

// Key is the canonical encoding of a combination: pairs sorted by
// (attribute, value), duplicates dropped, joined as "a:v|a:v".
type Key string

// KeyOf computes the key of pairs. Input order does not matter.
func KeyOf(pairs []Pair) Key {
	sorted := append([]Pair(nil), pairs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].AttributeID != sorted[j].AttributeID {
			return sorted[i].AttributeID < sorted[j].AttributeID
		}
		return sorted[i].ValueID < sorted[j].ValueID
	})

	var b strings.Builder
	for i, p := range sorted {
		if i > 0 && p == sorted[i-1] {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.Itoa(p.AttributeID))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(p.ValueID))
	}
	return Key(b.String())
}

// KeyOfItems computes the key of a combination.
func KeyOfItems(items []models.CombinationItem) Key {
	return KeyOf(PairsOf(items))
}

// PairsOf strips display names from a combination.
func PairsOf(items []models.CombinationItem) []Pair {
	pairs := make([]Pair, 0, len(items))
	for _, it := range items {
		pairs = append(pairs, Pair{AttributeID: it.AttributeID, ValueID: it.ValueID})
	}
	return pairs
}

// Without returns the key of items after dropping the given value ids.
func Without(items []models.CombinationItem, valueIDs map[int]bool) Key {
	kept := make([]Pair, 0, len(items))
	for _, it := range items {
		if valueIDs[it.ValueID] {
			continue
		}
		kept = append(kept, Pair{AttributeID: it.AttributeID, ValueID: it.ValueID})
	}
	return KeyOf(kept)
}
