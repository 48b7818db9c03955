package utils

import (
	"strings"

	"github.com/gosimple/slug"
)

// Slugify derives a lowercase, hyphen-separated ASCII slug from a display
// name. It does not resolve collisions; callers check uniqueness.
func Slugify(name string) string {
	return slug.Make(strings.TrimSpace(name))
}

// ResolveSlug returns explicit normalized when given, else a slug derived from name.
func ResolveSlug(explicit, name string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return Slugify(s)
	}
	return Slugify(name)
}
