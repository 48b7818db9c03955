package models

import (
	"fmt"
)

// Upload is raw file content submitted with a request.
type Upload struct {
	Filename string
	Data     []byte
}

// ImageKind discriminates ImageRef.
type ImageKind int

const (
	ImageUnset ImageKind = iota
	ImageExisting
	ImageUpload
)

// ImageRef says what a request wants for an image slot: nothing, a path
// already in the blob store, or new bytes to store.
type ImageRef struct {
	kind   ImageKind
	path   string
	upload Upload
}

// NoImage returns the Unset ref.
func NoImage() ImageRef { return ImageRef{} }

// ExistingImage refers to a stored blob path.
func ExistingImage(path string) ImageRef {
	return ImageRef{kind: ImageExisting, path: path}
}

// NewImage carries bytes to upload.
func NewImage(u Upload) ImageRef {
	return ImageRef{kind: ImageUpload, upload: u}
}

func (r ImageRef) Kind() ImageKind { return r.kind }
func (r ImageRef) Path() string    { return r.path }
func (r ImageRef) Upload() Upload  { return r.upload }

// VariantRef identifies a requested variant: either a persisted one or a new
// one known only by a client-side temporary key.
type VariantRef struct {
	id      int
	tempKey string
}

// NewVariant refers to a variant that does not exist yet.
func NewVariant(tempKey string) VariantRef { return VariantRef{tempKey: tempKey} }

// ExistingVariant refers to a persisted variant.
func ExistingVariant(id int) VariantRef { return VariantRef{id: id} }

// IsNew reports whether the ref points at a variant still to be created.
func (r VariantRef) IsNew() bool { return r.id == 0 }

// ID returns the persisted id and true, or 0 and false for new variants.
func (r VariantRef) ID() (int, bool) { return r.id, r.id != 0 }

// TempKey returns the client key of a new variant.
func (r VariantRef) TempKey() string { return r.tempKey }

func (r VariantRef) String() string {
	if r.IsNew() {
		return fmt.Sprintf("new(%s)", r.tempKey)
	}
	return fmt.Sprintf("variant(%d)", r.id)
}
