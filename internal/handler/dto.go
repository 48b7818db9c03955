package handler

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/service"
	"github.com/GTDGit/gtd_catalog/internal/variation"
)

// uploadDTO carries file content as base64, optionally as a data URL.
type uploadDTO struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
}

func (u uploadDTO) decode(verr *apperr.ValidationError, field string) models.Upload {
	raw := u.Data
	if i := strings.Index(raw, ";base64,"); strings.HasPrefix(raw, "data:") && i >= 0 {
		raw = raw[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		verr.Add(field, "data is not valid base64")
	}
	return models.Upload{Filename: u.Filename, Data: data}
}

// imageDTO is {"path": "..."} for a stored image or {"upload": {...}} for a
// new one. A missing image field leaves the image unchanged.
type imageDTO struct {
	Path   string     `json:"path"`
	Upload *uploadDTO `json:"upload"`
}

func (d *imageDTO) ref(verr *apperr.ValidationError, field string) models.ImageRef {
	switch {
	case d == nil:
		return models.NoImage()
	case d.Upload != nil:
		return models.NewImage(d.Upload.decode(verr, field+".upload"))
	case strings.TrimSpace(d.Path) != "":
		return models.ExistingImage(strings.TrimSpace(d.Path))
	default:
		return models.NoImage()
	}
}

type productRequest struct {
	CategoryID          int                 `json:"categoryId"`
	Name                string              `json:"name"`
	Slug                string              `json:"slug"`
	Description         *string             `json:"description"`
	ShortDescription    *string             `json:"shortDescription"`
	IsVariable          bool                `json:"isVariable"`
	IsFeatured          bool                `json:"isFeatured"`
	Price               *decimal.Decimal    `json:"price"`
	SalePrice           decimal.NullDecimal `json:"salePrice"`
	StockQuantity       *int                `json:"stockQuantity"`
	SKU                 *string             `json:"sku"`
	FeaturedImage       *imageDTO           `json:"featuredImage"`
	GalleryImages       []uploadDTO         `json:"galleryImages"`
	RemoveGalleryImages []string            `json:"removeGalleryImages"`
	Variations          []variationRequest  `json:"variations"`
}

// variationRequest identifies an existing variant by id; without an id it is
// created, and tempKey only labels it in error messages.
type variationRequest struct {
	ID            int                  `json:"id"`
	TempKey       string               `json:"tempKey"`
	Combination   []combinationRequest `json:"combination"`
	Price         decimal.Decimal      `json:"price"`
	SalePrice     decimal.NullDecimal  `json:"salePrice"`
	StockQuantity int                  `json:"stockQuantity"`
	SKU           string               `json:"sku"`
	Image         *imageDTO            `json:"image"`
}

type combinationRequest struct {
	AttributeID int `json:"attributeId"`
	ValueID     int `json:"valueId"`
}

func (r *productRequest) toInput() (*service.ProductInput, error) {
	verr := &apperr.ValidationError{}
	in := &service.ProductInput{
		CategoryID:         r.CategoryID,
		Name:               r.Name,
		Slug:               r.Slug,
		Description:        r.Description,
		ShortDescription:   r.ShortDescription,
		IsVariable:         r.IsVariable,
		IsFeatured:         r.IsFeatured,
		Price:              r.Price,
		SalePrice:          r.SalePrice,
		StockQuantity:      r.StockQuantity,
		SKU:                r.SKU,
		FeaturedImage:      r.FeaturedImage.ref(verr, "featuredImage"),
		RemoveGalleryPaths: r.RemoveGalleryImages,
	}
	for i, u := range r.GalleryImages {
		in.GalleryUploads = append(in.GalleryUploads, u.decode(verr, fmt.Sprintf("galleryImages[%d]", i)))
	}
	if r.Variations != nil {
		in.Variations = make([]service.VariationInput, 0, len(r.Variations))
	}
	for i, v := range r.Variations {
		ref := models.ExistingVariant(v.ID)
		if v.ID == 0 {
			key := v.TempKey
			if key == "" {
				key = fmt.Sprintf("new-%d", i+1)
			}
			ref = models.NewVariant(key)
		}
		combo := make([]variation.Pair, 0, len(v.Combination))
		for _, c := range v.Combination {
			combo = append(combo, variation.Pair{AttributeID: c.AttributeID, ValueID: c.ValueID})
		}
		in.Variations = append(in.Variations, service.VariationInput{
			Ref:           ref,
			Combination:   combo,
			Price:         v.Price,
			SalePrice:     v.SalePrice,
			StockQuantity: v.StockQuantity,
			SKU:           v.SKU,
			Image:         v.Image.ref(verr, fmt.Sprintf("variations[%d].image", i)),
		})
	}
	return in, verr.OrNil()
}

type generateRequest struct {
	ProductID     int                 `json:"productId"`
	ValueIDs      []int               `json:"valueIds"`
	BaseSKU       string              `json:"baseSku"`
	Price         decimal.Decimal     `json:"price"`
	SalePrice     decimal.NullDecimal `json:"salePrice"`
	StockQuantity int                 `json:"stockQuantity"`
	Bulk          *bulkEditRequest    `json:"bulk"`
}

type bulkEditRequest struct {
	Price         *decimal.Decimal `json:"price"`
	SalePrice     *decimal.Decimal `json:"salePrice"`
	StockQuantity *int             `json:"stockQuantity"`
}

func (r *generateRequest) toInput() *service.GenerateInput {
	in := &service.GenerateInput{
		ProductID: r.ProductID,
		ValueIDs:  r.ValueIDs,
		Defaults: variation.DraftDefaults{
			BaseSKU:       r.BaseSKU,
			Price:         r.Price,
			SalePrice:     r.SalePrice,
			StockQuantity: r.StockQuantity,
		},
	}
	if r.Bulk != nil {
		in.Bulk = variation.BulkEdit{Price: r.Bulk.Price, SalePrice: r.Bulk.SalePrice, StockQuantity: r.Bulk.StockQuantity}
	}
	return in
}

// draftResponse renders a variation.Spec in the shape variationRequest
// accepts, so drafts can be edited and posted back.
type draftResponse struct {
	ID            int                      `json:"id,omitempty"`
	TempKey       string                   `json:"tempKey,omitempty"`
	Combination   []models.CombinationItem `json:"combination"`
	Price         decimal.Decimal          `json:"price"`
	SalePrice     decimal.NullDecimal      `json:"salePrice"`
	StockQuantity int                      `json:"stockQuantity"`
	SKU           string                   `json:"sku"`
	Image         *imageDTO                `json:"image,omitempty"`
}

func newDraftResponse(s variation.Spec) draftResponse {
	d := draftResponse{
		Combination:   s.Combination,
		Price:         s.Price,
		SalePrice:     s.SalePrice,
		StockQuantity: s.StockQuantity,
		SKU:           s.SKU,
	}
	if id, ok := s.Ref.ID(); ok {
		d.ID = id
	} else {
		d.TempKey = s.Ref.TempKey()
	}
	if s.Image.Kind() == models.ImageExisting {
		d.Image = &imageDTO{Path: s.Image.Path()}
	}
	return d
}

type attributeRequest struct {
	Name        string                  `json:"name"`
	Slug        string                  `json:"slug"`
	Description *string                 `json:"description"`
	Values      []attributeValueRequest `json:"values"`
}

type attributeValueRequest struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
	Slug  string `json:"slug"`
}

func (r *attributeRequest) toInput() *service.AttributeInput {
	in := &service.AttributeInput{Name: r.Name, Slug: r.Slug, Description: r.Description}
	for _, v := range r.Values {
		in.Values = append(in.Values, service.AttributeValueInput{ID: v.ID, Value: v.Value, Slug: v.Slug})
	}
	return in
}

type categoryRequest struct {
	ParentID    *int      `json:"parentId"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	SortOrder   int       `json:"sortOrder"`
	Image       *imageDTO `json:"image"`
}

func (r *categoryRequest) toInput() (*service.CategoryInput, error) {
	verr := &apperr.ValidationError{}
	in := &service.CategoryInput{
		ParentID:    r.ParentID,
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		SortOrder:   r.SortOrder,
		Image:       r.Image.ref(verr, "image"),
	}
	return in, verr.OrNil()
}
