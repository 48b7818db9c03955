package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
	"github.com/GTDGit/gtd_catalog/internal/metrics"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/storage"
	"github.com/GTDGit/gtd_catalog/internal/utils"
	"github.com/GTDGit/gtd_catalog/internal/variation"
)

const (
	maxNameLength = 255
	maxSKULength  = 100
)

// ProductCache is the read cache of product details. A nil ProductCache
// disables caching.
type ProductCache interface {
	Get(ctx context.Context, id int) (*models.Product, error)
	Set(ctx context.Context, p *models.Product) error
	Invalidate(ctx context.Context, ids ...int) error
}

// ProductService owns products and their variants.
type ProductService struct {
	store        repository.Store
	blobs        storage.BlobStore
	cache        ProductCache
	reconciler   *VariantReconciler
	maxImageSize int64
}

// NewProductService creates a new ProductService. cache may be nil.
func NewProductService(store repository.Store, blobs storage.BlobStore, cache ProductCache, maxImageSize int64) *ProductService {
	if maxImageSize <= 0 {
		maxImageSize = DefaultMaxImageSize
	}
	return &ProductService{
		store:        store,
		blobs:        blobs,
		cache:        cache,
		reconciler:   NewVariantReconciler(),
		maxImageSize: maxImageSize,
	}
}

// ProductInput is the payload of Create and Update.
//
// Price, StockQuantity and SKU are required only for simple products. For
// variable products they are ignored and stored zeroed. On Update a nil
// Variations leaves the variants untouched; a non-nil list is the complete
// target list and variants it does not reference are deleted.
type ProductInput struct {
	CategoryID       int
	Name             string
	Slug             string
	Description      *string
	ShortDescription *string
	IsVariable       bool
	IsFeatured       bool

	Price         *decimal.Decimal
	SalePrice     decimal.NullDecimal
	StockQuantity *int
	SKU           *string

	FeaturedImage      models.ImageRef
	GalleryUploads     []models.Upload
	RemoveGalleryPaths []string

	Variations []VariationInput
}

// VariationInput is one requested variant.
type VariationInput struct {
	Ref           models.VariantRef
	Combination   []variation.Pair
	Price         decimal.Decimal
	SalePrice     decimal.NullDecimal
	StockQuantity int
	SKU           string
	Image         models.ImageRef
}

// ProductDetail is a product with derived prices and public image URLs.
type ProductDetail struct {
	*models.Product
	FinalPrice       decimal.Decimal `json:"finalPrice"`
	IsOnSale         bool            `json:"isOnSale"`
	FeaturedImageURL string          `json:"featuredImageUrl,omitempty"`
	GalleryImageURLs []string        `json:"galleryImageUrls"`
	Variants         []VariantDetail `json:"variants,omitempty"`
}

// VariantDetail is a variant with derived prices and its image URL.
type VariantDetail struct {
	models.ProductVariant
	FinalPrice decimal.Decimal `json:"finalPrice"`
	IsOnSale   bool            `json:"isOnSale"`
	ImageURL   string          `json:"imageUrl,omitempty"`
}

// ProductList is one page of products.
type ProductList struct {
	Products   []ProductDetail
	Page       int
	Limit      int
	TotalItems int
}

// Create stores a new product and, for variable products, all its variants.
func (s *ProductService) Create(ctx context.Context, in *ProductInput) (*ProductDetail, error) {
	slug, err := s.validate(ctx, in, 0)
	if err != nil {
		return nil, err
	}

	p := &models.Product{GalleryImagePaths: models.GalleryPaths{}}
	applyInput(p, in, slug)

	var specs []variation.Spec
	if in.IsVariable {
		if specs, err = s.resolveSpecs(ctx, in.Variations); err != nil {
			return nil, err
		}
	}
	plan, err := variation.Plan(nil, specs, variation.ModeCreateAll)
	if err != nil {
		return nil, err
	}
	if err := s.checkVariantSKUs(ctx, specs, 0); err != nil {
		return nil, err
	}
	if err := s.checkImages(ctx, in, nil, nil); err != nil {
		return nil, err
	}

	batch := newUploadBatch(s.blobs)
	res, err := s.commit(ctx, batch, plan, func(ctx context.Context) error {
		featured, err := batch.resolve(ctx, in.FeaturedImage, nil, storage.FolderProducts)
		if err != nil {
			return err
		}
		p.FeaturedImagePath = featured
		for _, u := range in.GalleryUploads {
			path, err := batch.put(ctx, u, storage.FolderGallery)
			if err != nil {
				return err
			}
			p.GalleryImagePaths = append(p.GalleryImagePaths, path)
		}
		return nil
	}, func(tx repository.Store) error {
		return tx.CreateProduct(ctx, p)
	}, func() int { return p.ID })
	if err != nil {
		return nil, err
	}

	log.Info().Int("product_id", p.ID).Str("slug", p.Slug).Int("variants", len(res.Created)).Msg("product created")
	return s.load(ctx, p.ID)
}

// Update rewrites a product. Replaced and removed images are deleted once
// the change is committed.
func (s *ProductService) Update(ctx context.Context, id int, in *ProductInput) (*ProductDetail, error) {
	current, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	slug, err := s.validate(ctx, in, id)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListVariants(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		specs []variation.Spec
		plan  *variation.ReconcilePlan
	)
	switch {
	case !in.IsVariable:
		plan, err = variation.Plan(existing, nil, variation.ModeDeleteAll)
	case in.Variations == nil:
		plan = &variation.ReconcilePlan{Mode: variation.ModeReconcile}
	default:
		if specs, err = s.resolveSpecs(ctx, in.Variations); err != nil {
			return nil, err
		}
		plan, err = variation.Plan(existing, specs, variation.ModeReconcile)
	}
	if err != nil {
		return nil, err
	}
	if err := s.checkVariantSKUs(ctx, specs, id); err != nil {
		return nil, err
	}
	if err := s.checkImages(ctx, in, current, existing); err != nil {
		return nil, err
	}

	p := *current
	applyInput(&p, in, slug)

	var obsolete []string
	batch := newUploadBatch(s.blobs)
	res, err := s.commit(ctx, batch, plan, func(ctx context.Context) error {
		featured, err := batch.resolve(ctx, in.FeaturedImage, current.FeaturedImagePath, storage.FolderProducts)
		if err != nil {
			return err
		}
		p.FeaturedImagePath = featured
		if old := current.FeaturedImagePath; old != nil && (p.FeaturedImagePath == nil || *p.FeaturedImagePath != *old) {
			obsolete = append(obsolete, *old)
		}

		gallery, removed := pruneGallery(current.GalleryImagePaths, in.RemoveGalleryPaths)
		obsolete = append(obsolete, removed...)
		for _, u := range in.GalleryUploads {
			path, err := batch.put(ctx, u, storage.FolderGallery)
			if err != nil {
				return err
			}
			gallery = append(gallery, path)
		}
		p.GalleryImagePaths = gallery
		return nil
	}, func(tx repository.Store) error {
		return tx.UpdateProduct(ctx, &p)
	}, func() int { return id })
	if err != nil {
		return nil, err
	}

	removeUnreferenced(ctx, s.store, s.blobs, append(obsolete, res.Obsolete...))
	s.invalidate(ctx, id)
	log.Info().
		Int("product_id", id).
		Int("created", len(res.Created)).
		Int("updated", len(res.Updated)).
		Int("deleted", len(res.Deleted)).
		Msg("product updated")
	return s.load(ctx, id)
}

// Delete soft-deletes a product, deletes its variants and removes every
// image it referenced.
func (s *ProductService) Delete(ctx context.Context, id int) error {
	current, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	existing, err := s.store.ListVariants(ctx, id)
	if err != nil {
		return err
	}
	plan, err := variation.Plan(existing, nil, variation.ModeDeleteAll)
	if err != nil {
		return err
	}

	res, err := s.commit(ctx, newUploadBatch(s.blobs), plan, nil, func(tx repository.Store) error {
		return tx.SoftDeleteProduct(ctx, id)
	}, func() int { return id })
	if err != nil {
		return err
	}

	images := append([]string(nil), current.GalleryImagePaths...)
	if current.FeaturedImagePath != nil {
		images = append(images, *current.FeaturedImagePath)
	}
	removeUnreferenced(ctx, s.store, s.blobs, append(images, res.Obsolete...))
	s.invalidate(ctx, id)
	log.Info().Int("product_id", id).Int("variants", len(res.Deleted)).Msg("product deleted")
	return nil
}

// Restore brings back a soft-deleted product. Its images and variants were
// removed on delete and are not restored.
func (s *ProductService) Restore(ctx context.Context, id int) (*ProductDetail, error) {
	if err := s.store.RestoreProduct(ctx, id); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)
	return s.load(ctx, id)
}

// Get returns a live product with its variants.
func (s *ProductService) Get(ctx context.Context, id int) (*ProductDetail, error) {
	if s.cache != nil {
		p, err := s.cache.Get(ctx, id)
		if err != nil {
			log.Warn().Err(err).Int("product_id", id).Msg("product cache read failed")
		}
		if p != nil {
			return s.detail(p), nil
		}
	}
	return s.load(ctx, id)
}

// List returns one page of products with derived prices. Variants are used
// for the price summary only and are not included.
func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) (*ProductList, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	products, total, err := s.store.ListProducts(ctx, f)
	if err != nil {
		return nil, err
	}

	var variableIDs []int
	for _, p := range products {
		if p.IsVariable {
			variableIDs = append(variableIDs, p.ID)
		}
	}
	prices, err := s.store.ListVariantPrices(ctx, variableIDs)
	if err != nil {
		return nil, err
	}

	out := &ProductList{Products: make([]ProductDetail, 0, len(products)), Page: f.Page, Limit: f.Limit, TotalItems: total}
	for i := range products {
		p := &products[i]
		p.Variants = prices[p.ID]
		d := s.detail(p)
		d.Variants = nil
		p.Variants = nil
		out.Products = append(out.Products, *d)
	}
	return out, nil
}

// GenerateInput selects attribute values for draft generation.
type GenerateInput struct {
	// ProductID, when set, merges the drafts into that product's variants.
	ProductID int
	ValueIDs  []int
	Defaults  variation.DraftDefaults
	Bulk      variation.BulkEdit
}

// GenerateResult is the draft variant list. Nothing is persisted.
type GenerateResult struct {
	Variations []variation.Spec
	Skipped    int
}

// GenerateVariations builds one draft per combination of the selected values.
func (s *ProductService) GenerateVariations(ctx context.Context, in *GenerateInput) (*GenerateResult, error) {
	if len(in.ValueIDs) == 0 {
		return nil, fmt.Errorf("%w: no attribute value selected", apperr.ErrEmptySelection)
	}
	items, err := s.store.ResolveValues(ctx, in.ValueIDs)
	if err != nil {
		return nil, err
	}
	found := make(map[int]bool, len(items))
	for _, it := range items {
		found[it.ValueID] = true
	}
	verr := &apperr.ValidationError{}
	for _, id := range in.ValueIDs {
		if !found[id] {
			verr.Add("valueIds", fmt.Sprintf("value %d does not exist", id))
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	combos, err := variation.Combinations(selectAttributes(items))
	if err != nil {
		return nil, err
	}
	drafts := variation.Drafts(combos, in.Defaults)

	res := &GenerateResult{Variations: drafts}
	if in.ProductID > 0 {
		if _, err := s.store.GetProduct(ctx, in.ProductID); err != nil {
			return nil, err
		}
		existing, err := s.store.ListVariants(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		res.Variations, res.Skipped = variation.Merge(variation.SpecsFromVariants(existing), drafts)
	}
	res.Variations = in.Bulk.Apply(res.Variations)
	return res, nil
}

// selectAttributes groups resolved values by attribute, keeping the order
// they were resolved in.
func selectAttributes(items []models.CombinationItem) []variation.SelectedAttribute {
	var attrs []variation.SelectedAttribute
	index := make(map[int]int)
	for _, it := range items {
		i, ok := index[it.AttributeID]
		if !ok {
			i = len(attrs)
			index[it.AttributeID] = i
			attrs = append(attrs, variation.SelectedAttribute{AttributeID: it.AttributeID, Name: it.AttributeName})
		}
		attrs[i].Values = append(attrs[i].Values, variation.SelectedValue{ID: it.ValueID, Value: it.Value})
	}
	return attrs
}

// commit runs one product write: uploads, then a transaction holding the
// product row and the variant plan. On failure every upload of the batch is
// removed and non-domain errors are reported as ReconciliationFailed.
func (s *ProductService) commit(
	ctx context.Context,
	batch *uploadBatch,
	plan *variation.ReconcilePlan,
	upload func(ctx context.Context) error,
	write func(tx repository.Store) error,
	productID func() int,
) (*ReconcileResult, error) {
	fail := func(err error) error {
		batch.rollback(ctx)
		metrics.Reconciliations.WithLabelValues(plan.Mode.String(), "failed").Inc()
		log.Error().Err(err).Str("mode", plan.Mode.String()).Msg("product write failed")
		if apperr.IsDomain(err) {
			return err
		}
		return apperr.Reconciliation(err)
	}

	if upload != nil {
		if err := upload(ctx); err != nil {
			return nil, fail(err)
		}
	}
	if err := s.reconciler.StoreImages(ctx, plan, batch); err != nil {
		return nil, fail(err)
	}

	var res *ReconcileResult
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		if err := write(tx); err != nil {
			return err
		}
		var err error
		res, err = s.reconciler.Apply(ctx, tx, productID(), plan)
		return err
	})
	if err != nil {
		return nil, fail(err)
	}

	res.Record()
	metrics.Reconciliations.WithLabelValues(plan.Mode.String(), "ok").Inc()
	return res, nil
}

// validate checks the input and returns the resolved slug.
func (s *ProductService) validate(ctx context.Context, in *ProductInput, id int) (string, error) {
	verr := &apperr.ValidationError{}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		verr.Add("name", "is required")
	case len(name) > maxNameLength:
		verr.Add("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	if in.CategoryID <= 0 {
		verr.Add("categoryId", "is required")
	}
	slug := utils.ResolveSlug(in.Slug, in.Name)
	if slug == "" && name != "" {
		verr.Add("slug", "cannot be derived from name")
	}

	if !in.IsVariable {
		validateSimpleFields(verr, in)
	}

	validateImageRef(verr, "featuredImage", in.FeaturedImage, s.maxImageSize)
	for i, u := range in.GalleryUploads {
		validateUpload(verr, fmt.Sprintf("galleryImages[%d]", i), u, s.maxImageSize)
	}
	if in.IsVariable {
		for i, v := range in.Variations {
			validateImageRef(verr, fmt.Sprintf("variations[%d].image", i), v.Image, s.maxImageSize)
		}
	}
	if err := verr.OrNil(); err != nil {
		return "", err
	}

	if _, err := s.store.GetCategory(ctx, in.CategoryID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", apperr.Invalid("categoryId", "category does not exist")
		}
		return "", err
	}

	taken, err := s.store.ProductSlugTaken(ctx, slug, id)
	if err != nil {
		return "", err
	}
	if taken {
		return "", apperr.Field(apperr.ErrDuplicateSlug, "slug", fmt.Sprintf("slug %q is already taken", slug))
	}

	if !in.IsVariable {
		sku := strings.TrimSpace(*in.SKU)
		taken, err := s.store.ProductSKUTaken(ctx, sku, id)
		if err != nil {
			return "", err
		}
		if taken {
			return "", apperr.Field(apperr.ErrDuplicateSKU, "sku", fmt.Sprintf("sku %q is already taken", sku))
		}
	}
	return slug, nil
}

func validateSimpleFields(verr *apperr.ValidationError, in *ProductInput) {
	if in.Price == nil {
		verr.Add("price", "is required")
	} else if in.Price.IsNegative() {
		verr.Add("price", "must not be negative")
	}
	if in.SalePrice.Valid {
		switch {
		case in.SalePrice.Decimal.IsNegative():
			verr.Add("salePrice", "must not be negative")
		case in.Price != nil && !in.SalePrice.Decimal.LessThan(*in.Price):
			verr.Add("salePrice", "must be lower than price")
		}
	}
	if in.StockQuantity == nil {
		verr.Add("stockQuantity", "is required")
	} else if *in.StockQuantity < 0 {
		verr.Add("stockQuantity", "must not be negative")
	}
	switch {
	case in.SKU == nil || strings.TrimSpace(*in.SKU) == "":
		verr.Add("sku", "is required")
	case len(strings.TrimSpace(*in.SKU)) > maxSKULength:
		verr.Add("sku", fmt.Sprintf("must be at most %d characters", maxSKULength))
	}
}

// applyInput copies the validated input onto p. Images are handled separately.
func applyInput(p *models.Product, in *ProductInput, slug string) {
	p.CategoryID = in.CategoryID
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = slug
	p.Description = in.Description
	p.ShortDescription = in.ShortDescription
	p.IsVariable = in.IsVariable
	p.IsFeatured = in.IsFeatured

	if in.IsVariable {
		p.ClearSimpleFields()
		return
	}
	sku := strings.TrimSpace(*in.SKU)
	p.Price = *in.Price
	p.SalePrice = in.SalePrice
	p.StockQuantity = *in.StockQuantity
	p.SKU = &sku
}

// resolveSpecs loads attribute and value labels for every requested
// combination and checks each value belongs to the attribute given with it.
func (s *ProductService) resolveSpecs(ctx context.Context, inputs []VariationInput) ([]variation.Spec, error) {
	var ids []int
	for _, in := range inputs {
		for _, pair := range in.Combination {
			ids = append(ids, pair.ValueID)
		}
	}
	items, err := s.store.ResolveValues(ctx, ids)
	if err != nil {
		return nil, err
	}
	byValue := make(map[int]models.CombinationItem, len(items))
	for _, it := range items {
		byValue[it.ValueID] = it
	}

	verr := &apperr.ValidationError{}
	specs := make([]variation.Spec, 0, len(inputs))
	for i, in := range inputs {
		field := fmt.Sprintf("variations[%d].combination", i)
		combo := make([]models.CombinationItem, 0, len(in.Combination))
		for _, pair := range in.Combination {
			it, ok := byValue[pair.ValueID]
			switch {
			case !ok:
				verr.Add(field, fmt.Sprintf("value %d does not exist", pair.ValueID))
				continue
			case pair.AttributeID != 0 && pair.AttributeID != it.AttributeID:
				verr.Add(field, fmt.Sprintf("value %d does not belong to attribute %d", pair.ValueID, pair.AttributeID))
				continue
			}
			combo = append(combo, it)
		}
		sort.SliceStable(combo, func(a, b int) bool { return combo[a].AttributeID < combo[b].AttributeID })

		specs = append(specs, variation.Spec{
			Ref:           in.Ref,
			Combination:   combo,
			Price:         in.Price,
			SalePrice:     in.SalePrice,
			StockQuantity: in.StockQuantity,
			SKU:           in.SKU,
			Image:         in.Image,
		})
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return specs, nil
}

// checkVariantSKUs rejects SKUs already used by variants of other products.
func (s *ProductService) checkVariantSKUs(ctx context.Context, specs []variation.Spec, productID int) error {
	if len(specs) == 0 {
		return nil
	}
	skus := make([]string, 0, len(specs))
	for _, sp := range specs {
		skus = append(skus, strings.TrimSpace(sp.SKU))
	}
	taken, err := s.store.VariantSKUsTaken(ctx, skus, productID)
	if err != nil || len(taken) == 0 {
		return err
	}
	used := make(map[string]bool, len(taken))
	for _, sku := range taken {
		used[sku] = true
	}
	for i, sku := range skus {
		if used[sku] {
			return apperr.Field(apperr.ErrDuplicateSKU, fmt.Sprintf("variations[%d].sku", i),
				fmt.Sprintf("sku %q is already used by another product", sku))
		}
	}
	return nil
}

// checkImages makes sure every stored path the input points at exists.
// current and existing are nil on create.
func (s *ProductService) checkImages(ctx context.Context, in *ProductInput, current *models.Product, existing []models.ProductVariant) error {
	verr := &apperr.ValidationError{}
	var featured *string
	if current != nil {
		featured = current.FeaturedImagePath
	}
	if err := checkImageExists(ctx, s.blobs, verr, "featuredImage", in.FeaturedImage, featured); err != nil {
		return err
	}
	if in.IsVariable {
		images := make(map[int]*string, len(existing))
		for _, v := range existing {
			images[v.ID] = v.ImagePath
		}
		for i, v := range in.Variations {
			var cur *string
			if id, ok := v.Ref.ID(); ok {
				cur = images[id]
			}
			if err := checkImageExists(ctx, s.blobs, verr, fmt.Sprintf("variations[%d].image", i), v.Image, cur); err != nil {
				return err
			}
		}
	}
	return verr.OrNil()
}

// pruneGallery drops the listed paths that belong to gallery. Paths not in
// the gallery are ignored.
func pruneGallery(gallery models.GalleryPaths, remove []string) (models.GalleryPaths, []string) {
	drop := make(map[string]bool, len(remove))
	for _, p := range remove {
		if gallery.Contains(p) {
			drop[p] = true
		}
	}
	kept := make(models.GalleryPaths, 0, len(gallery))
	var removed []string
	for _, p := range gallery {
		if drop[p] {
			removed = append(removed, p)
			continue
		}
		kept = append(kept, p)
	}
	return kept, removed
}

// load reads a product from the store and refreshes the cache.
func (s *ProductService) load(ctx context.Context, id int) (*ProductDetail, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Variants, err = s.store.ListVariants(ctx, id); err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			log.Warn().Err(err).Int("product_id", id).Msg("product cache write failed")
		}
	}
	return s.detail(p), nil
}

func (s *ProductService) invalidate(ctx context.Context, ids ...int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		log.Warn().Err(err).Ints("product_ids", ids).Msg("product cache invalidation failed")
	}
}

func (s *ProductService) detail(p *models.Product) *ProductDetail {
	d := &ProductDetail{
		Product:          p,
		FinalPrice:       p.FinalPrice(),
		IsOnSale:         p.IsOnSale(),
		GalleryImageURLs: make([]string, 0, len(p.GalleryImagePaths)),
	}
	if p.FeaturedImagePath != nil {
		d.FeaturedImageURL = s.blobs.PublicURL(*p.FeaturedImagePath)
	}
	for _, path := range p.GalleryImagePaths {
		d.GalleryImageURLs = append(d.GalleryImageURLs, s.blobs.PublicURL(path))
	}
	for i := range p.Variants {
		v := p.Variants[i]
		vd := VariantDetail{ProductVariant: v, FinalPrice: v.FinalPrice(), IsOnSale: v.IsOnSale()}
		if v.ImagePath != nil {
			vd.ImageURL = s.blobs.PublicURL(*v.ImagePath)
		}
		d.Variants = append(d.Variants, vd)
	}
	return d
}
