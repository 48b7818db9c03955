package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/GTDGit/gtd_catalog/internal/apperr"
	"github.com/GTDGit/gtd_catalog/internal/models"
	"github.com/GTDGit/gtd_catalog/internal/repository"
)

// memData is the full state of memStore. clone gives InTx its snapshot.
type memData struct {
	nextID     int
	categories map[int]models.Category
	attributes map[int]models.Attribute
	values     map[int]models.AttributeValue
	products   map[int]models.Product
	variants   map[int]models.ProductVariant
	joins      map[int]map[int]bool
}

func (d *memData) clone() *memData {
	c := &memData{
		nextID:     d.nextID,
		categories: make(map[int]models.Category, len(d.categories)),
		attributes: make(map[int]models.Attribute, len(d.attributes)),
		values:     make(map[int]models.AttributeValue, len(d.values)),
		products:   make(map[int]models.Product, len(d.products)),
		variants:   make(map[int]models.ProductVariant, len(d.variants)),
		joins:      make(map[int]map[int]bool, len(d.joins)),
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.attributes {
		c.attributes[k] = v
	}
	for k, v := range d.values {
		c.values[k] = v
	}
	for k, v := range d.products {
		v.GalleryImagePaths = append(models.GalleryPaths{}, v.GalleryImagePaths...)
		c.products[k] = v
	}
	for k, v := range d.variants {
		c.variants[k] = v
	}
	for k, set := range d.joins {
		cp := make(map[int]bool, len(set))
		for id := range set {
			cp[id] = true
		}
		c.joins[k] = cp
	}
	return c
}

type memState struct {
	data       *memData
	failOn     map[string]error
	calls      map[string]int
	joinWrites int
}

// memStore is an in-memory repository.Store. InTx restores the snapshot
// taken on entry when fn fails.
type memStore struct {
	*memState
	inTx bool
}

func newMemStore() *memStore {
	return &memStore{memState: &memState{
		data: &memData{
			categories: map[int]models.Category{},
			attributes: map[int]models.Attribute{},
			values:     map[int]models.AttributeValue{},
			products:   map[int]models.Product{},
			variants:   map[int]models.ProductVariant{},
			joins:      map[int]map[int]bool{},
		},
		failOn: map[string]error{},
		calls:  map[string]int{},
	}}
}

var _ repository.Store = (*memStore)(nil)

func (s *memStore) hit(op string) error {
	s.calls[op]++
	return s.failOn[op]
}

func (s *memStore) id() int {
	s.data.nextID++
	return s.data.nextID
}

func (s *memStore) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	snapshot := s.data.clone()
	if err := fn(&memStore{memState: s.memState, inTx: true}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// categories

func (s *memStore) CreateCategory(ctx context.Context, c *models.Category) error {
	if err := s.hit("CreateCategory"); err != nil {
		return err
	}
	c.ID = s.id()
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	s.data.categories[c.ID] = *c
	return nil
}

func (s *memStore) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	c, ok := s.data.categories[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &c, nil
}

func (s *memStore) ListCategories(ctx context.Context) ([]models.Category, error) {
	out := make([]models.Category, 0, len(s.data.categories))
	for _, c := range s.data.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) UpdateCategory(ctx context.Context, c *models.Category) error {
	if _, ok := s.data.categories[c.ID]; !ok {
		return apperr.ErrNotFound
	}
	s.data.categories[c.ID] = *c
	return nil
}

func (s *memStore) DeleteCategory(ctx context.Context, id int) error {
	if _, ok := s.data.categories[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(s.data.categories, id)
	return nil
}

func (s *memStore) CategorySlugTaken(ctx context.Context, slug string, excludeID int) (bool, error) {
	for _, c := range s.data.categories {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CountProductsInCategory(ctx context.Context, categoryID int) (int, error) {
	n := 0
	for _, p := range s.data.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

// attributes

func (s *memStore) CreateAttribute(ctx context.Context, a *models.Attribute) error {
	a.ID = s.id()
	stored := *a
	stored.Values = nil
	s.data.attributes[a.ID] = stored
	return nil
}

func (s *memStore) GetAttribute(ctx context.Context, id int) (*models.Attribute, error) {
	a, ok := s.data.attributes[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	a.Values = s.valuesOf(id)
	return &a, nil
}

func (s *memStore) valuesOf(attributeID int) []models.AttributeValue {
	out := []models.AttributeValue{}
	for _, v := range s.data.values {
		if v.AttributeID == attributeID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *memStore) ListAttributes(ctx context.Context) ([]models.Attribute, error) {
	out := make([]models.Attribute, 0, len(s.data.attributes))
	for _, a := range s.data.attributes {
		a.Values = s.valuesOf(a.ID)
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memStore) UpdateAttribute(ctx context.Context, a *models.Attribute) error {
	if _, ok := s.data.attributes[a.ID]; !ok {
		return apperr.ErrNotFound
	}
	stored := *a
	stored.Values = nil
	s.data.attributes[a.ID] = stored
	return nil
}

func (s *memStore) DeleteAttribute(ctx context.Context, id int) error {
	if _, ok := s.data.attributes[id]; !ok {
		return apperr.ErrNotFound
	}
	var ids []int
	for _, v := range s.valuesOf(id) {
		ids = append(ids, v.ID)
	}
	delete(s.data.attributes, id)
	if err := s.DeleteAttributeValues(ctx, ids); err != nil {
		return err
	}
	// Fails after writing so InTx has something to undo.
	return s.hit("DeleteAttribute")
}

func (s *memStore) AttributeSlugTaken(ctx context.Context, slug string, excludeID int) (bool, error) {
	for _, a := range s.data.attributes {
		if a.Slug == slug && a.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateAttributeValue(ctx context.Context, v *models.AttributeValue) error {
	v.ID = s.id()
	s.data.values[v.ID] = *v
	return nil
}

func (s *memStore) UpdateAttributeValue(ctx context.Context, v *models.AttributeValue) error {
	cur, ok := s.data.values[v.ID]
	if !ok || cur.AttributeID != v.AttributeID {
		return apperr.ErrNotFound
	}
	s.data.values[v.ID] = *v
	return nil
}

func (s *memStore) DeleteAttributeValues(ctx context.Context, ids []int) error {
	for _, id := range ids {
		delete(s.data.values, id)
		for _, set := range s.data.joins {
			delete(set, id)
		}
	}
	return nil
}

func (s *memStore) ResolveValues(ctx context.Context, valueIDs []int) ([]models.CombinationItem, error) {
	var vals []models.AttributeValue
	seen := map[int]bool{}
	for _, id := range valueIDs {
		if v, ok := s.data.values[id]; ok && !seen[id] {
			seen[id] = true
			vals = append(vals, v)
		}
	}
	sort.Slice(vals, func(i, j int) bool {
		if vals[i].AttributeID != vals[j].AttributeID {
			return vals[i].AttributeID < vals[j].AttributeID
		}
		if vals[i].Position != vals[j].Position {
			return vals[i].Position < vals[j].Position
		}
		return vals[i].ID < vals[j].ID
	})
	items := make([]models.CombinationItem, 0, len(vals))
	for _, v := range vals {
		items = append(items, models.CombinationItem{
			AttributeID:   v.AttributeID,
			AttributeName: s.data.attributes[v.AttributeID].Name,
			ValueID:       v.ID,
			Value:         v.Value,
		})
	}
	return items, nil
}

// liveUses returns value id -> product ids of live products using it.
func (s *memStore) liveUses(valueIDs []int) (map[int]bool, map[int]bool) {
	want := map[int]bool{}
	for _, id := range valueIDs {
		want[id] = true
	}
	values, products := map[int]bool{}, map[int]bool{}
	for variantID, set := range s.data.joins {
		v := s.data.variants[variantID]
		p, ok := s.data.products[v.ProductID]
		if !ok || p.DeletedAt != nil {
			continue
		}
		for id := range set {
			if want[id] {
				values[id] = true
				products[v.ProductID] = true
			}
		}
	}
	return values, products
}

func sortedKeys(m map[int]bool) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func (s *memStore) ValuesInUse(ctx context.Context, valueIDs []int) ([]int, error) {
	values, _ := s.liveUses(valueIDs)
	return sortedKeys(values), nil
}

func (s *memStore) ProductsUsingValues(ctx context.Context, valueIDs []int) ([]int, error) {
	_, products := s.liveUses(valueIDs)
	return sortedKeys(products), nil
}

// products

func (s *memStore) checkProductUnique(p *models.Product) error {
	for _, o := range s.data.products {
		if o.ID == p.ID {
			continue
		}
		if o.Slug == p.Slug {
			return apperr.Field(apperr.ErrDuplicateSlug, "slug", "already exists")
		}
		if p.SKU != nil && o.SKU != nil && *o.SKU == *p.SKU {
			return apperr.Field(apperr.ErrDuplicateSKU, "sku", "already exists")
		}
	}
	return nil
}

func (s *memStore) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := s.hit("CreateProduct"); err != nil {
		return err
	}
	if err := s.checkProductUnique(p); err != nil {
		return err
	}
	p.ID = s.id()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	stored := *p
	stored.GalleryImagePaths = append(models.GalleryPaths{}, p.GalleryImagePaths...)
	stored.Variants = nil
	s.data.products[p.ID] = stored
	return nil
}

func (s *memStore) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	p, ok := s.data.products[id]
	if !ok || p.DeletedAt != nil {
		return nil, apperr.ErrNotFound
	}
	p.GalleryImagePaths = append(models.GalleryPaths{}, p.GalleryImagePaths...)
	return &p, nil
}

func (s *memStore) ListProducts(ctx context.Context, f repository.ProductFilter) ([]models.Product, int, error) {
	var all []models.Product
	for _, p := range s.data.products {
		if (p.DeletedAt != nil) != f.Trashed {
			continue
		}
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		if f.Featured != nil && p.IsFeatured != *f.Featured {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (s *memStore) UpdateProduct(ctx context.Context, p *models.Product) error {
	if err := s.hit("UpdateProduct"); err != nil {
		return err
	}
	cur, ok := s.data.products[p.ID]
	if !ok || cur.DeletedAt != nil {
		return apperr.ErrNotFound
	}
	if err := s.checkProductUnique(p); err != nil {
		return err
	}
	p.UpdatedAt = time.Now()
	stored := *p
	stored.GalleryImagePaths = append(models.GalleryPaths{}, p.GalleryImagePaths...)
	stored.Variants = nil
	s.data.products[p.ID] = stored
	return nil
}

func (s *memStore) SoftDeleteProduct(ctx context.Context, id int) error {
	if err := s.hit("SoftDeleteProduct"); err != nil {
		return err
	}
	p, ok := s.data.products[id]
	if !ok || p.DeletedAt != nil {
		return apperr.ErrNotFound
	}
	now := time.Now()
	p.DeletedAt = &now
	p.FeaturedImagePath = nil
	p.GalleryImagePaths = models.GalleryPaths{}
	s.data.products[id] = p
	return nil
}

func (s *memStore) RestoreProduct(ctx context.Context, id int) error {
	p, ok := s.data.products[id]
	if !ok || p.DeletedAt == nil {
		return apperr.ErrNotFound
	}
	p.DeletedAt = nil
	s.data.products[id] = p
	return nil
}

func (s *memStore) ProductSlugTaken(ctx context.Context, slug string, excludeID int) (bool, error) {
	for _, p := range s.data.products {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ProductSKUTaken(ctx context.Context, sku string, excludeID int) (bool, error) {
	for _, p := range s.data.products {
		if p.SKU != nil && *p.SKU == sku && p.ID != excludeID {
			return true, nil
		}
	}
	for _, v := range s.data.variants {
		if v.SKU == sku && v.ProductID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) ImageInUse(ctx context.Context, path string) (bool, error) {
	for _, p := range s.data.products {
		if (p.FeaturedImagePath != nil && *p.FeaturedImagePath == path) || p.GalleryImagePaths.Contains(path) {
			return true, nil
		}
	}
	for _, v := range s.data.variants {
		if v.ImagePath != nil && *v.ImagePath == path {
			return true, nil
		}
	}
	for _, c := range s.data.categories {
		if c.ImagePath != nil && *c.ImagePath == path {
			return true, nil
		}
	}
	return false, nil
}

// variants

func (s *memStore) combinationOf(variantID int) []models.CombinationItem {
	items := []models.CombinationItem{}
	for valueID := range s.data.joins[variantID] {
		v := s.data.values[valueID]
		items = append(items, models.CombinationItem{
			AttributeID:   v.AttributeID,
			AttributeName: s.data.attributes[v.AttributeID].Name,
			ValueID:       v.ID,
			Value:         v.Value,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].AttributeID < items[j].AttributeID })
	return items
}

func (s *memStore) ListVariants(ctx context.Context, productID int) ([]models.ProductVariant, error) {
	out := []models.ProductVariant{}
	for _, v := range s.data.variants {
		if v.ProductID == productID {
			v.Combination = s.combinationOf(v.ID)
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListVariantPrices(ctx context.Context, productIDs []int) (map[int][]models.ProductVariant, error) {
	out := map[int][]models.ProductVariant{}
	for _, id := range productIDs {
		vs, _ := s.ListVariants(ctx, id)
		for i := range vs {
			vs[i].Combination = nil
		}
		if len(vs) > 0 {
			out[id] = vs
		}
	}
	return out, nil
}

func (s *memStore) CreateVariant(ctx context.Context, v *models.ProductVariant) error {
	if err := s.hit("CreateVariant"); err != nil {
		return err
	}
	v.ID = s.id()
	v.CreatedAt, v.UpdatedAt = time.Now(), time.Now()
	stored := *v
	stored.Combination = nil
	s.data.variants[v.ID] = stored
	return nil
}

func (s *memStore) UpdateVariant(ctx context.Context, v *models.ProductVariant) error {
	if err := s.hit("UpdateVariant"); err != nil {
		return err
	}
	cur, ok := s.data.variants[v.ID]
	if !ok || cur.ProductID != v.ProductID {
		return apperr.ErrNotFound
	}
	v.UpdatedAt = time.Now()
	stored := *v
	stored.Combination = nil
	s.data.variants[v.ID] = stored
	return nil
}

func (s *memStore) DeleteVariants(ctx context.Context, ids []int) error {
	if err := s.hit("DeleteVariants"); err != nil {
		return err
	}
	for _, id := range ids {
		delete(s.data.variants, id)
		delete(s.data.joins, id)
	}
	return nil
}

func (s *memStore) AttachVariantValues(ctx context.Context, variantID int, valueIDs []int) error {
	if err := s.hit("AttachVariantValues"); err != nil {
		return err
	}
	for _, id := range valueIDs {
		if s.data.joins[variantID] == nil {
			s.data.joins[variantID] = map[int]bool{}
		}
		if !s.data.joins[variantID][id] {
			s.data.joins[variantID][id] = true
			s.joinWrites++
		}
	}
	return nil
}

func (s *memStore) DetachVariantValues(ctx context.Context, variantID int, valueIDs []int) error {
	if err := s.hit("DetachVariantValues"); err != nil {
		return err
	}
	for _, id := range valueIDs {
		if s.data.joins[variantID][id] {
			delete(s.data.joins[variantID], id)
			s.joinWrites++
		}
	}
	return nil
}

func (s *memStore) VariantSKUsTaken(ctx context.Context, skus []string, productID int) ([]string, error) {
	want := map[string]bool{}
	for _, sku := range skus {
		want[sku] = true
	}
	taken := map[string]bool{}
	for _, v := range s.data.variants {
		if v.ProductID != productID && want[v.SKU] {
			taken[v.SKU] = true
		}
	}
	for _, p := range s.data.products {
		if p.ID != productID && p.SKU != nil && want[*p.SKU] {
			taken[*p.SKU] = true
		}
	}
	out := make([]string, 0, len(taken))
	for sku := range taken {
		out = append(out, sku)
	}
	sort.Strings(out)
	return out, nil
}

// memBlobs is an in-memory storage.BlobStore.
type memBlobs struct {
	files     map[string][]byte
	n         int
	failStore error
}

func newMemBlobs() *memBlobs {
	return &memBlobs{files: map[string][]byte{}}
}

func (b *memBlobs) Store(ctx context.Context, data []byte, folder, filename string) (string, error) {
	if b.failStore != nil {
		return "", b.failStore
	}
	b.n++
	p := fmt.Sprintf("%s/file-%d%s", folder, b.n, filepath.Ext(filename))
	b.files[p] = data
	return p, nil
}

func (b *memBlobs) Delete(ctx context.Context, path string) error {
	delete(b.files, path)
	return nil
}

func (b *memBlobs) Exists(ctx context.Context, path string) (bool, error) {
	_, ok := b.files[path]
	return ok, nil
}

func (b *memBlobs) PublicURL(path string) string {
	return "https://cdn.test/" + path
}

// memCache is an in-memory ProductCache.
type memCache struct {
	items       map[int]*models.Product
	invalidated []int
}

func newMemCache() *memCache {
	return &memCache{items: map[int]*models.Product{}}
}

func (c *memCache) Get(ctx context.Context, id int) (*models.Product, error) {
	return c.items[id], nil
}

func (c *memCache) Set(ctx context.Context, p *models.Product) error {
	cp := *p
	c.items[p.ID] = &cp
	return nil
}

func (c *memCache) Invalidate(ctx context.Context, ids ...int) error {
	for _, id := range ids {
		delete(c.items, id)
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func pngUpload(name string) models.Upload {
	return models.Upload{Filename: name, Data: pngData}
}
