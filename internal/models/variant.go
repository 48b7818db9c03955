package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductVariant is one purchasable combination of a variable product.
type ProductVariant struct {
	ID            int                 `db:"id" json:"id"`
	ProductID     int                 `db:"product_id" json:"productId"`
	Price         decimal.Decimal     `db:"price" json:"price"`
	SalePrice     decimal.NullDecimal `db:"sale_price" json:"salePrice"`
	StockQuantity int                 `db:"stock_quantity" json:"stockQuantity"`
	SKU           string              `db:"sku" json:"sku"`
	ImagePath     *string             `db:"image_path" json:"imagePath,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updatedAt"`

	// Combination is the variant's attribute values, ordered by attribute id.
	Combination []CombinationItem `db:"-" json:"combination"`
}

// FinalPrice returns the sale price when it undercuts the base price.
func (v *ProductVariant) FinalPrice() decimal.Decimal {
	return FinalPrice(v.Price, v.SalePrice)
}

// IsOnSale reports whether the variant sells below its base price.
func (v *ProductVariant) IsOnSale() bool {
	return IsOnSale(v.Price, v.SalePrice)
}

// ValueIDs returns the attribute value ids of the combination.
func (v *ProductVariant) ValueIDs() []int {
	ids := make([]int, 0, len(v.Combination))
	for _, c := range v.Combination {
		ids = append(ids, c.ValueID)
	}
	return ids
}

// CombinationItem is one attribute/value pair of a variant combination.
type CombinationItem struct {
	AttributeID   int    `db:"attribute_id" json:"attributeId"`
	AttributeName string `db:"attribute_name" json:"attributeName"`
	ValueID       int    `db:"value_id" json:"valueId"`
	Value         string `db:"value" json:"value"`
}
