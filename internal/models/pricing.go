package models

import "github.com/shopspring/decimal"

// activeSale returns the sale price when it is set, positive and lower than price.
func activeSale(price decimal.Decimal, sale decimal.NullDecimal) (decimal.Decimal, bool) {
	if !sale.Valid || !sale.Decimal.IsPositive() || !sale.Decimal.LessThan(price) {
		return decimal.Zero, false
	}
	return sale.Decimal, true
}

// FinalPrice returns sale when it undercuts price, else price.
func FinalPrice(price decimal.Decimal, sale decimal.NullDecimal) decimal.Decimal {
	if s, ok := activeSale(price, sale); ok {
		return s
	}
	return price
}

// IsOnSale reports whether sale undercuts price.
func IsOnSale(price decimal.Decimal, sale decimal.NullDecimal) bool {
	_, ok := activeSale(price, sale)
	return ok
}

// variantsFinalPrice compares the lowest base price against the lowest sale
// price among variants that have one. No variants yields zero.
func variantsFinalPrice(variants []ProductVariant) (decimal.Decimal, bool) {
	if len(variants) == 0 {
		return decimal.Zero, false
	}

	minPrice := variants[0].Price
	var minSale decimal.Decimal
	hasSale := false
	for _, v := range variants {
		if v.Price.LessThan(minPrice) {
			minPrice = v.Price
		}
		if !v.SalePrice.Valid || !v.SalePrice.Decimal.IsPositive() {
			continue
		}
		if !hasSale || v.SalePrice.Decimal.LessThan(minSale) {
			minSale = v.SalePrice.Decimal
			hasSale = true
		}
	}

	if hasSale && minSale.LessThan(minPrice) {
		return minSale, true
	}
	return minPrice, false
}
