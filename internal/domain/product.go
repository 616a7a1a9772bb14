package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry as returned by the catalog service.
type Product struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	Discount        int              `json:"discount,omitempty"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice,omitempty"`
	Rating          float64          `json:"rating"`
	ReviewCount     int              `json:"reviewCount"`
	ImageURLs       []string         `json:"imageURLs"`
	Category        string           `json:"category"`
}

// EffectivePrice is the discounted price when the product is on discount.
func (p Product) EffectivePrice() decimal.Decimal {
	if p.Discount > 0 && p.DiscountedPrice != nil {
		return *p.DiscountedPrice
	}
	return p.Price
}

// ProductInput is the seller/admin payload for creating or updating a product.
type ProductInput struct {
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Price          decimal.Decimal   `json:"price"`
	Category       string            `json:"category"`
	StockQuantity  int               `json:"stockQuantity"`
	ImageURLs      []string          `json:"imageURLs"`
	Specifications map[string]string `json:"specifications"`
	Tags           []string          `json:"tags"`
}

// Category is a browsable product family of the shop.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Categories lists the shop's categories, the all-products entry first.
var Categories = []Category{
	{ID: "", Name: "Tous les produits"},
	{ID: "rings", Name: "Bagues"},
	{ID: "necklaces", Name: "Colliers"},
	{ID: "bracelets", Name: "Bracelets"},
	{ID: "earrings", Name: "Boucles d'oreilles"},
}
