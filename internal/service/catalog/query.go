package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 50
)

// Filters is what a shopper can narrow the listing by. SortBy takes the
// storefront's option names: newest, price-asc, price-desc, rating, name.
type Filters struct {
	Category string `form:"category"`
	Search   string `form:"search"`
	MinPrice string `form:"minPrice"`
	MaxPrice string `form:"maxPrice"`
	SortBy   string `form:"sortBy"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// Sort is the (field, order) pair the catalog service understands.
type Sort struct {
	Field string
	Order string
}

// ResolveSort maps a storefront sort option onto the catalog's fields.
// Unknown options sort by name ascending.
func ResolveSort(option string) Sort {
	switch option {
	case "newest":
		return Sort{Field: "createdAt", Order: "asc"}
	case "price-asc":
		return Sort{Field: "price", Order: "asc"}
	case "price-desc":
		return Sort{Field: "price", Order: "desc"}
	case "rating":
		return Sort{Field: "rating", Order: "desc"}
	default:
		return Sort{Field: "name", Order: "asc"}
	}
}

// Query renders f as the catalog query string, leaving out empty filters.
// Page and limit fall back to 1 and defaultLimit when not positive.
func (f Filters) Query(defaultLimit int) url.Values {
	if defaultLimit < 1 {
		defaultLimit = DefaultLimit
	}
	q := url.Values{}
	set := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			q.Set(key, value)
		}
	}
	set("category", f.Category)
	set("search", f.Search)
	set("minPrice", f.MinPrice)
	set("maxPrice", f.MaxPrice)

	sort := ResolveSort(f.SortBy)
	q.Set("sortBy", sort.Field)
	q.Set("sortOrder", sort.Order)

	page := f.Page
	if page < 1 {
		page = DefaultPage
	}
	limit := f.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	return q
}
