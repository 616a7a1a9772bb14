package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// CatalogClient lists products from the external catalog service.
type CatalogClient struct {
	c *Client
}

func NewCatalogClient(baseURL string, opts Options) (*CatalogClient, error) {
	c, err := NewClient("catalog", baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &CatalogClient{c: c}, nil
}

type wireProduct struct {
	ID              string           `json:"id"`
	LegacyID        string           `json:"_id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Price           decimal.Decimal  `json:"price"`
	Discount        int              `json:"discount"`
	DiscountedPrice *decimal.Decimal `json:"discountedPrice"`
	Rating          float64          `json:"rating"`
	ReviewCount     int              `json:"reviewCount"`
	ImageURLs       []string         `json:"imageURLs"`
	Category        string           `json:"category"`
}

func (w wireProduct) toDomain() domain.Product {
	images := w.ImageURLs
	if images == nil {
		images = []string{}
	}
	return domain.Product{
		ID:              firstNonEmpty(w.ID, w.LegacyID),
		Name:            w.Name,
		Description:     w.Description,
		Price:           w.Price,
		Discount:        w.Discount,
		DiscountedPrice: w.DiscountedPrice,
		Rating:          w.Rating,
		ReviewCount:     w.ReviewCount,
		ImageURLs:       images,
		Category:        w.Category,
	}
}

type listReply struct {
	Products []wireProduct `json:"products"`
}

// List sends query verbatim as the query string of GET /products.
func (cc *CatalogClient) List(ctx context.Context, sess domain.Session, query url.Values) ([]domain.Product, error) {
	var reply listReply
	err := cc.c.do(ctx, request{
		op:     "list",
		method: http.MethodGet,
		path:   "/products",
		query:  query,
		token:  sess.UpstreamToken,
	}, &reply)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(reply.Products))
	for _, p := range reply.Products {
		out = append(out, p.toDomain())
	}
	return out, nil
}
