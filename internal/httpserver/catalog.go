package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/service/catalog"
)

type productView struct {
	ID                       string           `json:"id"`
	Name                     string           `json:"name"`
	Description              string           `json:"description,omitempty"`
	Price                    decimal.Decimal  `json:"price"`
	PriceFormatted           string           `json:"priceFormatted"`
	Discount                 int              `json:"discount,omitempty"`
	DiscountedPrice          *decimal.Decimal `json:"discountedPrice,omitempty"`
	DiscountedPriceFormatted string           `json:"discountedPriceFormatted,omitempty"`
	Rating                   float64          `json:"rating"`
	ReviewCount              int              `json:"reviewCount"`
	Image                    string           `json:"image"`
	ImageURLs                []string         `json:"imageURLs"`
	Category                 string           `json:"category"`
}

type productListResponse struct {
	Products []productView `json:"products"`
	Count    int           `json:"count"`
	Query    string        `json:"query"`
}

func (h *handlers) toProductView(p domain.Product) productView {
	f := h.deps.Formatter
	v := productView{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		PriceFormatted: f.Format(p.Price),
		Rating:         p.Rating,
		ReviewCount:    p.ReviewCount,
		Image:          h.deps.PlaceholderImage,
		ImageURLs:      p.ImageURLs,
		Category:       p.Category,
	}
	if v.ImageURLs == nil {
		v.ImageURLs = []string{}
	}
	if len(v.ImageURLs) > 0 && v.ImageURLs[0] != "" {
		v.Image = v.ImageURLs[0]
	}
	if p.Discount > 0 && p.DiscountedPrice != nil {
		v.Discount = p.Discount
		v.DiscountedPrice = p.DiscountedPrice
		v.DiscountedPriceFormatted = f.Format(*p.DiscountedPrice)
	}
	return v
}

func (h *handlers) listProducts(c *gin.Context) {
	var f catalog.Filters
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid filters", Message: err.Error()})
		return
	}
	sess, _ := sessionFrom(c)
	products, err := h.deps.Catalog.List(c.Request.Context(), sess, f)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, h.toProductView(p))
	}
	c.JSON(http.StatusOK, productListResponse{Products: views, Count: len(views), Query: f.Query(0).Encode()})
}

func (h *handlers) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.deps.Catalog.Categories()})
}
