package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/pricing"
	cartsvc "storefront/internal/service/cart"
)

const defaultPlaceholderImage = "/images/placeholder.jpg"

type lineItemView struct {
	ProductID          string          `json:"productId"`
	Name               string          `json:"name"`
	Price              decimal.Decimal `json:"price"`
	PriceFormatted     string          `json:"priceFormatted"`
	Quantity           int             `json:"quantity"`
	Image              string          `json:"image"`
	LineTotal          decimal.Decimal `json:"lineTotal"`
	LineTotalFormatted string          `json:"lineTotalFormatted"`
}

type summaryView struct {
	Subtotal                 decimal.Decimal `json:"subtotal"`
	Shipping                 decimal.Decimal `json:"shipping"`
	Total                    decimal.Decimal `json:"total"`
	SubtotalFormatted        string          `json:"subtotalFormatted"`
	ShippingFormatted        string          `json:"shippingFormatted"`
	TotalFormatted           string          `json:"totalFormatted"`
	FreeShipping             bool            `json:"freeShipping"`
	RemainingForFreeShipping string          `json:"remainingForFreeShipping,omitempty"`
}

// cartView is what the cart page renders. An empty cart carries no summary.
type cartView struct {
	Empty     bool           `json:"empty"`
	Busy      bool           `json:"busy"`
	ItemCount int            `json:"itemCount"`
	Items     []lineItemView `json:"items"`
	Summary   *summaryView   `json:"summary,omitempty"`
	Currency  string         `json:"currency"`
}

func (h *handlers) renderCart(cart domain.Cart, busy bool, policy pricing.Policy) cartView {
	f := h.deps.Formatter
	view := cartView{
		Empty:     cart.IsEmpty(),
		Busy:      busy,
		ItemCount: cart.Quantity(),
		Items:     make([]lineItemView, 0, len(cart.Items)),
		Currency:  f.Currency(),
	}
	for _, it := range cart.Items {
		image := strings.TrimSpace(it.Image)
		if image == "" {
			image = h.deps.PlaceholderImage
		}
		total := it.LineTotal()
		view.Items = append(view.Items, lineItemView{
			ProductID:          it.ProductID,
			Name:               it.Name,
			Price:              it.Price,
			PriceFormatted:     f.Format(it.Price),
			Quantity:           it.Quantity,
			Image:              image,
			LineTotal:          total,
			LineTotalFormatted: f.Format(total),
		})
	}
	if view.Empty {
		return view
	}

	s := policy.Calculate(cart.Items)
	sv := &summaryView{
		Subtotal:     s.Subtotal,
		Shipping:     s.Shipping,
		Total:        s.Total,
		FreeShipping: s.FreeShipping(),
	}
	sv.SubtotalFormatted, sv.ShippingFormatted, sv.TotalFormatted = f.FormatSummary(s)
	if remaining := policy.Remaining(s.Subtotal); remaining.IsPositive() {
		sv.RemainingForFreeShipping = f.Format(remaining)
	}
	view.Summary = sv
	return view
}

func (h *handlers) store(c *gin.Context) *cartsvc.Store {
	sess, _ := sessionFrom(c)
	return h.deps.Carts.Open(c.Request.Context(), sess)
}

func (h *handlers) respondCart(c *gin.Context, store *cartsvc.Store, cart domain.Cart, err error) {
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.renderCart(cart, store.Busy(), store.Policy()))
}

func (h *handlers) getCart(c *gin.Context) {
	store := h.store(c)
	c.JSON(http.StatusOK, h.renderCart(store.Cart(), store.Busy(), store.Policy()))
}

type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  *int   `json:"quantity"`
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body", Message: err.Error()})
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	store := h.store(c)
	cart, err := store.AddItem(c.Request.Context(), req.ProductID, quantity)
	h.respondCart(c, store, cart, err)
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (h *handlers) updateCartItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "invalid request body", Message: err.Error()})
		return
	}
	store := h.store(c)
	cart, err := store.UpdateQuantity(c.Request.Context(), c.Param("productId"), *req.Quantity)
	h.respondCart(c, store, cart, err)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	store := h.store(c)
	cart, err := store.RemoveItem(c.Request.Context(), c.Param("productId"))
	h.respondCart(c, store, cart, err)
}

func (h *handlers) refreshCart(c *gin.Context) {
	store := h.store(c)
	cart, err := store.Refresh(c.Request.Context())
	h.respondCart(c, store, cart, err)
}
