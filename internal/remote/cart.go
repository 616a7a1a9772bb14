package remote

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

// CartClient talks to the external cart service, the system of record for
// the session's cart.
type CartClient struct {
	c *Client
}

func NewCartClient(baseURL string, opts Options) (*CartClient, error) {
	c, err := NewClient("cart", baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &CartClient{c: c}, nil
}

type cartReply struct {
	Cart *wireCart `json:"cart"`
	Data *wireCart `json:"data"`
}

type wireCart struct {
	Items []wireLineItem `json:"items"`
}

// The backend has used both productID and _id for the product reference;
// productID also matches productId since decoding is case-insensitive.
type wireLineItem struct {
	ProductID string          `json:"productID"`
	LegacyID  string          `json:"_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Image     string          `json:"image"`
}

func (w wireLineItem) toDomain() domain.LineItem {
	return domain.LineItem{
		ProductID: firstNonEmpty(w.ProductID, w.LegacyID),
		Name:      w.Name,
		Price:     w.Price,
		Quantity:  w.Quantity,
		Image:     w.Image,
	}
}

var errMissingCart = errors.New("decode body: missing cart")

// toDomain fails on a reply that carries neither cart nor data, so a bare
// acknowledgement is never mistaken for an empty cart.
func (r cartReply) toDomain() (domain.Cart, error) {
	wc := r.Cart
	if wc == nil {
		wc = r.Data
	}
	if wc == nil {
		return domain.Cart{}, errMissingCart
	}
	items := make([]domain.LineItem, 0, len(wc.Items))
	for _, it := range wc.Items {
		items = append(items, it.toDomain())
	}
	return domain.Cart{Items: items}, nil
}

func (cc *CartClient) call(ctx context.Context, req request) (domain.Cart, error) {
	var reply cartReply
	if err := cc.c.do(ctx, req, &reply); err != nil {
		return domain.Cart{}, err
	}
	cart, err := reply.toDomain()
	if err != nil {
		return domain.Cart{}, cc.c.fail(req.op, http.StatusOK, "", err)
	}
	return cart, nil
}

// Get fetches the session's cart.
func (cc *CartClient) Get(ctx context.Context, sess domain.Session) (domain.Cart, error) {
	return cc.call(ctx, request{op: "get", method: http.MethodGet, path: "/cart", token: sess.UpstreamToken, sessionID: sess.ID})
}

// AddItem adds quantity of productID; the service merges into an existing entry.
func (cc *CartClient) AddItem(ctx context.Context, sess domain.Session, productID string, quantity int) (domain.Cart, error) {
	return cc.call(ctx, request{
		op:        "addItem",
		method:    http.MethodPost,
		path:      "/cart/items",
		token:     sess.UpstreamToken,
		sessionID: sess.ID,
		body:      map[string]any{"productId": productID, "quantity": quantity},
	})
}

func (cc *CartClient) UpdateQuantity(ctx context.Context, sess domain.Session, productID string, quantity int) (domain.Cart, error) {
	return cc.call(ctx, request{
		op:        "updateQuantity",
		method:    http.MethodPut,
		path:      "/cart/items/" + url.PathEscape(productID),
		token:     sess.UpstreamToken,
		sessionID: sess.ID,
		body:      map[string]any{"quantity": quantity},
	})
}

func (cc *CartClient) RemoveItem(ctx context.Context, sess domain.Session, productID string) (domain.Cart, error) {
	return cc.call(ctx, request{
		op:        "removeItem",
		method:    http.MethodDelete,
		path:      "/cart/items/" + url.PathEscape(productID),
		token:     sess.UpstreamToken,
		sessionID: sess.ID,
	})
}
