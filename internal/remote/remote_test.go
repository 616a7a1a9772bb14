package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

var buyer = domain.Session{ID: "s1", Role: domain.RoleBuyer, UpstreamToken: "tok-123"}

func TestCartClientAddItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/cart/items", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p1", body["productId"])
		assert.EqualValues(t, 2, body["quantity"])
		_, _ = io.WriteString(w, `{"success":true,"cart":{"items":[
			{"productID":"p1","name":"Bague","price":19.99,"quantity":2,"image":"/a.jpg"},
			{"_id":"p2","name":"Collier","price":"5.10","quantity":1}
		]}}`)
	}))
	defer srv.Close()

	cc, err := NewCartClient(srv.URL+"/api", Options{})
	require.NoError(t, err)

	cart, err := cc.AddItem(context.Background(), buyer, "p1", 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "p1", cart.Items[0].ProductID)
	assert.True(t, cart.Items[0].Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, "p2", cart.Items[1].ProductID)
	assert.True(t, cart.Items[1].Price.Equal(decimal.RequireFromString("5.10")))
}

func TestCartClientUpdateAndRemovePaths(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		_, _ = io.WriteString(w, `{"success":true,"cart":{"items":[]}}`)
	}))
	defer srv.Close()

	cc, err := NewCartClient(srv.URL, Options{})
	require.NoError(t, err)

	_, err = cc.UpdateQuantity(context.Background(), buyer, "p9", 3)
	require.NoError(t, err)
	cart, err := cc.RemoveItem(context.Background(), buyer, "p9")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	_, err = cc.Get(context.Background(), buyer)
	require.NoError(t, err)

	assert.Equal(t, []string{"PUT /cart/items/p9", "DELETE /cart/items/p9", "GET /cart"}, seen)
}

func TestClientClassifiesFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{name: "http error status", status: http.StatusUnauthorized, body: `{"error":"token expired"}`, wantStatus: 401, wantMsg: "token expired"},
		{name: "success false", status: http.StatusOK, body: `{"success":false,"message":"out of stock"}`, wantStatus: 200, wantMsg: "out of stock"},
		{name: "malformed body", status: http.StatusOK, body: `{"success":tru`, wantStatus: 200},
		{name: "server error", status: http.StatusBadGateway, body: ``, wantStatus: 502},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			cc, err := NewCartClient(srv.URL, Options{})
			require.NoError(t, err)
			_, err = cc.AddItem(context.Background(), buyer, "p1", 1)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrService))

			var se *domain.ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantStatus, se.Status)
			assert.Equal(t, "addItem", se.Op)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, se.Message)
			}
		})
	}
}

func TestClientNetworkFailureIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	cc, err := NewCartClient(base, Options{})
	require.NoError(t, err)
	_, err = cc.Get(context.Background(), buyer)
	assert.ErrorIs(t, err, domain.ErrService)
}

func TestClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cc, err := NewCartClient(srv.URL, Options{Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = cc.Get(context.Background(), buyer)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrService)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cc, err := NewCartClient(srv.URL, Options{BreakerFailures: 2, BreakerCooldown: time.Minute})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := cc.Get(context.Background(), buyer)
		assert.ErrorIs(t, err, domain.ErrService)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient("cart", "/api", Options{})
	assert.Error(t, err)
}

func TestCatalogClientList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "price", r.URL.Query().Get("sortBy"))
		assert.Equal(t, "desc", r.URL.Query().Get("sortOrder"))
		_, _ = io.WriteString(w, `{"success":true,"products":[
			{"_id":"a1","name":"Bague Diamant","price":1299.99,"discount":10,"discountedPrice":1169.99,"rating":4.5,"reviewCount":12,"imageURLs":["/r.jpg"],"category":"rings"},
			{"id":"a2","name":"Collier","price":899.99,"rating":4,"category":"necklaces"}
		]}`)
	}))
	defer srv.Close()

	cc, err := NewCatalogClient(srv.URL, Options{})
	require.NoError(t, err)
	products, err := cc.List(context.Background(), buyer, url.Values{"sortBy": {"price"}, "sortOrder": {"desc"}})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "a1", products[0].ID)
	assert.Equal(t, "1169.99", products[0].EffectivePrice().StringFixed(2))
	assert.Equal(t, "a2", products[1].ID)
	assert.Equal(t, []string{}, products[1].ImageURLs)
	assert.Equal(t, "899.99", products[1].EffectivePrice().StringFixed(2))
}

func TestProductClientCRUD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer seller-tok", r.Header.Get("Authorization"))
		switch r.Method + " " + r.URL.Path {
		case "POST /products":
			var in domain.ProductInput
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			assert.Equal(t, "Bracelet Or", in.Name)
			_, _ = io.WriteString(w, `{"success":true,"data":{"id":"n1","name":"Bracelet Or","price":599.99}}`)
		case "PUT /products/n1":
			_, _ = io.WriteString(w, `{"success":true,"data":{"id":"n1","name":"Bracelet Or","price":549.99},"message":"ok"}`)
		case "DELETE /products/n1":
			_, _ = io.WriteString(w, `{"success":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	pc, err := NewProductClient(srv.URL, Options{})
	require.NoError(t, err)
	seller := domain.Session{Role: domain.RoleSeller, UpstreamToken: "seller-tok"}
	in := domain.ProductInput{Name: "Bracelet Or", Price: decimal.RequireFromString("599.99")}

	res, err := pc.Create(context.Background(), seller, in)
	require.NoError(t, err)
	require.NotNil(t, res.Product)
	assert.Equal(t, "n1", res.Product.ID)
	assert.Equal(t, "Produit créé avec succès", res.Message)

	res, err = pc.Update(context.Background(), seller, "n1", in)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Message)

	res, err = pc.Delete(context.Background(), seller, "n1")
	require.NoError(t, err)
	assert.Nil(t, res.Product)
	assert.Equal(t, "Produit supprimé avec succès", res.Message)
}

func TestProductClientUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products/upload-image", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "ring.jpg", hdr.Filename)
		assert.Equal(t, "jpegbytes", string(data))
		_, _ = io.WriteString(w, `{"success":true,"imageUrl":"https://cdn.example.com/ring.jpg"}`)
	}))
	defer srv.Close()

	pc, err := NewProductClient(srv.URL, Options{})
	require.NoError(t, err)
	u, err := pc.UploadImage(context.Background(), domain.Session{UpstreamToken: "x"}, "ring.jpg", strings.NewReader("jpegbytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/ring.jpg", u)
}

func TestProductClientUploadImageWithoutURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	pc, err := NewProductClient(srv.URL, Options{})
	require.NoError(t, err)
	_, err = pc.UploadImage(context.Background(), domain.Session{}, "a.png", strings.NewReader("x"))
	assert.ErrorIs(t, err, domain.ErrService)
}

func TestCartClientEscapesProductID(t *testing.T) {
	var gotRaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRaw = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{"success":true,"cart":{"items":[]}}`)
	}))
	defer srv.Close()

	cc, err := NewCartClient(srv.URL+"/api", Options{})
	require.NoError(t, err)
	_, err = cc.RemoveItem(context.Background(), buyer, "../orders/1")
	require.NoError(t, err)
	assert.Equal(t, "/api/cart/items/..%2Forders%2F1", gotRaw)
}

func TestCartClientRejectsReplyWithoutCart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"message":"Quantity updated"}`)
	}))
	defer srv.Close()

	cc, err := NewCartClient(srv.URL, Options{})
	require.NoError(t, err)

	calls := map[string]func() (domain.Cart, error){
		"get":            func() (domain.Cart, error) { return cc.Get(context.Background(), buyer) },
		"addItem":        func() (domain.Cart, error) { return cc.AddItem(context.Background(), buyer, "p1", 1) },
		"updateQuantity": func() (domain.Cart, error) { return cc.UpdateQuantity(context.Background(), buyer, "p1", 2) },
		"removeItem":     func() (domain.Cart, error) { return cc.RemoveItem(context.Background(), buyer, "p1") },
	}
	for op, call := range calls {
		t.Run(op, func(t *testing.T) {
			_, err := call()
			require.Error(t, err)
			var se *domain.ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, op, se.Op)
			assert.Contains(t, err.Error(), "missing cart")
		})
	}
}

func TestCartClientSendsSessionIdentity(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get(SessionHeader)+"|"+r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"success":true,"cart":{"items":[]}}`)
	}))
	defer srv.Close()

	cc, err := NewCartClient(srv.URL, Options{})
	require.NoError(t, err)

	guestA := domain.Session{ID: "guest-a", Role: domain.RoleBuyer}
	guestB := domain.Session{ID: "guest-b", Role: domain.RoleBuyer}
	_, err = cc.Get(context.Background(), guestA)
	require.NoError(t, err)
	_, err = cc.AddItem(context.Background(), guestB, "p1", 1)
	require.NoError(t, err)
	_, err = cc.Get(context.Background(), buyer)
	require.NoError(t, err)

	assert.Equal(t, []string{"guest-a|", "guest-b|", "s1|Bearer tok-123"}, seen)
}

func TestAuthClientMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/me", r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_, _ = io.WriteString(w, `{"success":true,"user":{"_id":"u1","username":"testseller","email":"s@example.com","role":"Seller"}}`)
		case "Bearer empty":
			_, _ = io.WriteString(w, `{"success":true}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"success":false,"error":"invalid token"}`)
		}
	}))
	defer srv.Close()

	ac, err := NewAuthClient(srv.URL, Options{})
	require.NoError(t, err)

	id, err := ac.Me(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "u1", Username: "testseller", Email: "s@example.com", Role: domain.RoleSeller}, id)

	_, err = ac.Me(context.Background(), "bad")
	var se *domain.ServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Status)

	_, err = ac.Me(context.Background(), "empty")
	assert.ErrorIs(t, err, domain.ErrService)
}
