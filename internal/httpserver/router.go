package httpserver

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/pricing"
	"storefront/internal/remote"
	cartsvc "storefront/internal/service/cart"
	"storefront/internal/service/catalog"
)

type SessionService interface {
	IssueGuest(ctx context.Context) (domain.Session, error)
	SignIn(ctx context.Context, upstreamToken string) (domain.Session, error)
	Resolve(ctx context.Context, token string) (domain.Session, error)
	End(ctx context.Context, sess domain.Session)
}

type CartRegistry interface {
	Open(ctx context.Context, sess domain.Session) *cartsvc.Store
}

type CatalogService interface {
	List(ctx context.Context, sess domain.Session, f catalog.Filters) ([]domain.Product, error)
	Categories() []domain.Category
}

type ProductService interface {
	Create(ctx context.Context, sess domain.Session, in domain.ProductInput) (remote.Result, error)
	Update(ctx context.Context, sess domain.Session, id string, in domain.ProductInput) (remote.Result, error)
	Delete(ctx context.Context, sess domain.Session, id string) (remote.Result, error)
	UploadImage(ctx context.Context, sess domain.Session, filename string, file io.Reader) (string, error)
}

// Deps are the services the router dispatches to.
type Deps struct {
	Sessions SessionService
	Carts    CartRegistry
	Catalog  CatalogService
	Products ProductService

	Formatter        *pricing.Formatter
	PlaceholderImage string
	CORSOrigins      []string
}

func (d Deps) validate() error {
	switch {
	case d.Sessions == nil:
		return errors.New("httpserver: Sessions dependency required")
	case d.Carts == nil:
		return errors.New("httpserver: Carts dependency required")
	case d.Catalog == nil:
		return errors.New("httpserver: Catalog dependency required")
	case d.Products == nil:
		return errors.New("httpserver: Products dependency required")
	case d.Formatter == nil:
		return errors.New("httpserver: Formatter dependency required")
	}
	return nil
}

// buildRouter wires routes for the API.
func buildRouter(logger *zap.Logger, db Pinger, deps Deps) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.PlaceholderImage == "" {
		deps.PlaceholderImage = defaultPlaceholderImage
	}

	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.LoggerWithWriter(zap.NewStdLog(logger.Named("access")).Writer()), gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps, logger: logger}

	api := router.Group("/api")
	api.GET("/categories", h.categories)
	api.POST("/sessions/guest", h.issueGuest)
	api.POST("/sessions", h.signIn)
	api.GET("/products", sessionMiddleware(deps.Sessions, logger, false), h.listProducts)

	authed := api.Group("", sessionMiddleware(deps.Sessions, logger, true))
	authed.DELETE("/sessions/current", h.endSession)
	authed.GET("/dashboard", h.dashboard)

	authed.GET("/cart", h.getCart)
	authed.POST("/cart/items", h.addCartItem)
	authed.PATCH("/cart/items/:productId", h.updateCartItem)
	authed.DELETE("/cart/items/:productId", h.removeCartItem)
	authed.POST("/cart/refresh", h.refreshCart)

	manage := authed.Group("/manage", requireRole(domain.RoleSeller, domain.RoleAdmin))
	manage.POST("/products", h.createProduct)
	manage.PUT("/products/:id", h.updateProduct)
	manage.DELETE("/products/:id", h.deleteProduct)
	manage.POST("/products/images", h.uploadProductImage)

	return router, nil
}

type handlers struct {
	deps   Deps
	logger *zap.Logger
}
