package products

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/domain"
	"storefront/internal/remote"
)

// ErrInvalidProduct wraps every validation failure of a product payload.
var ErrInvalidProduct = errors.New("invalid product")

// Backend is the external product management service.
type Backend interface {
	Create(ctx context.Context, sess domain.Session, in domain.ProductInput) (remote.Result, error)
	Update(ctx context.Context, sess domain.Session, id string, in domain.ProductInput) (remote.Result, error)
	Delete(ctx context.Context, sess domain.Session, id string) (remote.Result, error)
	UploadImage(ctx context.Context, sess domain.Session, filename string, file io.Reader) (string, error)
}

// Invalidator is told when listed products may have changed.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

type Service struct {
	backend Backend
	catalog Invalidator
	logger  *zap.Logger
}

func New(backend Backend, catalog Invalidator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, catalog: catalog, logger: logger}
}

func (s *Service) Create(ctx context.Context, sess domain.Session, in domain.ProductInput) (remote.Result, error) {
	if err := authorize(sess); err != nil {
		return remote.Result{}, err
	}
	in, err := Validate(in)
	if err != nil {
		return remote.Result{}, err
	}
	res, err := s.backend.Create(ctx, sess, in)
	if err != nil {
		return remote.Result{}, fmt.Errorf("create product: %w", err)
	}
	s.changed(ctx, "create", res)
	return res, nil
}

func (s *Service) Update(ctx context.Context, sess domain.Session, id string, in domain.ProductInput) (remote.Result, error) {
	if err := authorize(sess); err != nil {
		return remote.Result{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return remote.Result{}, fmt.Errorf("%w: id required", ErrInvalidProduct)
	}
	in, err := Validate(in)
	if err != nil {
		return remote.Result{}, err
	}
	res, err := s.backend.Update(ctx, sess, id, in)
	if err != nil {
		return remote.Result{}, fmt.Errorf("update product %s: %w", id, err)
	}
	s.changed(ctx, "update", res)
	return res, nil
}

func (s *Service) Delete(ctx context.Context, sess domain.Session, id string) (remote.Result, error) {
	if err := authorize(sess); err != nil {
		return remote.Result{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return remote.Result{}, fmt.Errorf("%w: id required", ErrInvalidProduct)
	}
	res, err := s.backend.Delete(ctx, sess, id)
	if err != nil {
		return remote.Result{}, fmt.Errorf("delete product %s: %w", id, err)
	}
	s.changed(ctx, "delete", res)
	return res, nil
}

// UploadImage relays one image file and returns the URL the backend stored it at.
func (s *Service) UploadImage(ctx context.Context, sess domain.Session, filename string, file io.Reader) (string, error) {
	if err := authorize(sess); err != nil {
		return "", err
	}
	if !imageExtensions[strings.ToLower(filepath.Ext(filename))] {
		return "", fmt.Errorf("%w: unsupported image type %q", ErrInvalidProduct, filepath.Ext(filename))
	}
	u, err := s.backend.UploadImage(ctx, sess, filepath.Base(filename), file)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	s.logger.Info("product image uploaded", zap.String("session_id", sess.ID), zap.String("url", u))
	return u, nil
}

func (s *Service) changed(ctx context.Context, op string, res remote.Result) {
	fields := []zap.Field{zap.String("op", op)}
	if res.Product != nil {
		fields = append(fields, zap.String("product_id", res.Product.ID))
	}
	s.logger.Info("product changed", fields...)
	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
}

func authorize(sess domain.Session) error {
	if !sess.Role.CanManageProducts() {
		return domain.ErrForbidden
	}
	return nil
}

// Validate trims the payload and checks name, price and stock.
func Validate(in domain.ProductInput) (domain.ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return in, fmt.Errorf("%w: name required", ErrInvalidProduct)
	}
	if in.Price.IsNegative() {
		return in, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if in.StockQuantity < 0 {
		return in, fmt.Errorf("%w: stockQuantity must not be negative", ErrInvalidProduct)
	}
	if in.ImageURLs == nil {
		in.ImageURLs = []string{}
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	if in.Specifications == nil {
		in.Specifications = map[string]string{}
	}
	return in, nil
}
