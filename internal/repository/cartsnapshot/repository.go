package cartsnapshot

import (
	"context"

	"storefront/internal/domain"
)

// Repository keeps the last cart each session adopted from the cart service.
type Repository interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, sessionID string, cart domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}
