package session

import (
	"context"
	"time"

	"storefront/internal/domain"
)

type Repository interface {
	Create(ctx context.Context, sess domain.Session) error
	// Upsert inserts sess or replaces the row holding the same token.
	Upsert(ctx context.Context, sess domain.Session) (*domain.Session, error)
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions that expired before now and returns their ids.
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}
