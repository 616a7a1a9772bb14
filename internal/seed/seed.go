package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"storefront/internal/domain"
	sessionrepo "storefront/internal/repository/session"
)

type demoUser struct {
	Username string
	Role     domain.Role
	Token    string
}

// DemoUsers are the accounts the login page offers for manual testing.
var DemoUsers = []demoUser{
	{Username: "testadmin", Role: domain.RoleAdmin, Token: "demo-admin-token"},
	{Username: "testseller", Role: domain.RoleSeller, Token: "demo-seller-token"},
	{Username: "testbuyer", Role: domain.RoleBuyer, Token: "demo-buyer-token"},
}

// Apply inserts the demo sessions. It is idempotent via ON CONFLICT.
func Apply(ctx context.Context, pool *pgxpool.Pool, ttl time.Duration, upstreamToken string) ([]domain.Session, error) {
	return Sessions(ctx, sessionrepo.NewPostgres(pool), time.Now().UTC(), ttl, upstreamToken)
}

// Sessions upserts one session per demo user, valid for ttl from now.
func Sessions(ctx context.Context, repo sessionrepo.Repository, now time.Time, ttl time.Duration, upstreamToken string) ([]domain.Session, error) {
	out := make([]domain.Session, 0, len(DemoUsers))
	for _, u := range DemoUsers {
		userID := u.Username
		saved, err := repo.Upsert(ctx, domain.Session{
			ID:            uuid.NewString(),
			Token:         u.Token,
			UserID:        &userID,
			Username:      u.Username,
			Email:         u.Username + "@example.com",
			Role:          u.Role,
			UpstreamToken: upstreamToken,
			CreatedAt:     now,
			ExpiresAt:     now.Add(ttl),
		})
		if err != nil {
			return nil, fmt.Errorf("upsert session %s: %w", u.Username, err)
		}
		out = append(out, *saved)
	}
	return out, nil
}
