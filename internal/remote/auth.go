package remote

import (
	"context"
	"net/http"
	"strings"

	"storefront/internal/domain"
)

// Identity is the signed-in user behind an authentication service token.
type Identity struct {
	UserID   string
	Username string
	Email    string
	Role     domain.Role
}

// AuthClient asks the authentication service who a token belongs to.
type AuthClient struct {
	c *Client
}

func NewAuthClient(baseURL string, opts Options) (*AuthClient, error) {
	c, err := NewClient("auth", baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &AuthClient{c: c}, nil
}

type wireUser struct {
	ID       string `json:"id"`
	LegacyID string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type meReply struct {
	User *wireUser `json:"user"`
	Data *wireUser `json:"data"`
}

// Me resolves token via GET /auth/me. A rejected token is a ServiceError
// with the upstream status, typically 401.
func (ac *AuthClient) Me(ctx context.Context, token string) (Identity, error) {
	var reply meReply
	if err := ac.c.do(ctx, request{op: "me", method: http.MethodGet, path: "/auth/me", token: token}, &reply); err != nil {
		return Identity{}, err
	}
	u := reply.User
	if u == nil {
		u = reply.Data
	}
	if u == nil || strings.TrimSpace(firstNonEmpty(u.ID, u.LegacyID)) == "" {
		return Identity{}, ac.c.fail("me", http.StatusOK, "reply carried no user", nil)
	}
	return Identity{
		UserID:   firstNonEmpty(u.ID, u.LegacyID),
		Username: u.Username,
		Email:    u.Email,
		Role:     domain.ParseRole(u.Role),
	}, nil
}
