package domain

import "time"

// Role gates dashboard routing and product management.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleSeller Role = "Seller"
	RoleBuyer  Role = "Buyer"
)

// ParseRole maps an arbitrary role string to a Role; unknown values are buyers.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleSeller:
		return Role(s)
	default:
		return RoleBuyer
	}
}

// CanManageProducts reports whether the role may create, edit or delete products.
func (r Role) CanManageProducts() bool {
	return r == RoleAdmin || r == RoleSeller
}

// DashboardPath is where the role's dashboard lives.
func (r Role) DashboardPath() string {
	switch r {
	case RoleAdmin:
		return "/dashboard/admin"
	case RoleSeller:
		return "/dashboard/seller"
	default:
		return "/profile"
	}
}

// Session is the explicit context passed to every cart, catalog and
// management call. UpstreamToken is forwarded as a bearer token.
type Session struct {
	ID            string    `json:"id"`
	Token         string    `json:"-"`
	UserID        *string   `json:"userId,omitempty"`
	Username      string    `json:"username,omitempty"`
	Email         string    `json:"email,omitempty"`
	Role          Role      `json:"role"`
	UpstreamToken string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

func (s Session) IsGuest() bool {
	return s.UserID == nil
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
