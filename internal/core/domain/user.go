package domain

import "time"

// Role is the marketplace role of an authenticated principal.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleMerchant
}

// CanBuy reports whether the role is allowed to purchase items.
func (r Role) CanBuy() bool {
	return r == RoleCustomer
}

// User is a registered account. Every user owns at most one wallet.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the authenticated actor of a request.
type Principal struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}
