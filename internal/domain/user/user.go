package user

import "time"

// Role is a closed set. Keeping it a named type means a typo'd role is a
// compile error in our code and a validation error at the edges, never a
// silently-denied (or silently-granted) request.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"` // never expose hash in JSON
	Role              Role      `json:"role"`
	PasswordChangedAt time.Time `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
