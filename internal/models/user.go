package models

import (
	"time"
)

// Role represents user roles in the system
type Role string

const (
	RoleOwner    Role = "owner"
	RoleOperator Role = "operator"
	RoleFarmer   Role = "farmer"
)

// User represents a user in the system
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Username     string    `bson:"username" json:"username"`
	PasswordHash string    `bson:"password" json:"-"`
	FullName     string    `bson:"full_name" json:"fullName"`
	Role         Role      `bson:"role" json:"role"`
	Phone        *string   `bson:"phone,omitempty" json:"phone"`
	IsActive     bool      `bson:"is_active" json:"isActive"`
	CreatedAt    time.Time `bson:"created_at" json:"createdAt"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	FullName string  `json:"fullName"`
	Role     Role    `json:"role"`
	Phone    *string `json:"phone"`
}

// LoginResponse represents a successful login or registration response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	FullName string `json:"fullName"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleOwner, RoleOperator, RoleFarmer:
		return true
	default:
		return false
	}
}

// HasRole reports whether the role is one of the allowed roles.
func (r Role) HasRole(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
