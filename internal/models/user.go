package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleFleetManager Role = "fleet_manager"
	RoleDriver       Role = "driver"
	RoleParent       Role = "parent"
)

// User represents a user in the system. Every non-admin user belongs to one
// school and is scoped to it on all fleet operations.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         Role               `bson:"role" json:"role"`
	SchoolSlug   string             `bson:"school_slug" json:"school_slug"`
	FirstName    string             `bson:"first_name" json:"first_name"`
	LastName     string             `bson:"last_name" json:"last_name"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	LastLogin    *time.Time         `bson:"last_login,omitempty" json:"last_login,omitempty"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Role       Role   `json:"role"`
	SchoolSlug string `json:"school_slug"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Role       Role   `json:"role"`
	SchoolSlug string `json:"school_slug"`
	Exp        int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleFleetManager, RoleDriver, RoleParent:
		return true
	default:
		return false
	}
}

// HasPermission checks if a user has permission for a specific action
func (u *User) HasPermission(action string) bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleFleetManager:
		return action != "delete_user" && action != "manage_users"
	case RoleDriver:
		return action == "report_telemetry" || action == "view_telemetry" ||
			action == "view_vehicles" || action == "view_routes"
	case RoleParent:
		return action == "view_fleet" || action == "view_telemetry" ||
			action == "view_routes"
	default:
		return false
	}
}

// CanAccessSchool reports whether the claims grant access to the given school
// slug. Admins see every tenant; everyone else only their own.
func (c *Claims) CanAccessSchool(slug string) bool {
	if c.Role == RoleAdmin {
		return true
	}
	return c.SchoolSlug != "" && c.SchoolSlug == slug
}
