package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates the capability roles recognised by the platform.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleFaculty UserRole = "faculty"
	RoleStudent UserRole = "student"
)

// JWTClaims represents the access-token payload resolved by the identity
// collaborator. InstituteID is the tenant boundary: every repository query is
// filtered by it.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	InstituteID string   `json:"institute_id"`
	Role        UserRole `json:"role"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name"`
	jwt.RegisteredClaims
}
