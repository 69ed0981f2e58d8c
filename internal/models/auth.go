package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system. User records
// themselves live in the identity service; only the claims travel here.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleRegistrar UserRole = "REGISTRAR"
	RoleProfessor UserRole = "PROFESSOR"
)

// JWTClaims is the payload carried by access tokens issued by the identity service.
type JWTClaims struct {
	UserID       string   `json:"user_id"`
	Role         UserRole `json:"role"`
	Email        string   `json:"email"`
	UniversityID string   `json:"university_id"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
