package entities

import (
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Role is the closed set of bearer-token roles the core recognizes.
type Role string

// Role values carried in a bearer token's claims.
const (
	RoleUser       Role = "user"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// JWTClaim represents the claims the core reads off an already-validated
// bearer token. Token issuance and validation themselves are an external
// collaborator; this shape is what the stubbed auth middleware parses.
type JWTClaim struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
}
