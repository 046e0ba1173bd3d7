package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mpspetcare/petcare-backend/pkg/enums"
)

// AccessTokenPayload is the caller identity minted into a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// AccessTokenClaims is the JWT claim set this service consumes. The rest of
// the platform issues these tokens; here they are only parsed.
type AccessTokenClaims struct {
	UserID uuid.UUID        `json:"user_id"`
	Role   enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
