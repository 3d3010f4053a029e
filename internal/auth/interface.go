package auth

import "campus/internal/domain/models"

// JWTVerifier validates bearer tokens for the auth middleware. The concrete
// implementation verifies against a JWKS endpoint.
type JWTVerifier interface {
	// VerifyToken parses and validates a token, returning its claims.
	// Invalid, expired, or mis-signed tokens all fail with ErrUnauthorized.
	VerifyToken(tokenString string) (*models.AuthClaims, error)

	// Close releases verifier resources such as the JWKS refresh loop.
	Close() error
}
