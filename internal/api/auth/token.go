package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/identsvc/go-user-accounts/config"
	"github.com/identsvc/go-user-accounts/internal/types"
)

// TokenIssuer produces signed session tokens. The token is self-contained:
// it carries the user id and role so subsequent requests are re-identified
// without a store lookup.
type TokenIssuer struct {
	cfg config.JWTConfig
}

func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg}
}

// Issue signs a session token for the authenticated identity. It fails only
// when the signing key is unavailable, surfaced as types.ErrSigning.
func (t *TokenIssuer) Issue(userID, username string, role types.Role) (string, error) {
	if t.cfg.SecretKey == "" {
		return "", fmt.Errorf("%w: signing key not configured", types.ErrSigning)
	}

	ttl := t.cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	now := time.Now()
	claims := &types.Claims{
		UserID:   userID,
		Username: username,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    t.cfg.Issuer,
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(t.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrSigning, err)
	}
	return signed, nil
}
