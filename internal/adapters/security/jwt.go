package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity facts the settlement api needs from a platform
// token: who the caller is and which role it carries.
type Claims struct {
	SubjectID string
	Role      string
	ExpiresAt time.Time
}

// JWTVerifier validates platform-issued HS256 tokens at the edge. The
// application layer only ever sees the extracted Claims.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &JWTVerifier{secret: []byte(secret)}, nil
}

type settlementJWTClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (v *JWTVerifier) ParseAndValidate(raw string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(raw, &settlementJWTClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*settlementJWTClaims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token claims")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, errors.New("token missing subject")
	}

	out := Claims{
		SubjectID: claims.Subject,
		Role:      strings.ToLower(strings.TrimSpace(claims.Role)),
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	return out, nil
}
