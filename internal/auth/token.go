package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/Jeffreasy/LaventeCareAuthSystems/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour
	clockSkewLeeway = 30 * time.Second
)

// Claims is the custom JWT claims shape for both token kinds (spec.md
// §4.4). Typ distinguishes access ("access") from refresh ("refresh");
// Family is only populated for refresh tokens (the jti claim).
type Claims struct {
	Email  string `json:"email"`
	Typ    string `json:"typ"`
	Family string `json:"jti,omitempty"`
	jwt.RegisteredClaims
}

// TokenProvider is C4: stateless signing/validation of access and
// family-tagged refresh tokens, using a single server secret (HS256).
type TokenProvider interface {
	GenerateAccessToken(userID, email string) (string, error)
	GenerateRefreshToken(userID, email, family string) (string, error)
	ValidateAccessToken(token string) (*Claims, error)
	ValidateRefreshToken(token string) (*Claims, error)
}

// JWTProvider implements TokenProvider with HMAC-SHA256 signing, adapted
// from the teacher's RSA-based provider: this domain has no public-key
// consumer, so a single shared secret replaces the PEM keypair and there is
// no JWKS to publish.
type JWTProvider struct {
	secret []byte
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

func (p *JWTProvider) GenerateAccessToken(userID, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Typ:   "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(accessTokenTTL)),
		},
	}
	return p.sign(claims)
}

func (p *JWTProvider) GenerateRefreshToken(userID, email, family string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:  email,
		Typ:    "refresh",
		Family: family,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        family,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(refreshTokenTTL)),
		},
	}
	return p.sign(claims)
}

func (p *JWTProvider) sign(claims Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (p *JWTProvider) ValidateAccessToken(tokenStr string) (*Claims, error) {
	claims, err := p.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Typ != "access" {
		return nil, apperr.New(apperr.InvalidToken, "invalid token")
	}
	return claims, nil
}

func (p *JWTProvider) ValidateRefreshToken(tokenStr string) (*Claims, error) {
	claims, err := p.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Typ != "refresh" || claims.Family == "" {
		return nil, apperr.New(apperr.InvalidToken, "invalid token")
	}
	return claims, nil
}

func (p *JWTProvider) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithLeeway(clockSkewLeeway))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.New(apperr.ExpiredToken, "token has expired")
		}
		return nil, apperr.New(apperr.InvalidToken, "invalid token")
	}

	return claims, nil
}
