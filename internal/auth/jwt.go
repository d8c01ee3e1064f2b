package auth

import (
	"errors"
	"slices"
	"time"

	"compliance-tracker-api/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidIssuer   = errors.New("invalid token issuer")
	ErrInvalidAudience = errors.New("invalid token audience")
	ErrInvalidToken    = errors.New("invalid token")
	ErrWrongTokenUse   = errors.New("token used for the wrong purpose")
)

// Token uses carried in the "use" claim.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Claims represents the JWT claims
type Claims struct {
	UserID   uint        `json:"user_id"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	Use      string      `json:"use,omitempty"`
	jwt.RegisteredClaims
}

// TokenConfig holds what is needed to sign and verify tokens. A zero TTL
// means 24 hours and a zero RefreshTTL means 7 days.
type TokenConfig struct {
	Secret     string
	Issuer     string
	Audience   string
	TTL        time.Duration
	RefreshTTL time.Duration
}

// TokenManager issues and validates HS256 tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	audience   string
	ttl        time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(cfg TokenConfig) *TokenManager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenManager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		ttl:        ttl,
		refreshTTL: refreshTTL,
	}
}

// GenerateToken generates an access token for the given user
func (m *TokenManager) GenerateToken(user models.User) (string, error) {
	return m.sign(user, UseAccess, m.ttl)
}

// GenerateRefreshToken generates a long-lived token that can only be traded
// for a new access token.
func (m *TokenManager) GenerateRefreshToken(user models.User) (string, error) {
	return m.sign(user, UseRefresh, m.refreshTTL)
}

func (m *TokenManager) sign(user models.User, use string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Use:      use,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken validates an access token and returns the claims
func (m *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Use == UseRefresh {
		return nil, ErrWrongTokenUse
	}
	return claims, nil
}

// ValidateRefreshToken validates a token issued by GenerateRefreshToken.
func (m *TokenManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Use != UseRefresh {
		return nil, ErrWrongTokenUse
	}
	return claims, nil
}

func (m *TokenManager) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != m.issuer {
		return nil, ErrInvalidIssuer
	}
	if !slices.Contains([]string(claims.Audience), m.audience) {
		return nil, ErrInvalidAudience
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
