package auth

import (
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/dicri/evidence-service/internal/domain"
)

// TokenManager handles issuing and validating JWT tokens. Access and refresh
// tokens are signed with different secrets.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(accessSecret, refreshSecret string, accessTTLMinutes, refreshTTLMinutes int) *TokenManager {
	if accessTTLMinutes <= 0 {
		accessTTLMinutes = 60
	}
	if refreshTTLMinutes <= 0 {
		refreshTTLMinutes = 7 * 24 * 60
	}
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     time.Duration(accessTTLMinutes) * time.Minute,
		refreshTTL:    time.Duration(refreshTTLMinutes) * time.Minute,
		now:           time.Now,
	}
}

// Claims describes JWT payload.
type Claims struct {
	UserID int64            `json:"id"`
	Email  string           `json:"email"`
	Role   domain.Role      `json:"role"`
	Type   domain.TokenType `json:"typ"`
	jwt.RegisteredClaims
}

var errTokenType = errors.New("unexpected token type")

func (tm *TokenManager) params(t domain.TokenType) ([]byte, time.Duration) {
	if t == domain.TokenTypeRefresh {
		return tm.refreshSecret, tm.refreshTTL
	}
	return tm.accessSecret, tm.accessTTL
}

// GenerateToken builds and signs a JWT of the given type for the user.
func (tm *TokenManager) GenerateToken(user *domain.User, tokenType domain.TokenType) (string, time.Time, error) {
	secret, ttl := tm.params(tokenType)
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// GeneratePair issues an access and a refresh token.
func (tm *TokenManager) GeneratePair(user *domain.User) (*domain.TokenPair, error) {
	access, accessExp, err := tm.GenerateToken(user, domain.TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := tm.GenerateToken(user, domain.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ParseToken validates signature, expiry and type and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string, tokenType domain.TokenType) (*Claims, error) {
	secret, _ := tm.params(tokenType)
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Type != tokenType {
		return nil, errTokenType
	}
	return claims, nil
}
