package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID     string `json:"uid"`
	TenantID   string `json:"tid"`
	EmployeeID string `json:"eid,omitempty"`
	RoleName   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs claims with HS256. Tokens are normally issued by the
// identity service; this is used by tooling and tests.
func GenerateToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" || claims.TenantID == "" || claims.RoleName == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserContext is the authenticated caller attached to a request.
type UserContext struct {
	UserID     string
	TenantID   string
	EmployeeID string
	RoleName   string
}

func (c Claims) User() UserContext {
	return UserContext{
		UserID:     c.UserID,
		TenantID:   c.TenantID,
		EmployeeID: c.EmployeeID,
		RoleName:   c.RoleName,
	}
}
