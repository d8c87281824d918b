package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/timoknapp/sports-meet/pkg/models"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	ClassID   string      `json:"classId,omitempty"`
	ClassName string      `json:"className,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs sessions into HS256 bearer tokens for the HTTP API.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (i *TokenIssuer) Issue(s Session) (string, error) {
	now := i.now()
	claims := Claims{
		Name:      s.UserName,
		Role:      s.Role,
		ClassID:   s.ClassID,
		ClassName: s.ClassName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			Issuer:    "sports-meet",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (i *TokenIssuer) Parse(tokenString string) (Session, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return Session{}, ErrInvalidToken
	}
	return Session{
		UserID:    claims.Subject,
		UserName:  claims.Name,
		Role:      claims.Role,
		ClassID:   claims.ClassID,
		ClassName: claims.ClassName,
	}, nil
}
