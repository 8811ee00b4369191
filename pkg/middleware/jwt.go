package middleware

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

type jwtClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTValidator accepts HS256 tokens signed with secret that carry user_id and
// role claims. Expiry is enforced when the token sets exp.
func JWTValidator(secret []byte) TokenValidator {
	return func(token string) (*Claims, error) {
		var c jwtClaims
		_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		if c.Role == "" {
			return nil, fmt.Errorf("%w: missing role claim", ErrInvalidToken)
		}
		if c.UserID == "" {
			c.UserID = c.Subject
		}
		return &Claims{UserID: c.UserID, Role: c.Role}, nil
	}
}

// AnyOf tries each validator in order and returns the first match.
func AnyOf(validators ...TokenValidator) TokenValidator {
	return func(token string) (*Claims, error) {
		for _, v := range validators {
			if c, err := v(token); err == nil {
				return c, nil
			}
		}
		return nil, ErrInvalidToken
	}
}
