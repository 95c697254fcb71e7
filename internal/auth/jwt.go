package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is what the API needs back out of a token.
type Claims struct {
	UserID int64
	Role   string
}

// GenerateToken creates a new signed JWT for a user.
func GenerateToken(secret []byte, ttl time.Duration, userID int64, role string) (string, error) {
	now := time.Now()

	// 1. Create the claims. "sub" is the standard claim for the user id.
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}

	// 2. Sign with HS256
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses and validates a JWT token string.
func ValidateToken(secret []byte, tokenString string) (Claims, error) {
	// 1. Parse, rejecting anything not signed with HMAC
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return Claims{}, err // e.g. expired, malformed
	}

	// 2. Pull out subject and role
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	// JSON numbers come back as float64
	userIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return Claims{}, errors.New("invalid subject claim")
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return Claims{}, errors.New("invalid role claim")
	}

	return Claims{UserID: int64(userIDFloat), Role: role}, nil
}
