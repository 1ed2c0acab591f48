// Package session reads the caller out of a verified access token.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName holds the access token for page requests.
const CookieName = "access_token"

// LocalsKey is where the JWT middleware stores the parsed token.
const LocalsKey = "user"

var ErrNoSession = errors.New("no session")

type Claims struct {
	UserID uuid.UUID
	Email  string
	Role   string
}

// GetUserID extracts the user UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, err := FromContext(c)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

// FromContext reads the claims the JWT middleware left in locals.
func FromContext(c *fiber.Ctx) (*Claims, error) {
	token, ok := c.Locals(LocalsKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoSession
	}
	return fromToken(token)
}

func fromToken(token *jwt.Token) (*Claims, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("missing sub claim")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("invalid sub claim: %w", err)
	}

	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)
	return &Claims{UserID: id, Email: email, Role: role}, nil
}

// Parse verifies a raw HS256 access token.
func Parse(secret, raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrNoSession
	}
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return fromToken(token)
}

// Token returns the raw access token of a request: the bearer header first,
// then the session cookie.
func Token(c *fiber.Ctx) string {
	if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return c.Cookies(CookieName)
}
