package exts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenIssuer = "murmur"
	TokenCookie = "jwt"
)

// TokenKeeper issues and reads the HS256 session tokens.
type TokenKeeper struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenKeeper(secret string, ttl time.Duration) (*TokenKeeper, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 15 * 24 * time.Hour
	}
	return &TokenKeeper{secret: []byte(secret), ttl: ttl}, nil
}

func (v *TokenKeeper) TTL() time.Duration {
	return v.ttl
}

func (v *TokenKeeper) IssueToken(userID uint) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
	})
	return token.SignedString(v.secret)
}

func (v *TokenKeeper) ReadToken(raw string) (uint, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	claims := jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, errors.New("token expired")
		}
		return 0, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return 0, errors.New("token is not valid")
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("token subject is not valid: %q", claims.Subject)
	}
	return uint(id), nil
}

// ContextMiddleware stores the requester id in the context when a valid
// token is present. Requests without one pass through untouched.
func (v *TokenKeeper) ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := extractToken(c)
		if len(raw) == 0 {
			return c.Next()
		}
		if id, err := v.ReadToken(raw); err == nil {
			c.Locals("user_id", id)
		}
		return c.Next()
	}
}

func extractToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); len(header) > 0 {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if token := c.Get("auth-token"); len(token) > 0 {
		return token
	}
	return c.Cookies(TokenCookie)
}

func EnsureAuthenticated(c *fiber.Ctx) error {
	if _, ok := c.Locals("user_id").(uint); !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized: no valid token provided")
	}
	return nil
}

func GetUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("user_id").(uint)
	return id
}
