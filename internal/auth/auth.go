package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel/media-catalog/internal/apperr"
	"github.com/gabriel/media-catalog/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	localsClaimsKey = "auth.claims"
	passwordCost    = 12
)

var ErrInvalidPassword = errors.New("invalid password")

func HashPassword(password string) (string, error) {
	return hashWithCost(password, passwordCost)
}

func hashWithCost(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func ComparePassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == models.RoleAdmin
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewManager(secret string, ttl time.Duration, issuer string) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{secret: []byte(secret), ttl: ttl, issuer: issuer}, nil
}

func (m *Manager) Issue(user models.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.ttl)
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (m *Manager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// RequireUser rejects requests without a valid bearer token and stores the
// claims for ClaimsFrom.
func (m *Manager) RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := m.claimsFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}
		c.Locals(localsClaimsKey, claims)
		return c.Next()
	}
}

// OptionalUser stores claims when a valid token is present and lets anonymous
// requests through.
func (m *Manager) OptionalUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}
		claims, err := m.claimsFromHeader(header)
		if err != nil {
			return err
		}
		c.Locals(localsClaimsKey, claims)
		return c.Next()
	}
}

// RequireAdmin must run after RequireUser.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := ClaimsFrom(c)
		if claims == nil {
			return apperr.Unauthorized("authentication required")
		}
		if !claims.IsAdmin() {
			return apperr.Forbidden("admin role required")
		}
		return c.Next()
	}
}

func ClaimsFrom(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(localsClaimsKey).(*Claims)
	return claims
}

func (m *Manager) claimsFromHeader(header string) (*Claims, error) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, apperr.Unauthorized("missing bearer token")
	}
	claims, err := m.Parse(strings.TrimSpace(token))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindUnauthorized, "invalid or expired token")
	}
	return claims, nil
}
