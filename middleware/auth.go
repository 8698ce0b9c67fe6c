package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"ClientMax/Access"
	"ClientMax/Models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

const (
	// CookieName holds the session token.
	CookieName = "jwt"
	sessionKey = "session"
	tokenTTL   = 24 * time.Hour
)

// EmployeeLookup resolves the employee named by a token.
type EmployeeLookup interface {
	Get(ctx context.Context, id string) (Models.Employee, error)
}

// Authenticator issues and verifies session tokens.
type Authenticator struct {
	Secret    []byte
	Employees EmployeeLookup
	Gate      *Access.Gate
}

func NewAuthenticator(secret string, employees EmployeeLookup, gate *Access.Gate) *Authenticator {
	return &Authenticator{Secret: []byte(secret), Employees: employees, Gate: gate}
}

// IssueToken signs a token for the employee. The issuer carries the employee id.
func (a *Authenticator) IssueToken(e Models.Employee, now time.Time) (string, time.Time, error) {
	expires := now.Add(tokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    e.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func (a *Authenticator) tokenFrom(c *fiber.Ctx) string {
	if cookie := c.Cookies(CookieName); cookie != "" {
		return cookie
	}
	if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	// EventSource cannot set headers, so streams may pass the token in the query.
	return c.Query("token")
}

// Verify requires a valid token and stores the session for later handlers.
func (a *Authenticator) Verify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := a.tokenFrom(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not Logged In.",
			})
		}

		token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return a.Secret, nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok || claims.Issuer == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token claims",
			})
		}

		employee, err := a.Employees.Get(c.UserContext(), claims.Issuer)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Employee not found",
			})
		}

		c.Locals(sessionKey, a.Gate.NewSession(employee))
		return c.Next()
	}
}

// RequirePrivileged must run after Verify.
func (a *Authenticator) RequirePrivileged() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := SessionFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not Logged In.",
			})
		}
		if !session.Privileged {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Only the CEO can access this resource",
			})
		}
		return c.Next()
	}
}

// SessionFrom returns the session stored by Verify.
func SessionFrom(c *fiber.Ctx) (Access.Session, bool) {
	session, ok := c.Locals(sessionKey).(Access.Session)
	return session, ok
}
