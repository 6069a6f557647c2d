package api

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const uidLocal = "uid"

// requireAuth rejects requests without a valid bearer token and ensures the
// authenticated user exists.
func (s *Server) requireAuth(c *fiber.Ctx) error {
	uid, name, err := s.parseBearer(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: err.Error()})
	}

	if _, err := s.pages.EnsureUser(c.Context(), uid, name); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to resolve user"})
	}

	c.Locals(uidLocal, uid)
	return c.Next()
}

// optionalAuth records the caller's identity when a valid token is present
// and lets anonymous requests through. Handlers decide what anonymous
// callers may see.
func (s *Server) optionalAuth(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) == "" {
		return c.Next()
	}

	uid, _, err := s.parseBearer(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: err.Error()})
	}

	c.Locals(uidLocal, uid)
	return c.Next()
}

// currentUID returns the authenticated uid, or empty for anonymous requests.
func currentUID(c *fiber.Ctx) string {
	uid, _ := c.Locals(uidLocal).(string)
	return uid
}

// parseBearer validates the Authorization header and returns the token's
// uid and display name claims.
func (s *Server) parseBearer(c *fiber.Ctx) (uid, name string, err error) {
	header := c.Get(fiber.HeaderAuthorization)
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", "", fmt.Errorf("missing bearer token")
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("invalid bearer token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid token claims")
	}

	uid, _ = claims["uid"].(string)
	if uid == "" {
		uid, _ = claims["sub"].(string)
	}
	if uid == "" {
		return "", "", fmt.Errorf("token missing uid claim")
	}

	name, _ = claims["name"].(string)
	return uid, name, nil
}
