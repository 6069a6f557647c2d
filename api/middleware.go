package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// stripAPIPrefix lets the server sit behind an /api mount without every
// route declaring the prefix.
func (s *Server) stripAPIPrefix(c *fiber.Ctx) error {
	if path := c.Path(); strings.HasPrefix(path, "/api/") {
		c.Path(strings.TrimPrefix(path, "/api"))
	}
	return c.Next()
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	s.logger.Info("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("duration", time.Since(start)),
	)
	return err
}
