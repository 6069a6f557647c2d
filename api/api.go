package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/memoirhq/memoir/pkg/blob"
	"github.com/memoirhq/memoir/pkg/committer"
	"github.com/memoirhq/memoir/pkg/pages"
	"github.com/memoirhq/memoir/pkg/publisher"
	"github.com/memoirhq/memoir/pkg/storage"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server is the API server for the memoir system.
type Server struct {
	config    Config
	store     storage.Driver
	pages     *pages.Service
	committer *committer.Committer
	renderer  *publisher.Renderer
	blobs     blob.Store
	logger    *zap.Logger
	app       *fiber.App
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithBlobStore enables attachment uploads.
func WithBlobStore(blobs blob.Store) Option {
	return func(s *Server) {
		s.blobs = blobs
	}
}

// WithClock overrides the server clock.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a new API server. The storage driver and pages service
// are injected to allow sharing with CLI commands.
func NewServer(config Config, store storage.Driver, pageSvc *pages.Service, cmt *committer.Committer, logger *zap.Logger, opts ...Option) (*Server, error) {
	renderer, err := publisher.NewRenderer()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:    config,
		store:     store,
		pages:     pageSvc,
		committer: cmt,
		renderer:  renderer,
		logger:    logger,
		app:       app,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	app.Use(s.stripAPIPrefix)
	app.Use(s.requestLogger)

	app.Get("/healthz", s.handleHealthz)
	app.Get("/_healthz", s.handleHealthz)

	app.Get("/pages/:slug/memories", s.optionalAuth, s.handleListMemories)
	app.Post("/pages/:slug/memories", s.requireAuth, s.handleCommitMemory)
	app.Delete("/pages/:slug/memories/:id", s.requireAuth, s.handleDeleteMemory)
	app.Post("/pages/:slug/attachments", s.requireAuth, s.handleUploadAttachment)
	app.Get("/pages/:slug/digest", s.optionalAuth, s.handleDigest)

	app.Get("/users/me", s.requireAuth, s.handleGetMe)
	app.Get("/users/me/pages", s.requireAuth, s.handleListMyPages)

	app.Post("/pages", s.requireAuth, s.handleCreatePage)
	app.Get("/pages/:slug", s.optionalAuth, s.handleGetPage)
	app.Patch("/pages/:slug", s.requireAuth, s.handleUpdatePage)
	app.Delete("/pages/:slug", s.requireAuth, s.handleDeletePage)
	app.Post("/pages/:slug/restore", s.requireAuth, s.handleRestorePage)
	app.Delete("/pages/:slug/owners/:uid", s.requireAuth, s.handleRemoveOwner)

	app.Post("/pages/:slug/invites", s.requireAuth, s.handleCreateInvite)
	app.Post("/invites/:id/accept", s.requireAuth, s.handleAcceptInvite)

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
