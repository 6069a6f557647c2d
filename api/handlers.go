package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/memoirhq/memoir/pkg/extract"
	"github.com/memoirhq/memoir/pkg/memory"
	"github.com/memoirhq/memoir/pkg/pages"
	"github.com/memoirhq/memoir/pkg/storage"
)

// MemoryResponse is the JSON form of a stored memory.
type MemoryResponse struct {
	ID          string   `json:"id"`
	Target      *string  `json:"target"`
	Expires     string   `json:"expires"`
	Title       string   `json:"title,omitempty"`
	Time        string   `json:"time,omitempty"`
	Place       string   `json:"place,omitempty"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments,omitempty"`
}

// CommitRequest is the body for committing a message to a page.
type CommitRequest struct {
	Message     string   `json:"message"`
	Attachments []string `json:"attachments"`

	// Ref optionally overrides the reference date (ISO), for backfills.
	Ref string `json:"ref"`
}

// CommitResponse reports what the reconciliation decided.
type CommitResponse struct {
	Action string         `json:"action"`
	Memory MemoryResponse `json:"memory"`
}

func memoryResponse(id string, m *memory.Memory) MemoryResponse {
	resp := MemoryResponse{
		ID:          id,
		Expires:     memory.FormatDate(m.Expires),
		Title:       m.Title,
		Time:        m.Time,
		Place:       m.Place,
		Content:     m.Content,
		Attachments: m.Attachments,
	}
	if date, ok := m.Target.Date(); ok {
		formatted := memory.FormatDate(date)
		resp.Target = &formatted
	}
	return resp
}

// handleHealthz returns a simple health check response.
func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// handleListMemories returns a page's live memories. Public pages are open;
// personal pages are owner-only.
func (s *Server) handleListMemories(c *fiber.Ctx) error {
	page, err := s.readablePage(c)
	if err != nil {
		return s.respondError(c, err)
	}

	records, err := s.store.LoadLive(c.Context(), memory.PageScope(page.Slug), s.refDate(c.Query("ref")))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load memories"})
	}

	memories := make([]MemoryResponse, 0, len(records))
	for _, rec := range records {
		memories = append(memories, memoryResponse(rec.ID, rec.Memory))
	}

	return c.JSON(fiber.Map{
		"count":    len(memories),
		"memories": memories,
	})
}

// handleCommitMemory reconciles a message into a page's memories.
func (s *Server) handleCommitMemory(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if _, err := s.ownedPage(c, slug); err != nil {
		return s.respondError(c, err)
	}

	var req CommitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Message == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "message is required"})
	}

	ref := s.refDate(req.Ref)
	result, err := s.committer.Commit(c.Context(), memory.PageScope(slug), req.Message, ref, req.Attachments)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrExtractionFailed):
			return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "extraction failed"})
		case errors.Is(err, extract.ErrInvalidResult):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Error: err.Error()})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "commit failed"})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(CommitResponse{
		Action: string(result.Action),
		Memory: memoryResponse(result.ID, result.Memory),
	})
}

// handleDeleteMemory removes one memory from a page.
func (s *Server) handleDeleteMemory(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if _, err := s.ownedPage(c, slug); err != nil {
		return s.respondError(c, err)
	}

	id := c.Params("id")
	m, err := s.store.Get(c.Context(), id)
	if err != nil {
		var notFound storage.NotFoundError
		if errors.As(err, &notFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "memory not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load memory"})
	}

	// The record must belong to this page; identities are global.
	if m.Scope != memory.PageScope(slug) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "memory not found"})
	}

	if err := s.store.Delete(c.Context(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to delete memory"})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// handleUploadAttachment stores an uploaded file and returns its URL.
func (s *Server) handleUploadAttachment(c *fiber.Ctx) error {
	if s.blobs == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(ErrorResponse{Error: "attachment uploads not configured"})
	}

	slug := c.Params("slug")
	if _, err := s.ownedPage(c, slug); err != nil {
		return s.respondError(c, err)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "file is required"})
	}

	f, err := header.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "failed to read file"})
	}
	defer f.Close()

	url, err := s.blobs.Upload(c.Context(), header.Filename, f)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to store file"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}

// handleDigest renders a page's weekly digest as HTML.
func (s *Server) handleDigest(c *fiber.Ctx) error {
	page, err := s.readablePage(c)
	if err != nil {
		return s.respondError(c, err)
	}

	ref := s.refDate(c.Query("ref"))
	records, err := s.store.LoadLive(c.Context(), memory.PageScope(page.Slug), ref)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load memories"})
	}

	html, err := s.renderer.Render(page.Title, records, ref)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to render digest"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(html)
}

// readablePage loads the requested page and enforces read visibility:
// public pages are open, personal pages owner-only. Personal pages read as
// missing for everyone else.
func (s *Server) readablePage(c *fiber.Ctx) (*pages.Page, error) {
	page, err := s.pages.GetPage(c.Context(), c.Params("slug"))
	if err != nil {
		return nil, err
	}

	if page.Visibility == pages.VisibilityPersonal && !page.HasOwner(currentUID(c)) {
		return nil, pages.ErrNotFound
	}
	return page, nil
}

// ownedPage loads the requested page and requires the caller to be an owner.
func (s *Server) ownedPage(c *fiber.Ctx, slug string) (*pages.Page, error) {
	page, err := s.pages.GetPage(c.Context(), slug)
	if err != nil {
		return nil, err
	}
	if !page.HasOwner(currentUID(c)) {
		return nil, pages.ErrNotOwner
	}
	return page, nil
}

// refDate parses an optional ISO reference date, defaulting to today.
func (s *Server) refDate(raw string) time.Time {
	if raw != "" {
		if d, err := memory.ParseDate(raw); err == nil {
			return d
		}
	}
	return memory.Truncate(s.now().UTC())
}
