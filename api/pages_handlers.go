package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/memoirhq/memoir/pkg/pages"
)

// PageResponse is the JSON form of a page.
type PageResponse struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Visibility string   `json:"visibility"`
	Owners     []string `json:"owners"`
	CreatedAt  string   `json:"created_at"`
	Deleted    bool     `json:"deleted"`
}

// CreatePageRequest is the body for creating a page.
type CreatePageRequest struct {
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	Visibility string `json:"visibility"`
}

// UpdatePageRequest is the body for patching a page. Absent fields are
// left unchanged.
type UpdatePageRequest struct {
	Title      *string `json:"title"`
	Visibility *string `json:"visibility"`
}

// InviteResponse is the JSON form of a page invite.
type InviteResponse struct {
	ID        string `json:"id"`
	PageSlug  string `json:"page_slug"`
	ExpiresAt string `json:"expires_at"`
}

func pageResponse(p *pages.Page) PageResponse {
	return PageResponse{
		Slug:       p.Slug,
		Title:      p.Title,
		Visibility: string(p.Visibility),
		Owners:     p.Owners,
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
		Deleted:    p.Deleted(),
	}
}

// handleGetMe returns the authenticated user's profile.
func (s *Server) handleGetMe(c *fiber.Ctx) error {
	// requireAuth already ensured the user exists; EnsureUser is
	// idempotent and returns the stored profile.
	user, err := s.pages.EnsureUser(c.Context(), currentUID(c), "")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to load user"})
	}

	return c.JSON(fiber.Map{
		"uid":           user.UID,
		"display_name":  user.DisplayName,
		"personal_slug": user.PersonalSlug,
	})
}

// handleListMyPages returns every live page the caller owns.
func (s *Server) handleListMyPages(c *fiber.Ctx) error {
	owned, err := s.pages.ListPagesForUser(c.Context(), currentUID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list pages"})
	}

	resp := make([]PageResponse, 0, len(owned))
	for i := range owned {
		resp = append(resp, pageResponse(&owned[i]))
	}
	return c.JSON(fiber.Map{"pages": resp})
}

// handleCreatePage creates a page owned by the caller.
func (s *Server) handleCreatePage(c *fiber.Ctx) error {
	var req CreatePageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Slug == "" || req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "slug and title are required"})
	}

	page, err := s.pages.CreatePage(c.Context(), currentUID(c), req.Slug, req.Title, pages.Visibility(req.Visibility))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pageResponse(page))
}

// handleGetPage returns a page's metadata, subject to read visibility.
func (s *Server) handleGetPage(c *fiber.Ctx) error {
	page, err := s.readablePage(c)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(pageResponse(page))
}

// handleUpdatePage patches a page's title or visibility.
func (s *Server) handleUpdatePage(c *fiber.Ctx) error {
	var req UpdatePageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	var visibility *pages.Visibility
	if req.Visibility != nil {
		v := pages.Visibility(*req.Visibility)
		visibility = &v
	}

	page, err := s.pages.UpdatePage(c.Context(), currentUID(c), c.Params("slug"), req.Title, visibility)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(pageResponse(page))
}

// handleDeletePage soft-deletes a page.
func (s *Server) handleDeletePage(c *fiber.Ctx) error {
	if err := s.pages.DeletePage(c.Context(), currentUID(c), c.Params("slug")); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// handleRestorePage brings a soft-deleted page back.
func (s *Server) handleRestorePage(c *fiber.Ctx) error {
	page, err := s.pages.RestorePage(c.Context(), currentUID(c), c.Params("slug"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(pageResponse(page))
}

// handleRemoveOwner removes one owner from a page.
func (s *Server) handleRemoveOwner(c *fiber.Ctx) error {
	page, err := s.pages.RemoveOwner(c.Context(), currentUID(c), c.Params("slug"), c.Params("uid"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(pageResponse(page))
}

// handleCreateInvite mints a share invite for a page.
func (s *Server) handleCreateInvite(c *fiber.Ctx) error {
	invite, err := s.pages.CreateInvite(c.Context(), currentUID(c), c.Params("slug"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(InviteResponse{
		ID:        invite.ID,
		PageSlug:  invite.PageSlug,
		ExpiresAt: invite.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// handleAcceptInvite adds the caller as an owner of the invited page.
func (s *Server) handleAcceptInvite(c *fiber.Ctx) error {
	page, err := s.pages.AcceptInvite(c.Context(), currentUID(c), c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(pageResponse(page))
}

// respondError maps page-management errors onto HTTP statuses.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, pages.ErrNotFound):
		status, message = fiber.StatusNotFound, "page not found"
	case errors.Is(err, pages.ErrNotOwner):
		status, message = fiber.StatusForbidden, "not an owner of this page"
	case errors.Is(err, pages.ErrSlugTaken):
		status, message = fiber.StatusConflict, "slug already taken"
	case errors.Is(err, pages.ErrLastOwner):
		status, message = fiber.StatusConflict, "cannot remove the last owner"
	case errors.Is(err, pages.ErrInviteUsed):
		status, message = fiber.StatusConflict, "invite already accepted"
	case errors.Is(err, pages.ErrInviteExpired):
		status, message = fiber.StatusGone, "invite expired"
	case errors.Is(err, pages.ErrInvalidVisibility):
		status, message = fiber.StatusBadRequest, "visibility must be public or personal"
	}

	return c.Status(status).JSON(ErrorResponse{Error: message})
}
