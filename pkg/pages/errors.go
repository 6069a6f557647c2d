package pages

import "errors"

var (
	// ErrNotFound indicates the requested page, invite, or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSlugTaken indicates a page with the requested slug already exists.
	ErrSlugTaken = errors.New("slug already taken")

	// ErrNotOwner indicates the actor is not an owner of the page.
	ErrNotOwner = errors.New("not a page owner")

	// ErrLastOwner indicates the mutation would leave the page ownerless.
	ErrLastOwner = errors.New("cannot remove the last owner")

	// ErrInvalidVisibility indicates an unknown visibility value.
	ErrInvalidVisibility = errors.New("invalid visibility")

	// ErrInviteExpired indicates the invite's expiry has passed.
	ErrInviteExpired = errors.New("invite expired")

	// ErrInviteUsed indicates the invite was already accepted.
	ErrInviteUsed = errors.New("invite already accepted")
)
