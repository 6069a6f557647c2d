// Package api provides the HTTP API server for committing and querying
// memories and managing pages.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// JWTSecret is the HMAC secret bearer tokens are signed with.
	JWTSecret string
}
