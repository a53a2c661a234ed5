// Package auth verifies credentials and issues opaque bearer tokens
// stored in Redis. Tenant membership and roles are resolved separately
// per request, so one token works across every company the user belongs
// to.
package auth

import "time"

// User is an account row. PasswordHash is a bcrypt digest.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// Identity is the authenticated principal carried by a token.
type Identity struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}
