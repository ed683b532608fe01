// internal/auth/service.go
package auth

import (
	"context"

	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
)

var (
	ErrInvalidCredentials = &errs.Error{Kind: errs.KindValidation, Msg: "invalid username or password"}
	ErrRateLimited        = &errs.Error{Kind: errs.KindConflict, Msg: "rate limit exceeded"}
)

// NewUser carries the fields of the add-user form.
type NewUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
	IsAdmin  bool   `json:"is_admin"`
}

// Service defines the interface for staff accounts.
type Service interface {
	Authenticate(ctx context.Context, username, password string) (*model.User, error)
	CreateUser(ctx context.Context, req NewUser) (*model.User, error)
	ChangePassword(ctx context.Context, username, password, confirm string) error
	SetAdmin(ctx context.Context, username string, isAdmin bool) error
	SetActive(ctx context.Context, username string, active bool) error
	ListUsers(ctx context.Context) ([]model.User, error)
	// Lookup returns the current state of the named account.
	Lookup(ctx context.Context, username string) (*model.User, error)
	// EnsureUser creates the account unless a user with that name exists.
	EnsureUser(ctx context.Context, username, password string, isAdmin bool) (bool, error)
}
