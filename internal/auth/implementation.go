// internal/auth/implementation.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
)

// service implements the Service interface.
type service struct {
	store       model.Store
	log         logrus.FieldLogger
	rateLimiter *rate.Limiter
}

// NewService creates a staff account service allowing loginsPerMinute
// authentication attempts per minute.
func NewService(store model.Store, log logrus.FieldLogger, loginsPerMinute int) Service {
	return &service{
		store:       store,
		log:         log.WithField("component", "auth"),
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(loginsPerMinute)), loginsPerMinute),
	}
}

// Authenticate verifies a user's credentials and returns the user if successful.
func (s *service) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	if !s.rateLimiter.Allow() {
		return nil, ErrRateLimited
	}

	var user *model.User
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		user, err = tx.GetUserByName(ctx, strings.TrimSpace(username))
		return err
	})
	if errors.Is(err, model.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	ok, err := verifyPassword(password, user.Salt, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if !ok || !user.IsActive {
		s.log.WithField("username", user.Username).Warn("rejected login")
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *service) CreateUser(ctx context.Context, req NewUser) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := errs.Required("username", req.Username); err != nil {
		return nil, err
	}
	if err := checkNewPassword(req.Password, req.Confirm); err != nil {
		return nil, err
	}

	hash, salt, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &model.User{
		ID:           uuid.New(),
		Username:     req.Username,
		PasswordHash: hash,
		Salt:         salt,
		IsAdmin:      req.IsAdmin,
		IsActive:     true,
	}

	err = s.store.InTx(ctx, func(tx model.Tx) error {
		if _, err := tx.GetUserByName(ctx, user.Username); err == nil {
			return model.ErrDuplicate
		} else if !errors.Is(err, model.ErrNoRows) {
			return err
		}
		return tx.InsertUser(ctx, user)
	})
	if errors.Is(err, model.ErrDuplicate) {
		return nil, errs.Conflict("username %q is taken", user.Username)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.WithFields(logrus.Fields{"username": user.Username, "admin": user.IsAdmin}).Info("user created")
	return user, nil
}

func (s *service) ChangePassword(ctx context.Context, username, password, confirm string) error {
	if err := checkNewPassword(password, confirm); err != nil {
		return err
	}
	hash, salt, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.update(ctx, username, "change password", func(u *model.User) {
		u.PasswordHash, u.Salt = hash, salt
	})
}

func (s *service) SetAdmin(ctx context.Context, username string, isAdmin bool) error {
	return s.update(ctx, username, "set admin", func(u *model.User) { u.IsAdmin = isAdmin })
}

func (s *service) SetActive(ctx context.Context, username string, active bool) error {
	return s.update(ctx, username, "set active", func(u *model.User) { u.IsActive = active })
}

func (s *service) update(ctx context.Context, username, op string, apply func(u *model.User)) error {
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		user, err := tx.GetUserByName(ctx, strings.TrimSpace(username))
		if errors.Is(err, model.ErrNoRows) {
			return errs.NotFound("user %q", username)
		}
		if err != nil {
			return err
		}
		apply(user)
		return tx.UpdateUser(ctx, user)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.WithField("username", username).Info(op)
	return nil
}

func (s *service) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		users, err = tx.ListUsers(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *service) Lookup(ctx context.Context, username string) (*model.User, error) {
	var user *model.User
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		user, err = tx.GetUserByName(ctx, strings.TrimSpace(username))
		return err
	})
	if errors.Is(err, model.ErrNoRows) {
		return nil, errs.NotFound("user %q", username)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *service) EnsureUser(ctx context.Context, username, password string, isAdmin bool) (bool, error) {
	_, err := s.CreateUser(ctx, NewUser{Username: username, Password: password, Confirm: password, IsAdmin: isAdmin})
	if errors.Is(err, errs.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
