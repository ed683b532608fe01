// internal/auth/handler.go
package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"lendingdesk/internal/respond"
)

type Handler struct {
	service Service
	tokens  *Tokens
	log     logrus.FieldLogger
}

func NewHandler(service Service, tokens *Tokens, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, tokens: tokens, log: log}
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, ErrRateLimited):
		respond.JSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, ErrInvalidCredentials):
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	case err != nil:
		respond.Error(w, h.log, err)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"token":    token,
		"username": user.Username,
		"is_admin": user.IsAdmin,
	})
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, users)
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req NewUser
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	user, err := h.service.CreateUser(r.Context(), req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusCreated, user)
}

// HandleUpdateUser applies whichever of password, is_admin and is_active the body sets.
func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password *string `json:"password"`
		Confirm  string  `json:"confirm"`
		IsAdmin  *bool   `json:"is_admin"`
		IsActive *bool   `json:"is_active"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	ctx, username := r.Context(), chi.URLParam(r, "username")
	var err error
	if req.Password != nil {
		err = h.service.ChangePassword(ctx, username, *req.Password, req.Confirm)
	}
	if err == nil && req.IsAdmin != nil {
		err = h.service.SetAdmin(ctx, username, *req.IsAdmin)
	}
	if err == nil && req.IsActive != nil {
		err = h.service.SetActive(ctx, username, *req.IsActive)
	}
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
