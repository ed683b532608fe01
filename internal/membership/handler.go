// internal/membership/handler.go
package membership

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"

	"lendingdesk/internal/model"
	"lendingdesk/internal/respond"
)

type Handler struct {
	service Service
	log     logrus.FieldLogger
}

func NewHandler(service Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	var req NewMember
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	member, err := h.service.AddMember(r.Context(), req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusCreated, member)
}

func (h *Handler) HandleGetMember(w http.ResponseWriter, r *http.Request) {
	h.withMember(w, r, h.service.GetMember)
}

func (h *Handler) HandleExtend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Duration Duration `json:"duration"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	h.withMember(w, r, func(ctx context.Context, id int64) (*model.Member, error) {
		return h.service.ExtendMembership(ctx, id, req.Duration)
	})
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.withMember(w, r, h.service.CancelMembership)
}

func (h *Handler) withMember(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (*model.Member, error)) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	member, err := fn(r.Context(), id)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, member)
}
