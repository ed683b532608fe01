// internal/requests/handler.go
package requests

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/respond"
)

type Handler struct {
	service Service
	log     logrus.FieldLogger
}

func NewHandler(service Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log}
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req NewRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	created, err := h.service.Create(r.Context(), req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusCreated, created)
}

func (h *Handler) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	var req struct {
		FulfilledOn dates.Date `json:"fulfilled_on"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	fulfilled, err := h.service.Fulfill(r.Context(), id, req.FulfilledOn)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, fulfilled)
}
