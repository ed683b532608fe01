// internal/catalog/handler.go
package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
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

func (h *Handler) HandleAddItems(w http.ResponseWriter, r *http.Request) {
	var req NewItems
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	items, err := h.service.AddItems(r.Context(), req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusCreated, items)
}

func (h *Handler) HandleFindItems(w http.ResponseWriter, r *http.Request) {
	items := []model.Item{}
	for item, err := range h.service.FindItems(r.Context(), r.URL.Query().Get("q")) {
		if err != nil {
			respond.Error(w, h.log, err)
			return
		}
		items = append(items, item)
	}

	respond.JSON(w, http.StatusOK, items)
}

func (h *Handler) HandleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "serial"))
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, item)
}

func (h *Handler) HandleSetItemStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.ItemStatus `json:"status"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	serial := chi.URLParam(r, "serial")
	if err := h.service.SetItemStatus(r.Context(), serial, req.Status); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
