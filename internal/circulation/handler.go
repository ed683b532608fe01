// internal/circulation/handler.go
package circulation

import (
	"net/http"

	"github.com/shopspring/decimal"
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

func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	var req IssueRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	issue, err := h.service.IssueItem(r.Context(), req)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusCreated, issue)
}

func (h *Handler) HandleQuoteReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Serial     string     `json:"serial_no"`
		ReturnedOn dates.Date `json:"actual_return_date"`
		Remarks    string     `json:"remarks"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	quote, err := h.service.QuoteReturn(r.Context(), req.Serial, req.ReturnedOn, req.Remarks)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, quote)
}

func (h *Handler) HandleCommitReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quote FineQuote       `json:"quote"`
		Paid  decimal.Decimal `json:"paid"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	settlement, err := h.service.CommitReturn(r.Context(), &req.Quote, req.Paid)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, settlement)
}

func (h *Handler) HandlePayFine(w http.ResponseWriter, r *http.Request) {
	id, err := respond.IDParam(r, "id")
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, h.log, err)
		return
	}

	member, err := h.service.PayFine(r.Context(), id, req.Amount)
	if err != nil {
		respond.Error(w, h.log, err)
		return
	}

	respond.JSON(w, http.StatusOK, member)
}
