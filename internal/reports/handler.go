// internal/reports/handler.go
package reports

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
	"lendingdesk/internal/respond"
)

type Handler struct {
	service Service
	log     logrus.FieldLogger
	today   func() dates.Date
}

func NewHandler(service Service, log logrus.FieldLogger) *Handler {
	return &Handler{service: service, log: log, today: dates.Today}
}

func (h *Handler) HandleBooks(w http.ResponseWriter, r *http.Request) {
	h.write(w)(h.service.MasterList(r.Context(), model.Book))
}

func (h *Handler) HandleMovies(w http.ResponseWriter, r *http.Request) {
	h.write(w)(h.service.MasterList(r.Context(), model.Movie))
}

func (h *Handler) HandleMembers(w http.ResponseWriter, r *http.Request) {
	h.write(w)(h.service.Members(r.Context()))
}

func (h *Handler) HandleActiveIssues(w http.ResponseWriter, r *http.Request) {
	h.write(w)(h.service.ActiveIssues(r.Context()))
}

// HandleOverdue reports issues overdue as of the as_of query date, today by default.
func (h *Handler) HandleOverdue(w http.ResponseWriter, r *http.Request) {
	asOf := h.today()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		d, err := dates.Parse(raw)
		if err != nil {
			respond.Error(w, h.log, errs.Validation("invalid as_of %q", raw))
			return
		}
		asOf = d
	}
	h.write(w)(h.service.Overdue(r.Context(), asOf))
}

func (h *Handler) HandleRequests(w http.ResponseWriter, r *http.Request) {
	h.write(w)(h.service.Requests(r.Context()))
}

func (h *Handler) HandleDrift(w http.ResponseWriter, r *http.Request) {
	h.write(w)(h.service.StatusDrift(r.Context()))
}

func (h *Handler) write(w http.ResponseWriter) func(interface{}, error) {
	return func(rows interface{}, err error) {
		if err != nil {
			respond.Error(w, h.log, err)
			return
		}
		respond.JSON(w, http.StatusOK, rows)
	}
}
