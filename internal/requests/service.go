// internal/requests/service.go
package requests

import (
	"context"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/model"
)

// NewRequest records a member asking for a title the collection lacks.
type NewRequest struct {
	MemberID    int64      `json:"member_id"`
	Title       string     `json:"title"`
	RequestedOn dates.Date `json:"requested_on"`
}

// Service defines the interface for title requests.
type Service interface {
	Create(ctx context.Context, req NewRequest) (*model.Request, error)
	Fulfill(ctx context.Context, id int64, fulfilledOn dates.Date) (*model.Request, error)
}
