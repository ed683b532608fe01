// internal/reports/service.go
package reports

import (
	"context"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/model"
)

// Service defines the read-only report projections.
type Service interface {
	MasterList(ctx context.Context, kind model.Kind) ([]model.Item, error)
	Members(ctx context.Context) ([]model.Member, error)
	ActiveIssues(ctx context.Context) ([]IssueRow, error)
	Overdue(ctx context.Context, asOf dates.Date) ([]OverdueRow, error)
	Requests(ctx context.Context) ([]RequestRow, error)
	// StatusDrift lists items marked Issued without an open issue and
	// items with an open issue not marked Issued.
	StatusDrift(ctx context.Context) ([]Drift, error)
}
