// internal/circulation/service.go
package circulation

import (
	"context"

	"github.com/shopspring/decimal"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/model"
)

// Service defines the interface for the circulation service. It keeps item
// status, the issue ledger and member fine balances in step.
type Service interface {
	IssueItem(ctx context.Context, req IssueRequest) (*model.Issue, error)
	QuoteReturn(ctx context.Context, serial string, returnedOn dates.Date, remarks string) (*FineQuote, error)
	CommitReturn(ctx context.Context, quote *FineQuote, paidNow decimal.Decimal) (*Settlement, error)
	PayFine(ctx context.Context, memberID int64, amount decimal.Decimal) (*model.Member, error)
}
