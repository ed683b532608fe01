// internal/circulation/domain.go
package circulation

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/model"
)

// IssueRequest lends one item to a member.
type IssueRequest struct {
	Serial    string     `json:"serial_no"`
	MemberID  int64      `json:"member_id"`
	IssueDate dates.Date `json:"issue_date"`
	DueDate   dates.Date `json:"due_date"`
	Remarks   string     `json:"remarks"`
}

// FineQuote is what a return would settle if committed now. Quoting has no
// side effects.
type FineQuote struct {
	IssueID      uuid.UUID       `json:"issue_id"`
	Serial       string          `json:"serial_no"`
	MemberID     int64           `json:"member_id"`
	IssueDate    dates.Date      `json:"issue_date"`
	DueDate      dates.Date      `json:"due_date"`
	ReturnedOn   dates.Date      `json:"actual_return_date"`
	LateDays     int             `json:"late_days"`
	NewFine      decimal.Decimal `json:"new_fine"`
	PriorBalance decimal.Decimal `json:"prior_balance"`
	TotalDue     decimal.Decimal `json:"total_due"`
	Remarks      string          `json:"remarks"`
}

// Settlement is the outcome of a committed return.
type Settlement struct {
	Issue  model.Issue     `json:"issue"`
	Member model.Member    `json:"member"`
	Paid   decimal.Decimal `json:"paid"`
}

// lateDays counts whole calendar days between due and returned, never negative.
func lateDays(due, returned dates.Date) int {
	if n := returned.DaysSince(due); n > 0 {
		return n
	}
	return 0
}
