// internal/reports/domain.go
package reports

import (
	"lendingdesk/internal/dates"
	"lendingdesk/internal/model"
)

// IssueRow is an open ledger entry joined with its item and member.
type IssueRow struct {
	Serial     string     `json:"serial_no"`
	Title      string     `json:"title"`
	Kind       model.Kind `json:"kind"`
	MemberID   int64      `json:"member_id"`
	MemberName string     `json:"member_name"`
	IssueDate  dates.Date `json:"issue_date"`
	DueDate    dates.Date `json:"due_date"`
}

type OverdueRow struct {
	IssueRow
	DaysOverdue int `json:"days_overdue"`
}

type RequestStatus string

const (
	Pending   RequestStatus = "Pending"
	Fulfilled RequestStatus = "Fulfilled"
)

type RequestRow struct {
	model.Request
	Status RequestStatus `json:"status"`
}

// Drift describes an item whose status disagrees with the ledger.
type Drift struct {
	Serial    string           `json:"serial_no"`
	Title     string           `json:"title"`
	Status    model.ItemStatus `json:"status"`
	OpenIssue bool             `json:"open_issue"`
}
