// internal/reports/implementation.go
package reports

import (
	"context"
	"fmt"
	"sort"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
)

type service struct {
	store model.Store
}

func NewService(store model.Store) Service {
	return &service{store: store}
}

func (s *service) MasterList(ctx context.Context, kind model.Kind) ([]model.Item, error) {
	if !kind.Valid() {
		return nil, errs.Validation("unknown kind %q", kind)
	}
	var items []model.Item
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		items, err = tx.ListItems(ctx, model.ItemQuery{Kind: kind})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("master list: %w", err)
	}
	return items, nil
}

func (s *service) Members(ctx context.Context) ([]model.Member, error) {
	var members []model.Member
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		members, err = tx.ListMembers(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("members report: %w", err)
	}
	return members, nil
}

func (s *service) ActiveIssues(ctx context.Context) ([]IssueRow, error) {
	rows, err := s.openIssues(ctx, model.IssueQuery{OpenOnly: true})
	if err != nil {
		return nil, fmt.Errorf("active issues: %w", err)
	}
	return rows, nil
}

// Overdue lists open issues due before asOf, oldest due date first.
func (s *service) Overdue(ctx context.Context, asOf dates.Date) ([]OverdueRow, error) {
	if asOf.IsZero() {
		return nil, errs.Validation("required: as_of")
	}
	rows, err := s.openIssues(ctx, model.IssueQuery{OpenOnly: true, DueBefore: asOf})
	if err != nil {
		return nil, fmt.Errorf("overdue report: %w", err)
	}
	out := make([]OverdueRow, len(rows))
	for i, row := range rows {
		out[i] = OverdueRow{IssueRow: row, DaysOverdue: asOf.DaysSince(row.DueDate)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *service) openIssues(ctx context.Context, q model.IssueQuery) ([]IssueRow, error) {
	var rows []IssueRow
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		issues, err := tx.ListIssues(ctx, q)
		if err != nil {
			return err
		}
		members, err := tx.ListMembers(ctx)
		if err != nil {
			return err
		}
		names := make(map[int64]string, len(members))
		for _, m := range members {
			names[m.ID] = m.FullName()
		}

		rows = make([]IssueRow, 0, len(issues))
		for _, issue := range issues {
			item, err := tx.GetItem(ctx, issue.Serial)
			if err != nil {
				return err
			}
			rows = append(rows, IssueRow{
				Serial:     issue.Serial,
				Title:      item.Title,
				Kind:       item.Kind,
				MemberID:   issue.MemberID,
				MemberName: names[issue.MemberID],
				IssueDate:  issue.IssueDate,
				DueDate:    issue.DueDate,
			})
		}
		return nil
	})
	return rows, err
}

func (s *service) Requests(ctx context.Context) ([]RequestRow, error) {
	var rows []RequestRow
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		requests, err := tx.ListRequests(ctx)
		if err != nil {
			return err
		}
		rows = make([]RequestRow, len(requests))
		for i, r := range requests {
			status := Pending
			if r.FulfilledOn != nil {
				status = Fulfilled
			}
			rows[i] = RequestRow{Request: r, Status: status}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("requests report: %w", err)
	}
	return rows, nil
}

func (s *service) StatusDrift(ctx context.Context) ([]Drift, error) {
	var drift []Drift
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		items, err := tx.ListItems(ctx, model.ItemQuery{})
		if err != nil {
			return err
		}
		open, err := tx.ListIssues(ctx, model.IssueQuery{OpenOnly: true})
		if err != nil {
			return err
		}
		held := make(map[string]bool, len(open))
		for _, issue := range open {
			held[issue.Serial] = true
		}
		for _, item := range items {
			if (item.Status == model.Issued) != held[item.Serial] {
				drift = append(drift, Drift{
					Serial:    item.Serial,
					Title:     item.Title,
					Status:    item.Status,
					OpenIssue: held[item.Serial],
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("status drift: %w", err)
	}
	return drift, nil
}
