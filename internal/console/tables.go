// internal/console/tables.go
package console

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/model"
)

type table struct {
	w *tabwriter.Writer
}

func (c *Console) table(headers ...string) *table {
	t := &table{w: tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)}
	fmt.Fprintln(t.w, strings.Join(headers, "\t"))
	return t
}

func (t *table) row(cols ...interface{}) {
	cells := make([]string, len(cols))
	for i, col := range cols {
		cells[i] = fmt.Sprint(col)
	}
	fmt.Fprintln(t.w, strings.Join(cells, "\t"))
}

func (t *table) flush() error {
	return t.w.Flush()
}

func (c *Console) masterList(kind model.Kind) func(context.Context) error {
	return func(ctx context.Context) error {
		items, err := c.svc.Reports.MasterList(ctx, kind)
		if err != nil {
			return err
		}
		t := c.table("Serial", "Title", "Author", "Category", "Cost", "Acquired", "Status")
		for _, item := range items {
			t.row(item.Serial, item.Title, item.Author, item.Category, item.Cost.StringFixed(2), item.AcquiredOn, item.Status)
		}
		return t.flush()
	}
}

func (c *Console) memberList(ctx context.Context) error {
	members, err := c.svc.Reports.Members(ctx)
	if err != nil {
		return err
	}
	t := c.table("ID", "Name", "Contact", "Start", "End", "Status", "Pending Fine")
	for _, m := range members {
		t.row(m.ID, m.FullName(), m.ContactName, m.Start, m.End, m.Status, m.PendingFine.StringFixed(2))
	}
	return t.flush()
}

func (c *Console) activeIssues(ctx context.Context) error {
	rows, err := c.svc.Reports.ActiveIssues(ctx)
	if err != nil {
		return err
	}
	t := c.table("Serial", "Title", "Member", "Issued", "Due")
	for _, r := range rows {
		t.row(r.Serial, r.Title, r.MemberName, r.IssueDate, r.DueDate)
	}
	return t.flush()
}

func (c *Console) overdue(ctx context.Context) error {
	rows, err := c.svc.Reports.Overdue(ctx, dates.Today())
	if err != nil {
		return err
	}
	t := c.table("Serial", "Title", "Member", "Due", "Days Overdue")
	for _, r := range rows {
		t.row(r.Serial, r.Title, r.MemberName, r.DueDate, r.DaysOverdue)
	}
	return t.flush()
}

func (c *Console) requestList(ctx context.Context) error {
	rows, err := c.svc.Reports.Requests(ctx)
	if err != nil {
		return err
	}
	t := c.table("ID", "Member", "Title", "Requested", "Status")
	for _, r := range rows {
		t.row(r.ID, r.MemberID, r.Title, r.RequestedOn, r.Status)
	}
	return t.flush()
}

func (c *Console) drift(ctx context.Context) error {
	rows, err := c.svc.Reports.StatusDrift(ctx)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		c.println("Item status matches the ledger.")
		return nil
	}
	t := c.table("Serial", "Title", "Status", "Open Issue")
	for _, r := range rows {
		t.row(r.Serial, r.Title, r.Status, r.OpenIssue)
	}
	return t.flush()
}

func (c *Console) listUsers(ctx context.Context) error {
	users, err := c.svc.Auth.ListUsers(ctx)
	if err != nil {
		return err
	}
	t := c.table("Username", "Admin", "Active", "Created")
	for _, u := range users {
		t.row(u.Username, u.IsAdmin, u.IsActive, u.CreatedAt.Format("2006-01-02"))
	}
	return t.flush()
}
