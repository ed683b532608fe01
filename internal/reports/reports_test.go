package reports

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lendingdesk/internal/circulation"
	"lendingdesk/internal/dates"
	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
	"lendingdesk/internal/store/memory"
)

type world struct {
	store   *memory.Store
	reports Service
	circ    circulation.Service
	ada     int64
	bob     int64
}

func newWorld(t *testing.T) *world {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := memory.New()
	ctx := context.Background()
	w := &world{
		store:   store,
		reports: NewService(store),
		circ:    circulation.NewService(store, log, circulation.Options{DailyFineRate: decimal.NewFromInt(1)}),
	}

	require.NoError(t, store.InTx(ctx, func(tx model.Tx) error {
		items := []model.Item{
			{Serial: "01", Kind: model.Book, Title: "Dune"},
			{Serial: "02", Kind: model.Movie, Title: "Alien"},
			{Serial: "03", Kind: model.Book, Title: "Cosmos"},
			{Serial: "04", Kind: model.Book, Title: "Beloved"},
		}
		for i := range items {
			items[i].Author, items[i].Category, items[i].Status = "x", model.Fiction, model.Available
			items[i].AcquiredOn = dates.New(2024, 1, 1)
			if err := tx.InsertItem(ctx, &items[i]); err != nil {
				return err
			}
		}
		for _, m := range []*model.Member{
			{FirstName: "Bob", LastName: "Z", Status: model.Active},
			{FirstName: "Ada", LastName: "Y", Status: model.Active},
		} {
			if err := tx.InsertMember(ctx, m); err != nil {
				return err
			}
		}
		return nil
	}))
	w.bob, w.ada = 1, 2
	return w
}

func (w *world) issue(t *testing.T, serial string, member int64, on, due string) {
	t.Helper()
	_, err := w.circ.IssueItem(context.Background(), circulation.IssueRequest{
		Serial: serial, MemberID: member, IssueDate: dates.MustParse(on), DueDate: dates.MustParse(due),
	})
	require.NoError(t, err)
}

func TestMasterListFiltersKindOrderedByTitle(t *testing.T) {
	w := newWorld(t)

	books, err := w.reports.MasterList(context.Background(), model.Book)
	require.NoError(t, err)
	var titles []string
	for _, b := range books {
		titles = append(titles, b.Title)
	}
	assert.Equal(t, []string{"Beloved", "Cosmos", "Dune"}, titles)

	_, err = w.reports.MasterList(context.Background(), "Vinyl")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestMembersOrderedByName(t *testing.T) {
	w := newWorld(t)
	members, err := w.reports.Members(context.Background())
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "Ada", members[0].FirstName)
}

func TestActiveAndOverdueIssues(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.issue(t, "01", w.ada, "2025-01-05", "2025-01-20")
	w.issue(t, "02", w.bob, "2025-01-01", "2025-01-10")
	w.issue(t, "03", w.bob, "2025-01-03", "2025-02-01")

	active, err := w.reports.ActiveIssues(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "02", active[0].Serial)
	assert.Equal(t, "Alien", active[0].Title)
	assert.Equal(t, "Bob Z", active[0].MemberName)

	overdue, err := w.reports.Overdue(ctx, dates.MustParse("2025-01-25"))
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, "02", overdue[0].Serial)
	assert.Equal(t, 15, overdue[0].DaysOverdue)
	assert.Equal(t, "01", overdue[1].Serial)
	assert.Equal(t, 5, overdue[1].DaysOverdue)
}

func TestRequestsReportStatus(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	fulfilled := dates.MustParse("2025-02-02")
	require.NoError(t, w.store.InTx(ctx, func(tx model.Tx) error {
		if err := tx.InsertRequest(ctx, &model.Request{MemberID: w.ada, Title: "Old", RequestedOn: dates.MustParse("2025-01-01"), FulfilledOn: &fulfilled}); err != nil {
			return err
		}
		return tx.InsertRequest(ctx, &model.Request{MemberID: w.bob, Title: "New", RequestedOn: dates.MustParse("2025-02-01")})
	}))

	rows, err := w.reports.Requests(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "New", rows[0].Title)
	assert.Equal(t, Pending, rows[0].Status)
	assert.Equal(t, Fulfilled, rows[1].Status)
}

func TestStatusDriftAfterOverride(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	w.issue(t, "01", w.ada, "2025-01-05", "2025-01-20")

	drift, err := w.reports.StatusDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)

	require.NoError(t, w.store.InTx(ctx, func(tx model.Tx) error {
		if err := tx.SetItemStatus(ctx, "01", model.Available); err != nil {
			return err
		}
		return tx.SetItemStatus(ctx, "04", model.Issued)
	}))

	drift, err = w.reports.StatusDrift(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 2)
	bySerial := map[string]Drift{}
	for _, d := range drift {
		bySerial[d.Serial] = d
	}
	assert.True(t, bySerial["01"].OpenIssue)
	assert.Equal(t, model.Available, bySerial["01"].Status)
	assert.False(t, bySerial["04"].OpenIssue)
}
