package circulation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
	"lendingdesk/internal/store/faultstore"
	"lendingdesk/internal/store/memory"
)

type fixture struct {
	store *memory.Store
	svc   Service
}

func newFixture(t testing.TB, serials ...string) *fixture {
	t.Helper()
	log, _ := test.NewNullLogger()
	store := memory.New()
	ctx := context.Background()

	err := store.InTx(ctx, func(tx model.Tx) error {
		for _, serial := range serials {
			err := tx.InsertItem(ctx, &model.Item{
				Serial: serial, Kind: model.Book, Title: "Title " + serial, Author: "Author",
				Category: model.Science, Cost: decimal.NewFromInt(20),
				AcquiredOn: dates.New(2024, 1, 1), Status: model.Available,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	return &fixture{
		store: store,
		svc:   NewService(store, log, Options{DailyFineRate: decimal.NewFromInt(1)}),
	}
}

func (f *fixture) addMember(t testing.TB, first string, pending int64) int64 {
	t.Helper()
	ctx := context.Background()
	m := &model.Member{
		FirstName: first, LastName: "Tester", ContactName: "c", ContactAddress: "a", IdentityNo: "id",
		Start: dates.New(2024, 1, 1), End: dates.New(2026, 1, 1), Status: model.Active,
		PendingFine: decimal.NewFromInt(pending),
	}
	require.NoError(t, f.store.InTx(ctx, func(tx model.Tx) error { return tx.InsertMember(ctx, m) }))
	return m.ID
}

func (f *fixture) item(t testing.TB, serial string) model.Item {
	t.Helper()
	var item *model.Item
	require.NoError(t, f.store.InTx(context.Background(), func(tx model.Tx) error {
		var err error
		item, err = tx.GetItem(context.Background(), serial)
		return err
	}))
	return *item
}

func (f *fixture) member(t testing.TB, id int64) model.Member {
	t.Helper()
	var m *model.Member
	require.NoError(t, f.store.InTx(context.Background(), func(tx model.Tx) error {
		var err error
		m, err = tx.GetMember(context.Background(), id)
		return err
	}))
	return *m
}

func issueReq(serial string, member int64) IssueRequest {
	return IssueRequest{
		Serial:    serial,
		MemberID:  member,
		IssueDate: dates.MustParse("2025-01-01"),
		DueDate:   dates.MustParse("2025-01-10"),
	}
}

func TestLateReturnWithPartialPayment(t *testing.T) {
	f := newFixture(t, "S1")
	ctx := context.Background()
	m1 := f.addMember(t, "M1", 0)

	issue, err := f.svc.IssueItem(ctx, issueReq("S1", m1))
	require.NoError(t, err)
	assert.True(t, issue.Open())
	assert.Equal(t, model.Issued, f.item(t, "S1").Status)

	quote, err := f.svc.QuoteReturn(ctx, "S1", dates.MustParse("2025-01-15"), "scuffed cover")
	require.NoError(t, err)
	assert.Equal(t, 5, quote.LateDays)
	assert.Equal(t, "5", quote.NewFine.String())
	assert.Equal(t, "5", quote.TotalDue.String())

	settlement, err := f.svc.CommitReturn(ctx, quote, decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.Equal(t, "3", settlement.Member.PendingFine.String())
	assert.Equal(t, "5", settlement.Issue.Fine.String())
	assert.Equal(t, "scuffed cover", settlement.Issue.Remarks)
	require.NotNil(t, settlement.Issue.ReturnedOn)
	assert.Equal(t, "2025-01-15", settlement.Issue.ReturnedOn.String())

	assert.Equal(t, model.Available, f.item(t, "S1").Status)
	assert.Equal(t, "3", f.member(t, m1).PendingFine.String())
}

func TestOnTimeReturnHasNoFine(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 4)

	_, err := f.svc.IssueItem(ctx, issueReq("01", m))
	require.NoError(t, err)

	quote, err := f.svc.QuoteReturn(ctx, "01", dates.MustParse("2025-01-10"), "")
	require.NoError(t, err)
	assert.Zero(t, quote.LateDays)
	assert.True(t, quote.NewFine.IsZero())
	assert.Equal(t, "4", quote.PriorBalance.String())
	assert.Equal(t, "4", quote.TotalDue.String())
}

func TestFullPaymentKeepsPriorBalanceOnly(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 7)

	_, err := f.svc.IssueItem(ctx, issueReq("01", m))
	require.NoError(t, err)
	quote, err := f.svc.QuoteReturn(ctx, "01", dates.MustParse("2025-01-13"), "")
	require.NoError(t, err)

	settlement, err := f.svc.CommitReturn(ctx, quote, quote.NewFine)
	require.NoError(t, err)
	assert.Equal(t, "7", settlement.Member.PendingFine.String())
}

func TestCommitRejectsOverpaymentWithoutMutation(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 0)

	_, err := f.svc.IssueItem(ctx, issueReq("01", m))
	require.NoError(t, err)
	quote, err := f.svc.QuoteReturn(ctx, "01", dates.MustParse("2025-01-12"), "")
	require.NoError(t, err)

	_, err = f.svc.CommitReturn(ctx, quote, decimal.NewFromInt(3))
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = f.svc.CommitReturn(ctx, quote, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, errs.ErrValidation)

	assert.Equal(t, model.Issued, f.item(t, "01").Status)
	assert.True(t, f.member(t, m).PendingFine.IsZero())

	_, err = f.svc.CommitReturn(ctx, quote, decimal.NewFromInt(2))
	require.NoError(t, err)
}

func TestQuoteIsIdempotent(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 2)

	_, err := f.svc.IssueItem(ctx, issueReq("01", m))
	require.NoError(t, err)

	first, err := f.svc.QuoteReturn(ctx, "01", dates.MustParse("2025-02-01"), "")
	require.NoError(t, err)
	second, err := f.svc.QuoteReturn(ctx, "01", dates.MustParse("2025-02-01"), "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, model.Issued, f.item(t, "01").Status)
	assert.Equal(t, "2", f.member(t, m).PendingFine.String())
}

func TestQuoteValidation(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 0)

	_, err := f.svc.QuoteReturn(ctx, "01", dates.MustParse("2025-01-05"), "")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.IssueItem(ctx, issueReq("01", m))
	require.NoError(t, err)
	_, err = f.svc.QuoteReturn(ctx, "01", dates.MustParse("2024-12-31"), "")
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestStaleQuoteRejected(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 0)

	_, err := f.svc.IssueItem(ctx, issueReq("01", m))
	require.NoError(t, err)
	quote, err := f.svc.QuoteReturn(ctx, "01", dates.MustParse("2025-01-10"), "")
	require.NoError(t, err)
	_, err = f.svc.CommitReturn(ctx, quote, decimal.Zero)
	require.NoError(t, err)

	_, err = f.svc.CommitReturn(ctx, quote, decimal.Zero)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.IssueItem(ctx, issueReq("01", m))
	require.NoError(t, err)
	_, err = f.svc.CommitReturn(ctx, quote, decimal.Zero)
	assert.ErrorIs(t, err, errs.ErrConflict)
}

func TestIssueUnavailableItemConflicts(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	ada := f.addMember(t, "Ada", 0)
	bob := f.addMember(t, "Bob", 0)

	_, err := f.svc.IssueItem(ctx, issueReq("01", ada))
	require.NoError(t, err)

	_, err = f.svc.IssueItem(ctx, issueReq("01", bob))
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Contains(t, err.Error(), "Ada Tester")

	var open []model.Issue
	require.NoError(t, f.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		open, err = tx.ListIssues(ctx, model.IssueQuery{OpenOnly: true})
		return err
	}))
	require.Len(t, open, 1)
	assert.Equal(t, ada, open[0].MemberID)
}

func TestIssueOverriddenItemNamesStatus(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 0)

	require.NoError(t, f.store.InTx(ctx, func(tx model.Tx) error {
		return tx.SetItemStatus(ctx, "01", model.Issued)
	}))
	_, err := f.svc.IssueItem(ctx, issueReq("01", m))
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.Contains(t, err.Error(), "status Issued")
}

func TestIssuePreconditionOrder(t *testing.T) {
	f := newFixture(t, "01", "10", "11")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 0)

	bad := issueReq("nope", 99)
	bad.DueDate = bad.IssueDate
	_, err := f.svc.IssueItem(ctx, bad)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Contains(t, err.Error(), "member 99")

	bad.MemberID = m
	bad.Serial = "1"
	_, err = f.svc.IssueItem(ctx, bad)
	require.ErrorIs(t, err, errs.ErrNotFound)
	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, []string{"01", "10", "11"}, e.Suggestions)

	bad.Serial = "01"
	_, err = f.svc.IssueItem(ctx, bad)
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, model.Available, f.item(t, "01").Status)
}

func TestPayFine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "Ada", 5)

	_, err := f.svc.PayFine(ctx, m, decimal.NewFromInt(6))
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, "5", f.member(t, m).PendingFine.String())

	_, err = f.svc.PayFine(ctx, m, decimal.Zero)
	assert.ErrorIs(t, err, errs.ErrValidation)

	member, err := f.svc.PayFine(ctx, m, decimal.RequireFromString("1.50"))
	require.NoError(t, err)
	assert.Equal(t, "3.5", member.PendingFine.String())

	_, err = f.svc.PayFine(ctx, 404, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPayFineRejectsSubCentAmounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.addMember(t, "Ada", 3)

	_, err := f.svc.PayFine(ctx, m, decimal.RequireFromString("0.001"))
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = f.svc.PayFine(ctx, m, decimal.RequireFromString("1.005"))
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, "3", f.member(t, m).PendingFine.String())

	member, err := f.svc.PayFine(ctx, m, decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.Equal(t, "2.99", member.PendingFine.String())
}

func TestCommitRejectsSubCentPayment(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 0)

	_, err := f.svc.IssueItem(ctx, issueReq("01", m))
	require.NoError(t, err)
	quote, err := f.svc.QuoteReturn(ctx, "01", dates.MustParse("2025-01-12"), "")
	require.NoError(t, err)

	_, err = f.svc.CommitReturn(ctx, quote, decimal.RequireFromString("0.001"))
	assert.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, model.Issued, f.item(t, "01").Status)
	assert.True(t, f.member(t, m).PendingFine.IsZero())
}

func TestQuoteCenturiesLate(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 0)

	_, err := f.svc.IssueItem(ctx, issueReq("01", m))
	require.NoError(t, err)
	quote, err := f.svc.QuoteReturn(ctx, "01", dates.MustParse("2525-01-10"), "")
	require.NoError(t, err)
	assert.Equal(t, 182621, quote.LateDays)
	assert.Equal(t, "182621", quote.NewFine.String())
}

func TestReturnReplacesRemarks(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 0)

	req := issueReq("01", m)
	req.Remarks = "spine cracked"
	issue, err := f.svc.IssueItem(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "spine cracked", issue.Remarks)

	quote, err := f.svc.QuoteReturn(ctx, "01", dates.MustParse("2025-01-10"), "")
	require.NoError(t, err)
	settlement, err := f.svc.CommitReturn(ctx, quote, decimal.Zero)
	require.NoError(t, err)
	assert.Empty(t, settlement.Issue.Remarks)

	var stored []model.Issue
	require.NoError(t, f.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		stored, err = tx.ListIssues(ctx, model.IssueQuery{})
		return err
	}))
	require.Len(t, stored, 1)
	assert.Empty(t, stored[0].Remarks)
}

func TestConcurrentIssueSingleWinner(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()

	const workers = 50
	members := make([]int64, workers)
	for i := range members {
		members[i] = f.addMember(t, "M", 0)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for _, m := range members {
		wg.Add(1)
		go func(m int64) {
			defer wg.Done()
			<-start
			_, err := f.svc.IssueItem(ctx, issueReq("01", m))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, errs.ErrConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(m)
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, wins)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, model.Issued, f.item(t, "01").Status)

	var open []model.Issue
	require.NoError(t, f.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		open, err = tx.ListIssues(ctx, model.IssueQuery{OpenOnly: true})
		return err
	}))
	assert.Len(t, open, 1)
}

func TestCountersRecordCirculation(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	f := newFixture(t, "01")
	ctx := context.Background()
	log, _ := test.NewNullLogger()
	svc := NewService(f.store, log, Options{
		DailyFineRate: decimal.RequireFromString("0.50"),
		Meter:         provider.Meter("lendingdesk/circulation"),
	})
	m := f.addMember(t, "Ada", 1)

	_, err := svc.IssueItem(ctx, issueReq("01", m))
	require.NoError(t, err)
	quote, err := svc.QuoteReturn(ctx, "01", dates.MustParse("2025-01-14"), "")
	require.NoError(t, err)
	_, err = svc.CommitReturn(ctx, quote, decimal.RequireFromString("1.50"))
	require.NoError(t, err)
	_, err = svc.PayFine(ctx, m, decimal.RequireFromString("0.25"))
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	totals := map[string]float64{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			switch data := metric.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					totals[metric.Name] += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					totals[metric.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, 1.0, totals["circulation.issues"])
	assert.Equal(t, 1.0, totals["circulation.returns"])
	assert.InDelta(t, 2.0, totals["circulation.fines_assessed"], 1e-9)
	assert.InDelta(t, 1.75, totals["circulation.fines_paid"], 1e-9)
}

func TestLateDays(t *testing.T) {
	due := dates.MustParse("2024-02-27")
	assert.Equal(t, 0, lateDays(due, dates.MustParse("2024-02-20")))
	assert.Equal(t, 0, lateDays(due, due))
	assert.Equal(t, 3, lateDays(due, dates.MustParse("2024-03-01")))
}

func TestFailedWritesLeaveNoTrace(t *testing.T) {
	f := newFixture(t, "01")
	ctx := context.Background()
	m := f.addMember(t, "Ada", 1)
	log, _ := test.NewNullLogger()
	faulty := faultstore.Wrap(f.store)
	svc := NewService(faulty, log, Options{DailyFineRate: decimal.NewFromInt(1)})
	boom := errors.New("connection reset")

	faulty.FailOn("SetItemStatus", boom)
	_, err := svc.IssueItem(ctx, issueReq("01", m))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, model.Available, f.item(t, "01").Status)
	_, err = f.svc.QuoteReturn(ctx, "01", dates.MustParse("2025-01-15"), "")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	faulty.Clear()
	_, err = svc.IssueItem(ctx, issueReq("01", m))
	require.NoError(t, err)
	quote, err := svc.QuoteReturn(ctx, "01", dates.MustParse("2025-01-15"), "")
	require.NoError(t, err)

	faulty.FailOn("UpdateMember", boom)
	_, err = svc.CommitReturn(ctx, quote, decimal.Zero)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, faulty.Hits("UpdateMember"))
	assert.Equal(t, model.Issued, f.item(t, "01").Status)
	assert.Equal(t, "1", f.member(t, m).PendingFine.String())

	faulty.Clear()
	settlement, err := svc.CommitReturn(ctx, quote, decimal.Zero)
	require.NoError(t, err)
	assert.Equal(t, "6", settlement.Member.PendingFine.String())
}
