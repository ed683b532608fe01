// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
)

const suggestionLimit = 5

// Options tune the fine policy. Meter defaults to the global meter provider.
type Options struct {
	DailyFineRate decimal.Decimal
	Meter         metric.Meter
}

type counters struct {
	issued   metric.Int64Counter
	returned metric.Int64Counter
	fined    metric.Float64Counter
	paid     metric.Float64Counter
}

// service implements the Service interface.
type service struct {
	store    model.Store
	log      logrus.FieldLogger
	tracer   trace.Tracer
	counters counters
	rate     decimal.Decimal
}

// NewService creates a new circulation service instance.
func NewService(store model.Store, log logrus.FieldLogger, opts Options) Service {
	log = log.WithField("component", "circulation")
	meter := opts.Meter
	if meter == nil {
		meter = otel.Meter("lendingdesk/circulation")
	}
	return &service{
		store:    store,
		log:      log,
		tracer:   otel.Tracer("lendingdesk/circulation"),
		counters: newCounters(meter, log),
		rate:     opts.DailyFineRate,
	}
}

func newCounters(meter metric.Meter, log logrus.FieldLogger) counters {
	c := counters{
		issued:   noop.Int64Counter{},
		returned: noop.Int64Counter{},
		fined:    noop.Float64Counter{},
		paid:     noop.Float64Counter{},
	}
	if v, err := meter.Int64Counter("circulation.issues", metric.WithDescription("Items issued")); err == nil {
		c.issued = v
	} else {
		log.WithError(err).Warn("issues counter unavailable")
	}
	if v, err := meter.Int64Counter("circulation.returns", metric.WithDescription("Items returned")); err == nil {
		c.returned = v
	} else {
		log.WithError(err).Warn("returns counter unavailable")
	}
	if v, err := meter.Float64Counter("circulation.fines_assessed", metric.WithDescription("Fines assessed on returns")); err == nil {
		c.fined = v
	} else {
		log.WithError(err).Warn("fines counter unavailable")
	}
	if v, err := meter.Float64Counter("circulation.fines_paid", metric.WithDescription("Fine payments received")); err == nil {
		c.paid = v
	} else {
		log.WithError(err).Warn("payments counter unavailable")
	}
	return c
}

// IssueItem opens a ledger entry for an available item and marks it issued.
// Checks run in order: member exists, item exists, item available, dates.
func (s *service) IssueItem(ctx context.Context, req IssueRequest) (*model.Issue, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.issue",
		trace.WithAttributes(
			attribute.String("item.serial", req.Serial),
			attribute.Int64("member.id", req.MemberID),
		),
	)
	defer span.End()

	var issue *model.Issue
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		issue = nil
		if _, err := tx.GetMember(ctx, req.MemberID); err != nil {
			return memberErr(err, req.MemberID)
		}

		item, err := tx.LockItem(ctx, req.Serial)
		if errors.Is(err, model.ErrNoRows) {
			return s.itemNotFound(ctx, tx, req.Serial)
		}
		if err != nil {
			return err
		}
		if item.Status != model.Available {
			return s.unavailable(ctx, tx, item)
		}

		if req.IssueDate.IsZero() || req.DueDate.IsZero() || !req.DueDate.After(req.IssueDate) {
			return errs.Validation("bad date range: due date must be after issue date")
		}

		if _, err := tx.LockMember(ctx, req.MemberID); err != nil {
			return memberErr(err, req.MemberID)
		}

		issue = &model.Issue{
			ID:        uuid.New(),
			Serial:    item.Serial,
			MemberID:  req.MemberID,
			IssueDate: req.IssueDate,
			DueDate:   req.DueDate,
			Fine:      decimal.Zero,
			Remarks:   req.Remarks,
		}
		if err := tx.InsertIssue(ctx, issue); err != nil {
			if errors.Is(err, model.ErrDuplicate) {
				return errs.Conflict("item %s is not available: already issued", item.Serial)
			}
			return err
		}
		return tx.SetItemStatus(ctx, item.Serial, model.Issued)
	})
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("issue item: %w", err)
	}

	s.counters.issued.Add(ctx, 1)
	s.log.WithFields(logrus.Fields{
		"serial":    issue.Serial,
		"member_id": issue.MemberID,
		"due":       issue.DueDate,
	}).Info("item issued")
	return issue, nil
}

func (s *service) itemNotFound(ctx context.Context, tx model.Tx, serial string) error {
	e := &errs.Error{Kind: errs.KindNotFound, Msg: fmt.Sprintf("item %s", serial)}
	if serial == "" {
		return e
	}
	similar, err := tx.SimilarSerials(ctx, serial, suggestionLimit)
	if err != nil {
		s.log.WithError(err).Debug("serial suggestions unavailable")
		return e
	}
	e.Suggestions = similar
	return e
}

// unavailable names the member holding item, or its bare status when the
// ledger has no open entry for it.
func (s *service) unavailable(ctx context.Context, tx model.Tx, item *model.Item) error {
	open, err := tx.OpenIssue(ctx, item.Serial)
	if errors.Is(err, model.ErrNoRows) {
		return errs.Conflict("item %s is not available: status %s", item.Serial, item.Status)
	}
	if err != nil {
		return err
	}
	holder, err := tx.GetMember(ctx, open.MemberID)
	if err != nil {
		return errs.Conflict("item %s is not available: issued to member %d until %s", item.Serial, open.MemberID, open.DueDate)
	}
	return errs.Conflict("item %s is not available: issued to %s (member %d) until %s",
		item.Serial, holder.FullName(), holder.ID, open.DueDate)
}

// QuoteReturn prices the return of serial on returnedOn without changing anything.
func (s *service) QuoteReturn(ctx context.Context, serial string, returnedOn dates.Date, remarks string) (*FineQuote, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.quote_return",
		trace.WithAttributes(attribute.String("item.serial", serial)),
	)
	defer span.End()

	var quote *FineQuote
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		issue, err := tx.OpenIssue(ctx, serial)
		if errors.Is(err, model.ErrNoRows) {
			return errs.NotFound("no active issue for item %s", serial)
		}
		if err != nil {
			return err
		}
		member, err := tx.GetMember(ctx, issue.MemberID)
		if err != nil {
			return memberErr(err, issue.MemberID)
		}
		quote, err = s.price(issue, member, returnedOn, remarks)
		return err
	})
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("quote return: %w", err)
	}

	span.SetAttributes(attribute.Int("fine.late_days", quote.LateDays))
	return quote, nil
}

func (s *service) price(issue *model.Issue, member *model.Member, returnedOn dates.Date, remarks string) (*FineQuote, error) {
	if returnedOn.IsZero() {
		return nil, errs.Validation("required: actual_return_date")
	}
	if returnedOn.Before(issue.IssueDate) {
		return nil, errs.Validation("return date %s is before issue date %s", returnedOn, issue.IssueDate)
	}
	late := lateDays(issue.DueDate, returnedOn)
	fine := s.rate.Mul(decimal.NewFromInt(int64(late)))
	if total := member.PendingFine.Add(fine); !model.ValidMoney(total) {
		return nil, errs.Validation("total due %s for %d late days is out of range", total, late)
	}
	return &FineQuote{
		IssueID:      issue.ID,
		Serial:       issue.Serial,
		MemberID:     member.ID,
		IssueDate:    issue.IssueDate,
		DueDate:      issue.DueDate,
		ReturnedOn:   returnedOn,
		LateDays:     late,
		NewFine:      fine,
		PriorBalance: member.PendingFine,
		TotalDue:     member.PendingFine.Add(fine),
		Remarks:      remarks,
	}, nil
}

// CommitReturn closes the quoted issue, frees the item and settles the
// member's balance with paidNow. The fine is recomputed from the stored
// ledger entry, so a quote from before a balance change still settles
// correctly.
func (s *service) CommitReturn(ctx context.Context, quote *FineQuote, paidNow decimal.Decimal) (*Settlement, error) {
	if quote == nil {
		return nil, errs.Validation("required: quote")
	}
	ctx, span := s.tracer.Start(ctx, "circulation.commit_return",
		trace.WithAttributes(
			attribute.String("item.serial", quote.Serial),
			attribute.String("issue.id", quote.IssueID.String()),
		),
	)
	defer span.End()

	if paidNow.IsNegative() {
		return nil, errs.Validation("payment must not be negative")
	}
	if !model.ValidMoney(paidNow) {
		return nil, errs.Validation("payment %s must have at most %d decimal places", paidNow, model.MoneyPlaces)
	}

	var settlement *Settlement
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		issue, err := tx.LockOpenIssue(ctx, quote.Serial)
		if errors.Is(err, model.ErrNoRows) {
			return errs.NotFound("no active issue for item %s", quote.Serial)
		}
		if err != nil {
			return err
		}
		if issue.ID != quote.IssueID {
			return errs.Conflict("stale quote for item %s", quote.Serial)
		}
		if _, err := tx.LockItem(ctx, issue.Serial); err != nil {
			if errors.Is(err, model.ErrNoRows) {
				return errs.NotFound("item %s", issue.Serial)
			}
			return err
		}
		member, err := tx.LockMember(ctx, issue.MemberID)
		if err != nil {
			return memberErr(err, issue.MemberID)
		}

		fresh, err := s.price(issue, member, quote.ReturnedOn, quote.Remarks)
		if err != nil {
			return err
		}
		if paidNow.GreaterThan(fresh.TotalDue) {
			return errs.Validation("overpayment: %s exceeds total due %s", paidNow, fresh.TotalDue)
		}

		returned := fresh.ReturnedOn
		issue.ReturnedOn = &returned
		issue.Fine = fresh.NewFine
		issue.Remarks = fresh.Remarks
		if err := tx.CloseIssue(ctx, issue); err != nil {
			return err
		}
		if err := tx.SetItemStatus(ctx, issue.Serial, model.Available); err != nil {
			return err
		}
		member.PendingFine = fresh.TotalDue.Sub(paidNow)
		if err := tx.UpdateMember(ctx, member); err != nil {
			return err
		}

		settlement = &Settlement{Issue: *issue, Member: *member, Paid: paidNow}
		return nil
	})
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("commit return: %w", err)
	}

	fine, _ := settlement.Issue.Fine.Float64()
	paid, _ := paidNow.Float64()
	s.counters.returned.Add(ctx, 1)
	s.counters.fined.Add(ctx, fine)
	s.counters.paid.Add(ctx, paid)
	s.log.WithFields(logrus.Fields{
		"serial":       settlement.Issue.Serial,
		"member_id":    settlement.Member.ID,
		"fine":         settlement.Issue.Fine,
		"paid":         paidNow,
		"pending_fine": settlement.Member.PendingFine,
	}).Info("item returned")
	return settlement, nil
}

// PayFine reduces a member's pending fine by amount.
func (s *service) PayFine(ctx context.Context, memberID int64, amount decimal.Decimal) (*model.Member, error) {
	ctx, span := s.tracer.Start(ctx, "circulation.pay_fine",
		trace.WithAttributes(attribute.Int64("member.id", memberID)),
	)
	defer span.End()

	if !amount.IsPositive() {
		return nil, errs.Validation("payment must be positive")
	}
	if !model.ValidMoney(amount) {
		return nil, errs.Validation("payment %s must have at most %d decimal places", amount, model.MoneyPlaces)
	}

	var member *model.Member
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		member, err = tx.LockMember(ctx, memberID)
		if err != nil {
			return memberErr(err, memberID)
		}
		if amount.GreaterThan(member.PendingFine) {
			return errs.Validation("overpayment: %s exceeds pending fine %s", amount, member.PendingFine)
		}
		member.PendingFine = member.PendingFine.Sub(amount)
		return tx.UpdateMember(ctx, member)
	})
	if err != nil {
		recordErr(span, err)
		return nil, fmt.Errorf("pay fine: %w", err)
	}

	paid, _ := amount.Float64()
	s.counters.paid.Add(ctx, paid)
	s.log.WithFields(logrus.Fields{"member_id": memberID, "paid": amount, "pending_fine": member.PendingFine}).Info("fine paid")
	return member, nil
}

func memberErr(err error, id int64) error {
	if errors.Is(err, model.ErrNoRows) {
		return errs.NotFound("member %d", id)
	}
	return err
}

func recordErr(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
