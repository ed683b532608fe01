// internal/membership/implementation.go
package membership

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
)

// service implements the Service interface.
type service struct {
	store model.Store
	log   logrus.FieldLogger
}

// NewService creates a new membership service instance.
func NewService(store model.Store, log logrus.FieldLogger) Service {
	return &service{
		store: store,
		log:   log.WithField("component", "membership"),
	}
}

// AddMember registers a member whose term starts on req.Start.
func (s *service) AddMember(ctx context.Context, req NewMember) (*model.Member, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	member := &model.Member{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		ContactName:    req.ContactName,
		ContactAddress: req.ContactAddress,
		IdentityNo:     req.IdentityNo,
		Start:          req.Start,
		End:            req.Start.AddDays(int(req.Duration)),
		Status:         model.Active,
		PendingFine:    decimal.Zero,
	}
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		member.ID = 0
		return tx.InsertMember(ctx, member)
	})
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}

	s.log.WithFields(logrus.Fields{"member_id": member.ID, "end": member.End}).Info("member added")
	return member, nil
}

func (s *service) GetMember(ctx context.Context, id int64) (*model.Member, error) {
	var member *model.Member
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		member, err = lookup(ctx, tx.GetMember, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return member, nil
}

// ExtendMembership moves the end date forward by d from the current end date.
func (s *service) ExtendMembership(ctx context.Context, id int64, d Duration) (*model.Member, error) {
	if !d.Valid() {
		return nil, errs.Validation("unknown membership duration %d", int(d))
	}
	member, err := s.update(ctx, id, func(m *model.Member) {
		m.End = m.End.AddDays(int(d))
	})
	if err != nil {
		return nil, fmt.Errorf("extend membership: %w", err)
	}
	s.log.WithFields(logrus.Fields{"member_id": id, "end": member.End}).Info("membership extended")
	return member, nil
}

// CancelMembership marks the member inactive. Cancelling twice is not an error.
func (s *service) CancelMembership(ctx context.Context, id int64) (*model.Member, error) {
	member, err := s.update(ctx, id, func(m *model.Member) {
		m.Status = model.Inactive
	})
	if err != nil {
		return nil, fmt.Errorf("cancel membership: %w", err)
	}
	s.log.WithField("member_id", id).Info("membership cancelled")
	return member, nil
}

func (s *service) update(ctx context.Context, id int64, apply func(m *model.Member)) (*model.Member, error) {
	var member *model.Member
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		member, err = lookup(ctx, tx.LockMember, id)
		if err != nil {
			return err
		}
		apply(member)
		return tx.UpdateMember(ctx, member)
	})
	return member, err
}

func lookup(ctx context.Context, get func(context.Context, int64) (*model.Member, error), id int64) (*model.Member, error) {
	member, err := get(ctx, id)
	if errors.Is(err, model.ErrNoRows) {
		return nil, errs.NotFound("member %d", id)
	}
	return member, err
}
