// internal/requests/implementation.go
package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
)

type service struct {
	store model.Store
	log   logrus.FieldLogger
}

func NewService(store model.Store, log logrus.FieldLogger) Service {
	return &service{store: store, log: log.WithField("component", "requests")}
}

func (s *service) Create(ctx context.Context, req NewRequest) (*model.Request, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := errs.Required("title", req.Title); err != nil {
		return nil, err
	}
	if req.RequestedOn.IsZero() {
		return nil, errs.Validation("required: requested_on")
	}

	r := &model.Request{MemberID: req.MemberID, Title: req.Title, RequestedOn: req.RequestedOn}
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		if _, err := tx.GetMember(ctx, req.MemberID); err != nil {
			if errors.Is(err, model.ErrNoRows) {
				return errs.NotFound("member %d", req.MemberID)
			}
			return err
		}
		r.ID = 0
		return tx.InsertRequest(ctx, r)
	})
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	s.log.WithFields(logrus.Fields{"request_id": r.ID, "member_id": r.MemberID, "title": r.Title}).Info("request recorded")
	return r, nil
}

func (s *service) Fulfill(ctx context.Context, id int64, fulfilledOn dates.Date) (*model.Request, error) {
	if fulfilledOn.IsZero() {
		return nil, errs.Validation("required: fulfilled_on")
	}

	var r *model.Request
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		r, err = tx.LockRequest(ctx, id)
		if errors.Is(err, model.ErrNoRows) {
			return errs.NotFound("request %d", id)
		}
		if err != nil {
			return err
		}
		if r.FulfilledOn != nil {
			return errs.Conflict("request %d already fulfilled on %s", id, *r.FulfilledOn)
		}
		if fulfilledOn.Before(r.RequestedOn) {
			return errs.Validation("fulfilled date %s is before requested date %s", fulfilledOn, r.RequestedOn)
		}
		r.FulfilledOn = &fulfilledOn
		return tx.UpdateRequest(ctx, r)
	})
	if err != nil {
		return nil, fmt.Errorf("fulfill request: %w", err)
	}

	s.log.WithField("request_id", id).Info("request fulfilled")
	return r, nil
}
