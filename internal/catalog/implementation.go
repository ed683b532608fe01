// internal/catalog/implementation.go
package catalog

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
)

// service implements the Service interface.
type service struct {
	store  model.Store
	log    logrus.FieldLogger
	tracer trace.Tracer
}

// NewService creates a new catalog service instance.
func NewService(store model.Store, log logrus.FieldLogger) Service {
	return &service{
		store:  store,
		log:    log.WithField("component", "catalog"),
		tracer: otel.Tracer("lendingdesk/catalog"),
	}
}

// AddItems inserts req.Quantity copies with consecutive serial numbers
// following the highest serial in the catalog.
func (s *service) AddItems(ctx context.Context, req NewItems) ([]model.Item, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.add_items",
		trace.WithAttributes(
			attribute.String("item.kind", string(req.Kind)),
			attribute.Int("item.quantity", req.Quantity),
		),
	)
	defer span.End()

	if err := req.validate(); err != nil {
		return nil, err
	}

	var items []model.Item
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		items = items[:0]
		if err := tx.LockSerials(ctx); err != nil {
			return err
		}
		max, err := tx.MaxSerial(ctx)
		if err != nil {
			return err
		}
		for i := 1; i <= req.Quantity; i++ {
			item := model.Item{
				Serial:     FormatSerial(max + i),
				Kind:       req.Kind,
				Title:      req.Title,
				Author:     req.Author,
				Category:   req.Category,
				Cost:       req.Cost,
				AcquiredOn: req.AcquiredOn,
				Status:     model.Available,
			}
			if err := tx.InsertItem(ctx, &item); err != nil {
				if errors.Is(err, model.ErrDuplicate) {
					return errs.Conflict("serial %s already exists", item.Serial)
				}
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add items: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"title":  req.Title,
		"first":  items[0].Serial,
		"last":   items[len(items)-1].Serial,
		"copies": len(items),
	}).Info("items added")
	return items, nil
}

func (s *service) GetItem(ctx context.Context, serial string) (*model.Item, error) {
	var item *model.Item
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		var err error
		item, err = tx.GetItem(ctx, serial)
		if errors.Is(err, model.ErrNoRows) {
			return errs.NotFound("item %s", serial)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// SetItemStatus overrides an item's status without touching the ledger.
func (s *service) SetItemStatus(ctx context.Context, serial string, status model.ItemStatus) error {
	if !status.Valid() {
		return errs.Validation("unknown status %q", status)
	}
	err := s.store.InTx(ctx, func(tx model.Tx) error {
		err := tx.SetItemStatus(ctx, serial, status)
		if errors.Is(err, model.ErrNoRows) {
			return errs.NotFound("item %s", serial)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("set item status: %w", err)
	}
	s.log.WithFields(logrus.Fields{"serial": serial, "status": status}).
		Warn("item status overridden outside the circulation ledger")
	return nil
}

// FindItems streams items whose title contains titleContains, ignoring case.
func (s *service) FindItems(ctx context.Context, titleContains string) iter.Seq2[model.Item, error] {
	return s.store.Items(ctx, model.ItemQuery{TitleContains: titleContains})
}
