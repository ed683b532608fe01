// Package faultstore wraps a model.Store and fails chosen writes inside
// transactions, so callers can check that a failure part way through an
// operation leaves nothing behind.
package faultstore

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"lendingdesk/internal/model"
)

// Store is a model.Store whose transactions fail the methods registered
// with FailOn. Methods without a fault pass straight through.
type Store struct {
	model.Store

	mu     sync.Mutex
	faults map[string]error
	hits   map[string]int
}

func Wrap(s model.Store) *Store {
	return &Store{Store: s, faults: map[string]error{}, hits: map[string]int{}}
}

// FailOn makes every later call of the named Tx method return err.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[method] = err
}

// Clear removes every registered fault.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = map[string]error{}
}

// Hits reports how many times the named method was failed.
func (s *Store) Hits(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method]
}

func (s *Store) InTx(ctx context.Context, fn func(tx model.Tx) error) error {
	return s.Store.InTx(ctx, func(tx model.Tx) error {
		return fn(&faultTx{Tx: tx, s: s})
	})
}

func (s *Store) inject(ctx context.Context, method string) error {
	s.mu.Lock()
	err, ok := s.faults[method]
	if ok {
		s.hits[method]++
	}
	s.mu.Unlock()
	if !ok {
		return nil
	}
	trace.SpanFromContext(ctx).AddEvent("fault injected", trace.WithAttributes(
		attribute.String("fault.method", method),
		attribute.String("fault.error", err.Error()),
	))
	return err
}

type faultTx struct {
	model.Tx
	s *Store
}

func (t *faultTx) InsertItem(ctx context.Context, item *model.Item) error {
	if err := t.s.inject(ctx, "InsertItem"); err != nil {
		return err
	}
	return t.Tx.InsertItem(ctx, item)
}

func (t *faultTx) SetItemStatus(ctx context.Context, serial string, status model.ItemStatus) error {
	if err := t.s.inject(ctx, "SetItemStatus"); err != nil {
		return err
	}
	return t.Tx.SetItemStatus(ctx, serial, status)
}

func (t *faultTx) InsertMember(ctx context.Context, m *model.Member) error {
	if err := t.s.inject(ctx, "InsertMember"); err != nil {
		return err
	}
	return t.Tx.InsertMember(ctx, m)
}

func (t *faultTx) UpdateMember(ctx context.Context, m *model.Member) error {
	if err := t.s.inject(ctx, "UpdateMember"); err != nil {
		return err
	}
	return t.Tx.UpdateMember(ctx, m)
}

func (t *faultTx) InsertIssue(ctx context.Context, issue *model.Issue) error {
	if err := t.s.inject(ctx, "InsertIssue"); err != nil {
		return err
	}
	return t.Tx.InsertIssue(ctx, issue)
}

func (t *faultTx) CloseIssue(ctx context.Context, issue *model.Issue) error {
	if err := t.s.inject(ctx, "CloseIssue"); err != nil {
		return err
	}
	return t.Tx.CloseIssue(ctx, issue)
}

func (t *faultTx) InsertRequest(ctx context.Context, r *model.Request) error {
	if err := t.s.inject(ctx, "InsertRequest"); err != nil {
		return err
	}
	return t.Tx.InsertRequest(ctx, r)
}

func (t *faultTx) UpdateRequest(ctx context.Context, r *model.Request) error {
	if err := t.s.inject(ctx, "UpdateRequest"); err != nil {
		return err
	}
	return t.Tx.UpdateRequest(ctx, r)
}

func (t *faultTx) ListIssues(ctx context.Context, q model.IssueQuery) ([]model.Issue, error) {
	if err := t.s.inject(ctx, "ListIssues"); err != nil {
		return nil, err
	}
	return t.Tx.ListIssues(ctx, q)
}
