// Package memory is an in-process model.Store. Transactions are serialized by
// one mutex and run against a private copy of the state that replaces the
// live state only when the transaction function succeeds.
package memory

import (
	"context"
	"errors"
	"iter"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/model"
)

var errForeignKey = errors.New("memory: foreign key violation")

type state struct {
	items       map[string]model.Item
	members     map[int64]model.Member
	issues      map[uuid.UUID]model.Issue
	users       map[uuid.UUID]model.User
	requests    map[int64]model.Request
	nextMember  int64
	nextRequest int64
}

func newState() state {
	return state{
		items:    map[string]model.Item{},
		members:  map[int64]model.Member{},
		issues:   map[uuid.UUID]model.Issue{},
		users:    map[uuid.UUID]model.User{},
		requests: map[int64]model.Request{},
	}
}

func (s state) clone() state {
	c := state{
		items:       make(map[string]model.Item, len(s.items)),
		members:     make(map[int64]model.Member, len(s.members)),
		issues:      make(map[uuid.UUID]model.Issue, len(s.issues)),
		users:       make(map[uuid.UUID]model.User, len(s.users)),
		requests:    make(map[int64]model.Request, len(s.requests)),
		nextMember:  s.nextMember,
		nextRequest: s.nextRequest,
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.issues {
		v.ReturnedOn = copyDate(v.ReturnedOn)
		c.issues[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.requests {
		v.FulfilledOn = copyDate(v.FulfilledOn)
		c.requests[k] = v
	}
	return c
}

func copyDate(d *dates.Date) *dates.Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

// Store implements model.Store in memory.
type Store struct {
	mu  sync.Mutex
	st  state
	now func() time.Time
}

func New() *Store {
	return &Store{st: newState(), now: time.Now}
}

func (s *Store) InTx(ctx context.Context, fn func(tx model.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&tx{st: &work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Items(ctx context.Context, q model.ItemQuery) iter.Seq2[model.Item, error] {
	return func(yield func(model.Item, error) bool) {
		s.mu.Lock()
		items := (&tx{st: &s.st}).listItems(q)
		s.mu.Unlock()

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				yield(model.Item{}, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) LockSerials(ctx context.Context) error { return nil }

func (t *tx) MaxSerial(ctx context.Context) (int, error) {
	max := 0
	for serial := range t.st.items {
		n, err := strconv.Atoi(serial)
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (t *tx) InsertItem(ctx context.Context, item *model.Item) error {
	if _, ok := t.st.items[item.Serial]; ok {
		return model.ErrDuplicate
	}
	item.CreatedAt = t.now().UTC()
	t.st.items[item.Serial] = *item
	return nil
}

func (t *tx) GetItem(ctx context.Context, serial string) (*model.Item, error) {
	item, ok := t.st.items[serial]
	if !ok {
		return nil, model.ErrNoRows
	}
	return &item, nil
}

func (t *tx) LockItem(ctx context.Context, serial string) (*model.Item, error) {
	return t.GetItem(ctx, serial)
}

func (t *tx) SetItemStatus(ctx context.Context, serial string, status model.ItemStatus) error {
	item, ok := t.st.items[serial]
	if !ok {
		return model.ErrNoRows
	}
	item.Status = status
	t.st.items[serial] = item
	return nil
}

func (t *tx) ListItems(ctx context.Context, q model.ItemQuery) ([]model.Item, error) {
	return t.listItems(q), nil
}

func (t *tx) listItems(q model.ItemQuery) []model.Item {
	needle := strings.ToLower(q.TitleContains)
	var out []model.Item
	for _, item := range t.st.items {
		if q.Kind != "" && item.Kind != q.Kind {
			continue
		}
		if q.Status != "" && item.Status != q.Status {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(item.Title), needle) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].Serial < out[j].Serial
	})
	return out
}

func (t *tx) SimilarSerials(ctx context.Context, fragment string, limit int) ([]string, error) {
	var out []string
	for serial := range t.st.items {
		if strings.Contains(serial, fragment) {
			out = append(out, serial)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *tx) InsertMember(ctx context.Context, m *model.Member) error {
	t.st.nextMember++
	m.ID = t.st.nextMember
	t.st.members[m.ID] = *m
	return nil
}

func (t *tx) GetMember(ctx context.Context, id int64) (*model.Member, error) {
	m, ok := t.st.members[id]
	if !ok {
		return nil, model.ErrNoRows
	}
	return &m, nil
}

func (t *tx) LockMember(ctx context.Context, id int64) (*model.Member, error) {
	return t.GetMember(ctx, id)
}

func (t *tx) UpdateMember(ctx context.Context, m *model.Member) error {
	if _, ok := t.st.members[m.ID]; !ok {
		return model.ErrNoRows
	}
	if m.PendingFine.IsNegative() {
		return errors.New("memory: pending_fine must not be negative")
	}
	t.st.members[m.ID] = *m
	return nil
}

func (t *tx) ListMembers(ctx context.Context) ([]model.Member, error) {
	out := make([]model.Member, 0, len(t.st.members))
	for _, m := range t.st.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (t *tx) InsertIssue(ctx context.Context, issue *model.Issue) error {
	if _, ok := t.st.items[issue.Serial]; !ok {
		return errForeignKey
	}
	if _, ok := t.st.members[issue.MemberID]; !ok {
		return errForeignKey
	}
	if _, ok := t.st.issues[issue.ID]; ok {
		return model.ErrDuplicate
	}
	if _, err := t.OpenIssue(ctx, issue.Serial); err == nil {
		return model.ErrDuplicate
	}
	v := *issue
	v.ReturnedOn = copyDate(issue.ReturnedOn)
	t.st.issues[issue.ID] = v
	return nil
}

func (t *tx) OpenIssue(ctx context.Context, serial string) (*model.Issue, error) {
	for _, issue := range t.st.issues {
		if issue.Serial == serial && issue.Open() {
			return &issue, nil
		}
	}
	return nil, model.ErrNoRows
}

func (t *tx) LockOpenIssue(ctx context.Context, serial string) (*model.Issue, error) {
	return t.OpenIssue(ctx, serial)
}

func (t *tx) CloseIssue(ctx context.Context, issue *model.Issue) error {
	stored, ok := t.st.issues[issue.ID]
	if !ok || !stored.Open() || issue.ReturnedOn == nil {
		return model.ErrNoRows
	}
	stored.ReturnedOn = copyDate(issue.ReturnedOn)
	stored.Fine = issue.Fine
	stored.Remarks = issue.Remarks
	t.st.issues[issue.ID] = stored
	return nil
}

func (t *tx) ListIssues(ctx context.Context, q model.IssueQuery) ([]model.Issue, error) {
	var out []model.Issue
	for _, issue := range t.st.issues {
		if q.OpenOnly && !issue.Open() {
			continue
		}
		if !q.DueBefore.IsZero() && !issue.DueDate.Before(q.DueBefore) {
			continue
		}
		if q.MemberID != 0 && issue.MemberID != q.MemberID {
			continue
		}
		issue.ReturnedOn = copyDate(issue.ReturnedOn)
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.IssueDate.Equal(b.IssueDate) {
			return a.IssueDate.Before(b.IssueDate)
		}
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.Serial < b.Serial
	})
	return out, nil
}

func (t *tx) InsertUser(ctx context.Context, u *model.User) error {
	for _, existing := range t.st.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return model.ErrDuplicate
		}
	}
	u.CreatedAt = t.now().UTC()
	t.st.users[u.ID] = *u
	return nil
}

func (t *tx) GetUserByName(ctx context.Context, username string) (*model.User, error) {
	for _, u := range t.st.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, model.ErrNoRows
}

func (t *tx) UpdateUser(ctx context.Context, u *model.User) error {
	if _, ok := t.st.users[u.ID]; !ok {
		return model.ErrNoRows
	}
	t.st.users[u.ID] = *u
	return nil
}

func (t *tx) ListUsers(ctx context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(t.st.users))
	for _, u := range t.st.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (t *tx) InsertRequest(ctx context.Context, r *model.Request) error {
	if _, ok := t.st.members[r.MemberID]; !ok {
		return errForeignKey
	}
	t.st.nextRequest++
	r.ID = t.st.nextRequest
	v := *r
	v.FulfilledOn = copyDate(r.FulfilledOn)
	t.st.requests[r.ID] = v
	return nil
}

func (t *tx) LockRequest(ctx context.Context, id int64) (*model.Request, error) {
	r, ok := t.st.requests[id]
	if !ok {
		return nil, model.ErrNoRows
	}
	r.FulfilledOn = copyDate(r.FulfilledOn)
	return &r, nil
}

func (t *tx) UpdateRequest(ctx context.Context, r *model.Request) error {
	if _, ok := t.st.requests[r.ID]; !ok {
		return model.ErrNoRows
	}
	v := *r
	v.FulfilledOn = copyDate(r.FulfilledOn)
	t.st.requests[r.ID] = v
	return nil
}

func (t *tx) ListRequests(ctx context.Context) ([]model.Request, error) {
	out := make([]model.Request, 0, len(t.st.requests))
	for _, r := range t.st.requests {
		r.FulfilledOn = copyDate(r.FulfilledOn)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.RequestedOn.Equal(b.RequestedOn) {
			return a.RequestedOn.After(b.RequestedOn)
		}
		return a.ID > b.ID
	})
	return out, nil
}
