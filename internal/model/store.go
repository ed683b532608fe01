// internal/model/store.go
package model

import (
	"context"
	"errors"
	"iter"

	"lendingdesk/internal/dates"
)

var (
	// ErrNoRows is returned by Tx lookups that match nothing.
	ErrNoRows = errors.New("no rows in result set")
	// ErrDuplicate is returned when an insert violates a uniqueness rule
	// (serial number, username, one open issue per item).
	ErrDuplicate = errors.New("duplicate key")
)

// ItemQuery filters catalog listings. Zero fields match everything.
// Results are ordered by title, then serial.
type ItemQuery struct {
	TitleContains string // case-insensitive
	Kind          Kind
	Status        ItemStatus
}

// IssueQuery filters ledger listings, ordered by issue date then due date.
type IssueQuery struct {
	OpenOnly  bool
	DueBefore dates.Date // zero means no bound
	MemberID  int64      // zero means any member
}

// Store is the transactional row store every service runs against.
type Store interface {
	// InTx runs fn in one atomic transaction. Nothing fn wrote is visible
	// if it returns an error. Implementations may call fn more than once
	// when the transaction has to be retried.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// Items streams catalog rows matching q without holding a transaction open.
	Items(ctx context.Context, q ItemQuery) iter.Seq2[Item, error]
	Ping(ctx context.Context) error
	Close() error
}

// Tx is the row-level API available inside a transaction. Lock* variants
// take a row lock held until the transaction ends.
type Tx interface {
	// LockSerials serializes serial allocation across the whole catalog.
	LockSerials(ctx context.Context) error
	MaxSerial(ctx context.Context) (int, error)
	InsertItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, serial string) (*Item, error)
	LockItem(ctx context.Context, serial string) (*Item, error)
	SetItemStatus(ctx context.Context, serial string, status ItemStatus) error
	ListItems(ctx context.Context, q ItemQuery) ([]Item, error)
	SimilarSerials(ctx context.Context, fragment string, limit int) ([]string, error)

	InsertMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, id int64) (*Member, error)
	LockMember(ctx context.Context, id int64) (*Member, error)
	UpdateMember(ctx context.Context, m *Member) error
	ListMembers(ctx context.Context) ([]Member, error)

	InsertIssue(ctx context.Context, issue *Issue) error
	OpenIssue(ctx context.Context, serial string) (*Issue, error)
	LockOpenIssue(ctx context.Context, serial string) (*Issue, error)
	CloseIssue(ctx context.Context, issue *Issue) error
	ListIssues(ctx context.Context, q IssueQuery) ([]Issue, error)

	InsertUser(ctx context.Context, u *User) error
	GetUserByName(ctx context.Context, username string) (*User, error)
	UpdateUser(ctx context.Context, u *User) error
	ListUsers(ctx context.Context) ([]User, error)

	InsertRequest(ctx context.Context, r *Request) error
	LockRequest(ctx context.Context, id int64) (*Request, error)
	UpdateRequest(ctx context.Context, r *Request) error
	ListRequests(ctx context.Context) ([]Request, error)
}
