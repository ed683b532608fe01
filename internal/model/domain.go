// internal/model/domain.go
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"lendingdesk/internal/dates"
)

// Kind is the kind of a catalog item.
type Kind string

const (
	Book  Kind = "Book"
	Movie Kind = "Movie"
)

func (k Kind) Valid() bool { return k == Book || k == Movie }

// Category is one of the fixed catalog shelves.
type Category string

const (
	Science             Category = "Science"
	Economics           Category = "Economics"
	Fiction             Category = "Fiction"
	Children            Category = "Children"
	PersonalDevelopment Category = "Personal Development"
)

// Categories lists every category in display order.
var Categories = []Category{Science, Economics, Fiction, Children, PersonalDevelopment}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ItemStatus is the availability of a single copy.
type ItemStatus string

const (
	Available ItemStatus = "Available"
	Issued    ItemStatus = "Issued"
)

func (s ItemStatus) Valid() bool { return s == Available || s == Issued }

// MoneyPlaces is the number of decimal places every stored amount carries.
const MoneyPlaces = 2

// maxMoney is the smallest amount a NUMERIC(12,2) column cannot hold.
var maxMoney = decimal.New(1, 10)

// ValidMoney reports whether d can be stored in a money column without
// rounding or overflow.
func ValidMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyPlaces)) && d.Abs().LessThan(maxMoney)
}

// Item represents one physical copy of a book or movie.
type Item struct {
	Serial     string          `json:"serial_no" db:"serial_no"`
	Kind       Kind            `json:"kind" db:"kind"`
	Title      string          `json:"title" db:"title"`
	Author     string          `json:"author" db:"author"`
	Category   Category        `json:"category" db:"category"`
	Cost       decimal.Decimal `json:"cost" db:"cost"`
	AcquiredOn dates.Date      `json:"acquired_on" db:"acquired_on"`
	Status     ItemStatus      `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// MemberStatus tells whether a membership is in force.
type MemberStatus string

const (
	Active   MemberStatus = "Active"
	Inactive MemberStatus = "Inactive"
)

// Member represents a library member.
type Member struct {
	ID             int64           `json:"id" db:"id"`
	FirstName      string          `json:"first_name" db:"first_name"`
	LastName       string          `json:"last_name" db:"last_name"`
	ContactName    string          `json:"contact_name" db:"contact_name"`
	ContactAddress string          `json:"contact_address" db:"contact_address"`
	IdentityNo     string          `json:"identity_no" db:"identity_no"`
	Start          dates.Date      `json:"membership_start" db:"membership_start"`
	End            dates.Date      `json:"membership_end" db:"membership_end"`
	Status         MemberStatus    `json:"status" db:"status"`
	PendingFine    decimal.Decimal `json:"pending_fine" db:"pending_fine"`
}

func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// Issue is one circulation ledger entry. It is open while ReturnedOn is nil.
type Issue struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	Serial     string          `json:"serial_no" db:"item_serial"`
	MemberID   int64           `json:"member_id" db:"member_id"`
	IssueDate  dates.Date      `json:"issue_date" db:"issue_date"`
	DueDate    dates.Date      `json:"due_date" db:"due_date"`
	ReturnedOn *dates.Date     `json:"actual_return_date,omitempty" db:"actual_return_date"`
	Fine       decimal.Decimal `json:"fine_amount" db:"fine_amount"`
	Remarks    string          `json:"remarks" db:"remarks"`
}

func (i *Issue) Open() bool { return i.ReturnedOn == nil }

// User is a staff account for the front-ends.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Salt         string    `json:"-" db:"salt"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Request is a member's request for a title the collection does not hold.
type Request struct {
	ID          int64       `json:"id" db:"id"`
	MemberID    int64       `json:"member_id" db:"member_id"`
	Title       string      `json:"title" db:"title"`
	RequestedOn dates.Date  `json:"requested_on" db:"requested_on"`
	FulfilledOn *dates.Date `json:"fulfilled_on,omitempty" db:"fulfilled_on"`
}
