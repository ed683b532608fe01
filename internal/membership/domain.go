// internal/membership/domain.go
package membership

import (
	"strings"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/errs"
)

// Duration is a membership term in days.
type Duration int

const (
	SixMonths Duration = 180
	OneYear   Duration = 365
	TwoYears  Duration = 730
)

// Durations lists the offered terms in menu order.
var Durations = []Duration{SixMonths, OneYear, TwoYears}

func (d Duration) Valid() bool {
	return d == SixMonths || d == OneYear || d == TwoYears
}

func (d Duration) String() string {
	switch d {
	case SixMonths:
		return "6 months"
	case OneYear:
		return "1 year"
	case TwoYears:
		return "2 years"
	default:
		return "unknown"
	}
}

// ParseDuration accepts "6 months", "1 year", "2 years" or the menu codes 1, 2 and 3.
func ParseDuration(s string) (Duration, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "6 months", "1":
		return SixMonths, nil
	case "1 year", "2":
		return OneYear, nil
	case "2 years", "3":
		return TwoYears, nil
	default:
		return 0, errs.Validation("unknown membership duration %q", s)
	}
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// NewMember carries the details captured when a member joins.
type NewMember struct {
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	ContactName    string     `json:"contact_name"`
	ContactAddress string     `json:"contact_address"`
	IdentityNo     string     `json:"identity_no"`
	Start          dates.Date `json:"membership_start"`
	Duration       Duration   `json:"duration"`
}

func (n NewMember) validate() error {
	if err := errs.Required(
		"first_name", n.FirstName,
		"last_name", n.LastName,
		"contact_name", n.ContactName,
		"contact_address", n.ContactAddress,
		"identity_no", n.IdentityNo,
	); err != nil {
		return err
	}
	if n.Start.IsZero() {
		return errs.Validation("required: membership_start")
	}
	if !n.Duration.Valid() {
		return errs.Validation("unknown membership duration %d", int(n.Duration))
	}
	return nil
}
