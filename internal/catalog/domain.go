// internal/catalog/domain.go
package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"

	"lendingdesk/internal/dates"
	"lendingdesk/internal/errs"
	"lendingdesk/internal/model"
)

// NewItems describes a batch of identical copies to add to the catalog.
type NewItems struct {
	Kind       model.Kind      `json:"kind"`
	Title      string          `json:"title"`
	Author     string          `json:"author"`
	Category   model.Category  `json:"category"`
	Cost       decimal.Decimal `json:"cost"`
	AcquiredOn dates.Date      `json:"acquired_on"`
	Quantity   int             `json:"quantity"`
}

func (n NewItems) validate() error {
	if err := errs.Required("title", n.Title, "author", n.Author); err != nil {
		return err
	}
	if !n.Kind.Valid() {
		return errs.Validation("unknown kind %q", n.Kind)
	}
	if !n.Category.Valid() {
		return errs.Validation("unknown category %q", n.Category)
	}
	if n.AcquiredOn.IsZero() {
		return errs.Validation("required: acquired_on")
	}
	if n.Cost.IsNegative() {
		return errs.Validation("cost must not be negative")
	}
	if !model.ValidMoney(n.Cost) {
		return errs.Validation("cost %s must have at most %d decimal places and fewer than 11 digits before the point", n.Cost, model.MoneyPlaces)
	}
	if n.Quantity < 1 {
		return errs.Validation("quantity must be at least 1")
	}
	return nil
}

// FormatSerial renders the n-th serial number, zero-padded to two digits.
func FormatSerial(n int) string {
	return fmt.Sprintf("%02d", n)
}
