// internal/console/forms.go
package console

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"lendingdesk/internal/auth"
	"lendingdesk/internal/catalog"
	"lendingdesk/internal/circulation"
	"lendingdesk/internal/dates"
	"lendingdesk/internal/errs"
	"lendingdesk/internal/membership"
	"lendingdesk/internal/model"
	"lendingdesk/internal/requests"
)

func (c *Console) date(label string) (dates.Date, error) {
	s, err := c.prompt(label + " (YYYY-MM-DD)")
	if err != nil {
		return dates.Date{}, err
	}
	d, err := dates.Parse(s)
	if err != nil {
		return dates.Date{}, errs.Validation("%s: %q is not a YYYY-MM-DD date", strings.ToLower(label), s)
	}
	return d, nil
}

func (c *Console) id(label string) (int64, error) {
	s, err := c.prompt(label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, errs.Validation("%s: %q is not a valid id", strings.ToLower(label), s)
	}
	return n, nil
}

func (c *Console) money(label string) (decimal.Decimal, error) {
	s, err := c.prompt(label)
	if err != nil {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errs.Validation("%s: %q is not an amount", strings.ToLower(label), s)
	}
	return d, nil
}

func (c *Console) duration(label string) (membership.Duration, error) {
	c.println("1. 6 months   2. 1 year   3. 2 years")
	s, err := c.prompt(label)
	if err != nil {
		return 0, err
	}
	return membership.ParseDuration(s)
}

func (c *Console) addMembership(ctx context.Context) error {
	c.println("\n--- Add Membership ---")
	var req membership.NewMember
	fields := []struct {
		label string
		dst   *string
	}{
		{"First Name", &req.FirstName},
		{"Last Name", &req.LastName},
		{"Contact Person", &req.ContactName},
		{"Address", &req.ContactAddress},
		{"Identity No", &req.IdentityNo},
	}
	for _, f := range fields {
		v, err := c.prompt(f.label)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	var err error
	if req.Start, err = c.date("Start Date"); err != nil {
		return err
	}
	if req.Duration, err = c.duration("Membership type"); err != nil {
		return err
	}

	member, err := c.svc.Membership.AddMember(ctx, req)
	if err != nil {
		return err
	}
	c.printf("Member added. ID = %d, valid until %s\n", member.ID, member.End)
	return nil
}

func (c *Console) updateMembership(ctx context.Context) error {
	id, err := c.id("Member ID")
	if err != nil {
		return err
	}
	member, err := c.svc.Membership.GetMember(ctx, id)
	if err != nil {
		return err
	}
	c.printf("Current end date: %s | Status: %s\n", member.End, member.Status)

	action, err := c.prompt("1. Extend   2. Cancel membership   3. Back")
	if err != nil {
		return err
	}
	switch action {
	case "1":
		d, err := c.duration("Extend by")
		if err != nil {
			return err
		}
		member, err = c.svc.Membership.ExtendMembership(ctx, id, d)
		if err != nil {
			return err
		}
		c.printf("Membership extended to %s.\n", member.End)
	case "2":
		if _, err := c.svc.Membership.CancelMembership(ctx, id); err != nil {
			return err
		}
		c.println("Membership cancelled.")
	}
	return nil
}

func (c *Console) addItems(ctx context.Context) error {
	c.println("\n--- Add Book / Movie ---")
	var req catalog.NewItems
	kind, err := c.prompt("1 = Book   2 = Movie")
	if err != nil {
		return err
	}
	switch kind {
	case "1":
		req.Kind = model.Book
	case "2":
		req.Kind = model.Movie
	default:
		return errs.Validation("unknown kind %q", kind)
	}

	if req.Title, err = c.prompt("Title"); err != nil {
		return err
	}
	if req.Author, err = c.prompt("Author / Director"); err != nil {
		return err
	}
	names := make([]string, len(model.Categories))
	for i, cat := range model.Categories {
		names[i] = string(cat)
	}
	category, err := c.prompt("Category (" + strings.Join(names, "/") + ")")
	if err != nil {
		return err
	}
	req.Category = model.Category(category)
	if req.Cost, err = c.money("Cost"); err != nil {
		return err
	}
	if req.AcquiredOn, err = c.date("Procurement Date"); err != nil {
		return err
	}
	qty, err := c.prompt("Quantity (default 1)")
	if err != nil {
		return err
	}
	req.Quantity = 1
	if qty != "" {
		if req.Quantity, err = strconv.Atoi(qty); err != nil {
			return errs.Validation("quantity: %q is not a number", qty)
		}
	}

	items, err := c.svc.Catalog.AddItems(ctx, req)
	if err != nil {
		return err
	}
	c.printf("%d item(s) added. (Serial: %s to %s)\n", len(items), items[0].Serial, items[len(items)-1].Serial)
	return nil
}

func (c *Console) updateItemStatus(ctx context.Context) error {
	serial, err := c.prompt("Serial Number")
	if err != nil {
		return err
	}
	status, err := c.prompt("New status (Available / Issued)")
	if err != nil {
		return err
	}
	if status != "" {
		status = strings.ToUpper(status[:1]) + strings.ToLower(status[1:])
	}
	if err := c.svc.Catalog.SetItemStatus(ctx, serial, model.ItemStatus(status)); err != nil {
		return err
	}
	c.println("Status updated.")
	return nil
}

func (c *Console) addUser(ctx context.Context) error {
	var req auth.NewUser
	var err error
	if req.Username, err = c.prompt("Username"); err != nil {
		return err
	}
	if req.Password, err = c.prompt("Password"); err != nil {
		return err
	}
	if req.Confirm, err = c.prompt("Confirm Password"); err != nil {
		return err
	}
	admin, err := c.prompt("Admin? (y/N)")
	if err != nil {
		return err
	}
	req.IsAdmin = strings.EqualFold(admin, "y")

	user, err := c.svc.Auth.CreateUser(ctx, req)
	if err != nil {
		return err
	}
	c.printf("User %s created.\n", user.Username)
	return nil
}

func (c *Console) checkAvailability(ctx context.Context) error {
	title, err := c.prompt("Title contains")
	if err != nil {
		return err
	}
	t := c.table("Serial", "Type", "Title", "Author", "Status")
	found := 0
	for item, err := range c.svc.Catalog.FindItems(ctx, title) {
		if err != nil {
			return err
		}
		t.row(item.Serial, item.Kind, item.Title, item.Author, item.Status)
		found++
	}
	if found == 0 {
		c.println("No items found.")
		return nil
	}
	return t.flush()
}

func (c *Console) issueItem(ctx context.Context) error {
	var req circulation.IssueRequest
	var err error
	if req.Serial, err = c.prompt("Serial Number"); err != nil {
		return err
	}
	if req.MemberID, err = c.id("Member ID"); err != nil {
		return err
	}
	if req.IssueDate, err = c.date("Issue Date"); err != nil {
		return err
	}
	if req.DueDate, err = c.date("Return Date"); err != nil {
		return err
	}
	if req.Remarks, err = c.prompt("Remarks (optional)"); err != nil {
		return err
	}

	issue, err := c.svc.Circulation.IssueItem(ctx, req)
	if err != nil {
		return err
	}
	c.printf("Item %s issued to member %d, due %s.\n", issue.Serial, issue.MemberID, issue.DueDate)
	return nil
}

// returnItem quotes the fine first and only commits once the amount paid
// at the desk is known.
func (c *Console) returnItem(ctx context.Context) error {
	serial, err := c.prompt("Serial Number")
	if err != nil {
		return err
	}
	returnedOn, err := c.date("Actual Return Date")
	if err != nil {
		return err
	}
	remarks, err := c.prompt("Remarks (optional)")
	if err != nil {
		return err
	}

	quote, err := c.svc.Circulation.QuoteReturn(ctx, serial, returnedOn, remarks)
	if err != nil {
		return err
	}
	c.printf("Due date: %s | Days late: %d\n", quote.DueDate, quote.LateDays)
	c.printf("Late fine: %s | Prior balance: %s | Total due: %s\n",
		quote.NewFine.StringFixed(2), quote.PriorBalance.StringFixed(2), quote.TotalDue.StringFixed(2))

	paid := decimal.Zero
	if quote.TotalDue.IsPositive() {
		s, err := c.prompt("Amount paid now (blank for 0)")
		if err != nil {
			return err
		}
		if s != "" {
			if paid, err = decimal.NewFromString(s); err != nil {
				return errs.Validation("amount paid: %q is not an amount", s)
			}
		}
	}

	settlement, err := c.svc.Circulation.CommitReturn(ctx, quote, paid)
	if err != nil {
		return err
	}
	c.printf("Item returned. Remaining fine: %s\n", settlement.Member.PendingFine.StringFixed(2))
	return nil
}

func (c *Console) payFine(ctx context.Context) error {
	id, err := c.id("Member ID")
	if err != nil {
		return err
	}
	amount, err := c.money("Amount to pay")
	if err != nil {
		return err
	}
	member, err := c.svc.Circulation.PayFine(ctx, id, amount)
	if err != nil {
		return err
	}
	c.printf("Payment accepted. Remaining fine: %s\n", member.PendingFine.StringFixed(2))
	return nil
}

func (c *Console) requestTitle(ctx context.Context) error {
	var req requests.NewRequest
	var err error
	if req.MemberID, err = c.id("Member ID"); err != nil {
		return err
	}
	if req.Title, err = c.prompt("Title"); err != nil {
		return err
	}
	if req.RequestedOn, err = c.date("Requested On"); err != nil {
		return err
	}
	r, err := c.svc.Requests.Create(ctx, req)
	if err != nil {
		return err
	}
	c.printf("Request %d recorded.\n", r.ID)
	return nil
}

func (c *Console) fulfillRequest(ctx context.Context) error {
	id, err := c.id("Request ID")
	if err != nil {
		return err
	}
	on, err := c.date("Fulfilled On")
	if err != nil {
		return err
	}
	if _, err := c.svc.Requests.Fulfill(ctx, id, on); err != nil {
		return err
	}
	c.println("Request fulfilled.")
	return nil
}
