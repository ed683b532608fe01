// internal/console/console.go
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"lendingdesk/internal/auth"
	"lendingdesk/internal/catalog"
	"lendingdesk/internal/circulation"
	"lendingdesk/internal/errs"
	"lendingdesk/internal/membership"
	"lendingdesk/internal/model"
	"lendingdesk/internal/reports"
	"lendingdesk/internal/requests"
)

// Services are the operations the menu drives.
type Services struct {
	Catalog     catalog.Service
	Membership  membership.Service
	Circulation circulation.Service
	Requests    requests.Service
	Reports     reports.Service
	Auth        auth.Service
}

// Console is the interactive terminal front-end. It reads one answer per
// line from in and writes prompts and tables to out.
type Console struct {
	svc  Services
	in   *bufio.Scanner
	out  io.Writer
	log  logrus.FieldLogger
	user *model.User
}

func New(svc Services, in io.Reader, out io.Writer, log logrus.FieldLogger) *Console {
	return &Console{svc: svc, in: bufio.NewScanner(in), out: out, log: log}
}

// errLogout unwinds the menus back to the login prompt.
var errLogout = errors.New("logout")

// Run loops over login and the home menu until the input is exhausted.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := c.login(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		err := c.home(ctx)
		c.user = nil
		switch {
		case errors.Is(err, errLogout):
			c.println("Logged out.")
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
	}
}

func (c *Console) login(ctx context.Context) error {
	c.println("\n=== Library Login ===")
	for {
		username, err := c.prompt("Username")
		if err != nil {
			return err
		}
		password, err := c.prompt("Password")
		if err != nil {
			return err
		}
		user, err := c.svc.Auth.Authenticate(ctx, username, password)
		if err != nil {
			c.report(err)
			continue
		}
		c.user = user
		c.log.WithField("username", user.Username).Info("console login")
		c.printf("Welcome, %s!\n", user.Username)
		return nil
	}
}

type entry struct {
	label string
	run   func(ctx context.Context) error
}

// menu prints entries numbered from 1 and runs the chosen one. Operation
// failures are reported and the menu is shown again; only input and
// navigation errors end the loop.
func (c *Console) menu(ctx context.Context, title string, entries []entry) error {
	for {
		c.printf("\n--- %s ---\n", title)
		for i, e := range entries {
			c.printf("%d. %s\n", i+1, e.label)
		}
		choice, err := c.prompt("Choose")
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(choice)
		if err != nil || n < 1 || n > len(entries) {
			c.println("Invalid choice.")
			continue
		}
		err = entries[n-1].run(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF), errors.Is(err, errLogout), errors.Is(err, errBack):
			return err
		default:
			c.report(err)
		}
	}
}

// errBack closes a submenu.
var errBack = errors.New("back")

func back(context.Context) error { return errBack }

func (c *Console) home(ctx context.Context) error {
	entries := []entry{
		{"Maintenance", c.maintenance},
		{"Reports", c.reportsMenu},
		{"Transactions", c.transactions},
		{"Log Out", func(context.Context) error { return errLogout }},
	}
	return c.menu(ctx, "Home", entries)
}

func (c *Console) maintenance(ctx context.Context) error {
	if !c.user.IsAdmin {
		c.println("Maintenance is restricted to administrators.")
		return nil
	}
	err := c.menu(ctx, "Maintenance", []entry{
		{"Add Membership", c.addMembership},
		{"Update Membership", c.updateMembership},
		{"Add Book / Movie", c.addItems},
		{"Update Item Status", c.updateItemStatus},
		{"List Users", c.listUsers},
		{"Add User", c.addUser},
		{"Back", back},
	})
	return submenuDone(err)
}

func (c *Console) transactions(ctx context.Context) error {
	err := c.menu(ctx, "Transactions", []entry{
		{"Check Availability", c.checkAvailability},
		{"Issue Item", c.issueItem},
		{"Return Item", c.returnItem},
		{"Pay Fine", c.payFine},
		{"Request Title", c.requestTitle},
		{"Fulfill Request", c.fulfillRequest},
		{"Back", back},
	})
	return submenuDone(err)
}

func (c *Console) reportsMenu(ctx context.Context) error {
	err := c.menu(ctx, "Reports", []entry{
		{"Master List of Books", c.masterList(model.Book)},
		{"Master List of Movies", c.masterList(model.Movie)},
		{"Master List of Members", c.memberList},
		{"Active Issues", c.activeIssues},
		{"Overdue Returns", c.overdue},
		{"Pending Requests", c.requestList},
		{"Status Drift", c.drift},
		{"Back", back},
	})
	return submenuDone(err)
}

// submenuDone turns a submenu's Back into a normal return to its parent.
func submenuDone(err error) error {
	if errors.Is(err, errBack) {
		return nil
	}
	return err
}

// report prints a failed operation's kind and message.
func (c *Console) report(err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		c.log.WithError(err).Error("console operation failed")
		c.println("Error: internal error")
		return
	}
	c.printf("Error (%s): %s\n", e.Kind, e.Msg)
	if len(e.Suggestions) > 0 {
		c.printf("Did you mean: %s\n", strings.Join(e.Suggestions, ", "))
	}
}

func (c *Console) prompt(label string) (string, error) {
	c.printf("%s: ", label)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) println(s string) {
	fmt.Fprintln(c.out, s)
}
