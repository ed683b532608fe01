// internal/store/postgres/tx.go
package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"lendingdesk/internal/model"
)

// tx implements model.Tx on one *sqlx.Tx.
type tx struct {
	tx *sqlx.Tx
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNoRows
	}
	return errors.Wrap(err, what)
}

func insertErr(err error, what string) error {
	if isUniqueViolation(err) {
		return model.ErrDuplicate
	}
	return errors.Wrap(err, what)
}

func expectRow(res sql.Result, err error, what string) error {
	if err != nil {
		return errors.Wrap(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, what)
	}
	if n == 0 {
		return model.ErrNoRows
	}
	return nil
}

func (t *tx) LockSerials(ctx context.Context) error {
	_, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext('items.serial_no'))`)
	return errors.Wrap(err, "lock serial allocation")
}

func (t *tx) MaxSerial(ctx context.Context) (int, error) {
	var max int
	err := t.tx.GetContext(ctx, &max, `
		SELECT COALESCE(MAX(serial_no::int), 0)
		FROM items
		WHERE serial_no ~ '^[0-9]+$'
	`)
	return max, errors.Wrap(err, "query max serial")
}

func (t *tx) InsertItem(ctx context.Context, item *model.Item) error {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO items (serial_no, kind, title, author, category, cost, acquired_on, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`, item.Serial, item.Kind, item.Title, item.Author, item.Category, item.Cost, item.AcquiredOn, item.Status).Scan(&item.CreatedAt)
	if err != nil {
		return insertErr(err, "insert item")
	}
	return nil
}

func (t *tx) GetItem(ctx context.Context, serial string) (*model.Item, error) {
	return t.item(ctx, `SELECT `+itemColumns+` FROM items WHERE serial_no = $1`, serial)
}

func (t *tx) LockItem(ctx context.Context, serial string) (*model.Item, error) {
	return t.item(ctx, `SELECT `+itemColumns+` FROM items WHERE serial_no = $1 FOR UPDATE`, serial)
}

func (t *tx) item(ctx context.Context, query, serial string) (*model.Item, error) {
	item := &model.Item{}
	if err := t.tx.GetContext(ctx, item, query, serial); err != nil {
		return nil, notFound(err, "get item")
	}
	return item, nil
}

func (t *tx) SetItemStatus(ctx context.Context, serial string, status model.ItemStatus) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE items SET status = $1 WHERE serial_no = $2`, status, serial)
	return expectRow(res, err, "update item status")
}

func (t *tx) ListItems(ctx context.Context, q model.ItemQuery) ([]model.Item, error) {
	query, args := itemsQuery(q)
	var items []model.Item
	if err := t.tx.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, errors.Wrap(err, "list items")
	}
	return items, nil
}

func (t *tx) SimilarSerials(ctx context.Context, fragment string, limit int) ([]string, error) {
	var serials []string
	err := t.tx.SelectContext(ctx, &serials, `
		SELECT serial_no FROM items
		WHERE serial_no LIKE $1
		ORDER BY serial_no
		LIMIT $2
	`, likePattern(fragment), limit)
	return serials, errors.Wrap(err, "query similar serials")
}

const memberColumns = `id, first_name, last_name, contact_name, contact_address, identity_no,
	membership_start, membership_end, status, pending_fine`

func (t *tx) InsertMember(ctx context.Context, m *model.Member) error {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO members (first_name, last_name, contact_name, contact_address, identity_no,
			membership_start, membership_end, status, pending_fine)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, m.FirstName, m.LastName, m.ContactName, m.ContactAddress, m.IdentityNo,
		m.Start, m.End, m.Status, m.PendingFine).Scan(&m.ID)
	if err != nil {
		return insertErr(err, "insert member")
	}
	return nil
}

func (t *tx) GetMember(ctx context.Context, id int64) (*model.Member, error) {
	return t.member(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
}

func (t *tx) LockMember(ctx context.Context, id int64) (*model.Member, error) {
	return t.member(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1 FOR UPDATE`, id)
}

func (t *tx) member(ctx context.Context, query string, id int64) (*model.Member, error) {
	m := &model.Member{}
	if err := t.tx.GetContext(ctx, m, query, id); err != nil {
		return nil, notFound(err, "get member")
	}
	return m, nil
}

func (t *tx) UpdateMember(ctx context.Context, m *model.Member) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE members
		SET first_name = $1, last_name = $2, contact_name = $3, contact_address = $4, identity_no = $5,
			membership_start = $6, membership_end = $7, status = $8, pending_fine = $9
		WHERE id = $10
	`, m.FirstName, m.LastName, m.ContactName, m.ContactAddress, m.IdentityNo,
		m.Start, m.End, m.Status, m.PendingFine, m.ID)
	return expectRow(res, err, "update member")
}

func (t *tx) ListMembers(ctx context.Context) ([]model.Member, error) {
	var members []model.Member
	err := t.tx.SelectContext(ctx, &members, `SELECT `+memberColumns+` FROM members ORDER BY first_name, last_name, id`)
	return members, errors.Wrap(err, "list members")
}

const issueColumns = `id, item_serial, member_id, issue_date, due_date, actual_return_date, fine_amount, remarks`

func (t *tx) InsertIssue(ctx context.Context, issue *model.Issue) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO issues (id, item_serial, member_id, issue_date, due_date, actual_return_date, fine_amount, remarks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, issue.ID, issue.Serial, issue.MemberID, issue.IssueDate, issue.DueDate, issue.ReturnedOn, issue.Fine, issue.Remarks)
	if err != nil {
		return insertErr(err, "insert issue")
	}
	return nil
}

func (t *tx) OpenIssue(ctx context.Context, serial string) (*model.Issue, error) {
	return t.issue(ctx, `SELECT `+issueColumns+` FROM issues WHERE item_serial = $1 AND actual_return_date IS NULL`, serial)
}

func (t *tx) LockOpenIssue(ctx context.Context, serial string) (*model.Issue, error) {
	return t.issue(ctx, `SELECT `+issueColumns+` FROM issues WHERE item_serial = $1 AND actual_return_date IS NULL FOR UPDATE`, serial)
}

func (t *tx) issue(ctx context.Context, query, serial string) (*model.Issue, error) {
	issue := &model.Issue{}
	if err := t.tx.GetContext(ctx, issue, query, serial); err != nil {
		return nil, notFound(err, "get open issue")
	}
	return issue, nil
}

func (t *tx) CloseIssue(ctx context.Context, issue *model.Issue) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE issues
		SET actual_return_date = $1, fine_amount = $2, remarks = $3
		WHERE id = $4 AND actual_return_date IS NULL
	`, issue.ReturnedOn, issue.Fine, issue.Remarks, issue.ID)
	return expectRow(res, err, "close issue")
}

func (t *tx) ListIssues(ctx context.Context, q model.IssueQuery) ([]model.Issue, error) {
	var (
		where []string
		args  []interface{}
	)
	if q.OpenOnly {
		where = append(where, "actual_return_date IS NULL")
	}
	if !q.DueBefore.IsZero() {
		args = append(args, q.DueBefore)
		where = append(where, "due_date < ?")
	}
	if q.MemberID != 0 {
		args = append(args, q.MemberID)
		where = append(where, "member_id = ?")
	}
	query := `SELECT ` + issueColumns + ` FROM issues`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY issue_date, due_date, item_serial"

	var issues []model.Issue
	err := t.tx.SelectContext(ctx, &issues, t.tx.Rebind(query), args...)
	return issues, errors.Wrap(err, "list issues")
}

const userColumns = `id, username, password_hash, salt, is_admin, is_active, created_at`

func (t *tx) InsertUser(ctx context.Context, u *model.User) error {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO users (id, username, password_hash, salt, is_admin, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, u.ID, u.Username, u.PasswordHash, u.Salt, u.IsAdmin, u.IsActive).Scan(&u.CreatedAt)
	if err != nil {
		return insertErr(err, "insert user")
	}
	return nil
}

func (t *tx) GetUserByName(ctx context.Context, username string) (*model.User, error) {
	u := &model.User{}
	err := t.tx.GetContext(ctx, u, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
	if err != nil {
		return nil, notFound(err, "get user")
	}
	return u, nil
}

func (t *tx) UpdateUser(ctx context.Context, u *model.User) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $1, salt = $2, is_admin = $3, is_active = $4
		WHERE id = $5
	`, u.PasswordHash, u.Salt, u.IsAdmin, u.IsActive, u.ID)
	return expectRow(res, err, "update user")
}

func (t *tx) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := t.tx.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY username`)
	return users, errors.Wrap(err, "list users")
}

const requestColumns = `id, member_id, title, requested_on, fulfilled_on`

func (t *tx) InsertRequest(ctx context.Context, r *model.Request) error {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO requests (member_id, title, requested_on, fulfilled_on)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, r.MemberID, r.Title, r.RequestedOn, r.FulfilledOn).Scan(&r.ID)
	if err != nil {
		return insertErr(err, "insert request")
	}
	return nil
}

func (t *tx) LockRequest(ctx context.Context, id int64) (*model.Request, error) {
	r := &model.Request{}
	err := t.tx.GetContext(ctx, r, `SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, notFound(err, "get request")
	}
	return r, nil
}

func (t *tx) UpdateRequest(ctx context.Context, r *model.Request) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE requests SET title = $1, fulfilled_on = $2 WHERE id = $3
	`, r.Title, r.FulfilledOn, r.ID)
	return expectRow(res, err, "update request")
}

func (t *tx) ListRequests(ctx context.Context) ([]model.Request, error) {
	var requests []model.Request
	err := t.tx.SelectContext(ctx, &requests, `SELECT `+requestColumns+` FROM requests ORDER BY requested_on DESC, id DESC`)
	return requests, errors.Wrap(err, "list requests")
}
