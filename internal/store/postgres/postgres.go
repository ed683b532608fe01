// internal/store/postgres/postgres.go
package postgres

import (
	"context"
	"database/sql"
	"iter"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"lendingdesk/internal/model"
)

const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"

	defaultMaxAttempts = 5
)

// Store implements model.Store on PostgreSQL with serializable transactions.
type Store struct {
	db          *sqlx.DB
	log         logrus.FieldLogger
	tracer      trace.Tracer
	maxAttempts uint
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, log logrus.FieldLogger) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect to database")
	}
	return New(db, log), nil
}

// New wraps an existing connection pool.
func New(db *sqlx.DB, log logrus.FieldLogger) *Store {
	return &Store{
		db:          db,
		log:         log.WithField("component", "store"),
		tracer:      otel.Tracer("lendingdesk/store/postgres"),
		maxAttempts: defaultMaxAttempts,
	}
}

// InTx runs fn in a SERIALIZABLE transaction and retries it with
// exponential backoff when PostgreSQL aborts it as a serialization failure
// or deadlock victim.
func (s *Store) InTx(ctx context.Context, fn func(tx model.Tx) error) error {
	ctx, span := s.tracer.Start(ctx, "store.tx")
	defer span.End()

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := s.runTx(ctx, fn)
		switch {
		case err == nil:
			return struct{}{}, nil
		case retryable(err):
			s.log.WithError(err).WithField("attempt", attempts).Debug("transaction aborted, retrying")
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(s.maxAttempts),
	)

	span.SetAttributes(attribute.Int("tx.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(tx model.Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer sqlTx.Rollback()

	if err := fn(&tx{tx: sqlTx}); err != nil {
		return err
	}
	return errors.Wrap(sqlTx.Commit(), "commit transaction")
}

// Items streams matching catalog rows straight from the cursor.
func (s *Store) Items(ctx context.Context, q model.ItemQuery) iter.Seq2[model.Item, error] {
	return func(yield func(model.Item, error) bool) {
		query, args := itemsQuery(q)
		rows, err := s.db.QueryxContext(ctx, query, args...)
		if err != nil {
			yield(model.Item{}, errors.Wrap(err, "query items"))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var item model.Item
			if err := rows.StructScan(&item); err != nil {
				yield(model.Item{}, errors.Wrap(err, "scan item"))
				return
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.Item{}, errors.Wrap(err, "iterate items"))
		}
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func retryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeUniqueViolation
}

// likePattern escapes LIKE metacharacters so s matches literally.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

const itemColumns = `serial_no, kind, title, author, category, cost, acquired_on, status, created_at`

func itemsQuery(q model.ItemQuery) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	if q.TitleContains != "" {
		args = append(args, likePattern(q.TitleContains))
		where = append(where, "title ILIKE ?")
	}
	if q.Kind != "" {
		args = append(args, string(q.Kind))
		where = append(where, "kind = ?")
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		where = append(where, "status = ?")
	}

	query := `SELECT ` + itemColumns + ` FROM items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY title, serial_no"
	return sqlx.Rebind(sqlx.DOLLAR, query), args
}
