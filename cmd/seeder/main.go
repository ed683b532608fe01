// cmd/seeder/main.go
package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"lendingdesk/internal/catalog"
	"lendingdesk/internal/config"
	"lendingdesk/internal/dates"
	"lendingdesk/internal/model"
	"lendingdesk/internal/telemetry"
)

const copiesPerTitle = 3

type title struct {
	kind     model.Kind
	name     string
	author   string
	category model.Category
	cost     decimal.Decimal
}

var titles = []title{
	{model.Book, "A Brief History of Time", "Stephen Hawking", model.Science, decimal.RequireFromString("15.50")},
	{model.Book, "The Wealth of Nations", "Adam Smith", model.Economics, decimal.RequireFromString("22.00")},
	{model.Book, "Pride and Prejudice", "Jane Austen", model.Fiction, decimal.RequireFromString("9.99")},
	{model.Book, "Matilda", "Roald Dahl", model.Children, decimal.RequireFromString("7.25")},
	{model.Book, "Atomic Habits", "James Clear", model.PersonalDevelopment, decimal.RequireFromString("18.00")},
	{model.Movie, "Cosmos: A Spacetime Odyssey", "Brannon Braga", model.Science, decimal.RequireFromString("12.00")},
	{model.Movie, "The Big Short", "Adam McKay", model.Economics, decimal.RequireFromString("10.00")},
	{model.Movie, "Spirited Away", "Hayao Miyazaki", model.Children, decimal.RequireFromString("11.50")},
}

var members = []struct{ first, last, contact, address, identity string }{
	{"Asha", "Rao", "Vikram Rao", "12 Lake Road", "ID-1001"},
	{"Bruno", "Diaz", "Maria Diaz", "4 Hill Street", "ID-1002"},
	{"Chen", "Wei", "Li Wei", "88 Harbour Lane", "ID-1003"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log, err := telemetry.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("configure logging")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("unable to connect to database")
	}
	defer conn.Close(ctx)

	log.Info("seeding database")
	if err := seed(ctx, conn, log); err != nil {
		log.WithError(err).Fatal("seeding failed")
	}
}

func seed(ctx context.Context, conn *pgx.Conn, log logrus.FieldLogger) error {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM items`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		log.WithField("items", count).Info("catalog already populated, skipping")
		return nil
	}

	// Same lock the catalog service takes before allocating serials.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('items.serial_no'))`); err != nil {
		return err
	}
	var last int
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(serial_no::int), 0) FROM items WHERE serial_no ~ '^[0-9]+$'`).Scan(&last); err != nil {
		return err
	}

	acquired := dates.Today().AddDays(-30).Time()
	var itemRows [][]interface{}
	for _, t := range titles {
		for i := 0; i < copiesPerTitle; i++ {
			last++
			itemRows = append(itemRows, []interface{}{
				catalog.FormatSerial(last), string(t.kind), t.name, t.author, string(t.category),
				t.cost.InexactFloat64(), acquired, string(model.Available),
			})
		}
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"items"},
		[]string{"serial_no", "kind", "title", "author", "category", "cost", "acquired_on", "status"},
		pgx.CopyFromRows(itemRows),
	)
	if err != nil {
		return err
	}
	log.WithField("items", n).Info("items copied")

	start := dates.Today()
	end := start.AddDays(365)
	memberRows := make([][]interface{}, len(members))
	for i, m := range members {
		memberRows[i] = []interface{}{
			m.first, m.last, m.contact, m.address, m.identity,
			start.Time(), end.Time(), string(model.Active), 0.0,
		}
	}
	n, err = tx.CopyFrom(ctx,
		pgx.Identifier{"members"},
		[]string{"first_name", "last_name", "contact_name", "contact_address", "identity_no", "membership_start", "membership_end", "status", "pending_fine"},
		pgx.CopyFromRows(memberRows),
	)
	if err != nil {
		return err
	}
	log.WithField("members", n).Info("members copied")

	return tx.Commit(ctx)
}
