// cmd/lendingdesk/main.go
package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"lendingdesk/internal/auth"
	"lendingdesk/internal/console"
	"lendingdesk/internal/store/postgres"
)

func main() {
	app := &cli.App{
		Name:  "lendingdesk",
		Usage: "circulation desk for a books and movies collection",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API",
				Action: serve,
			},
			{
				Name:   "menu",
				Usage:  "run the interactive terminal menu",
				Action: menu,
			},
			{
				Name:  "migrate",
				Usage: "manage the PostgreSQL schema",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply pending migrations", Action: migrateUp},
					{
						Name:   "down",
						Usage:  "roll back migrations",
						Flags:  []cli.Flag{&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"}},
						Action: migrateDown,
					},
				},
			},
			{
				Name:  "users",
				Usage: "manage staff accounts",
				Subcommands: []*cli.Command{
					{Name: "list", Usage: "list accounts", Action: listUsers},
					{
						Name:  "add",
						Usage: "create an account",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "username", Required: true},
							&cli.StringFlag{Name: "password", Required: true},
							&cli.BoolFlag{Name: "admin"},
						},
						Action: addUser,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("lendingdesk failed")
	}
}

func menu(c *cli.Context) error {
	a, err := setup(c.Context)
	if err != nil {
		return err
	}
	defer a.close()

	return console.New(a.consoleServices(), os.Stdin, os.Stdout, a.log).Run(c.Context)
}

func migrateUp(c *cli.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	return postgres.Migrate(cfg.DatabaseURL, log)
}

func migrateDown(c *cli.Context) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	steps := c.Int("steps")
	if steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}
	return postgres.MigrateDown(cfg.DatabaseURL, steps, log)
}

func listUsers(c *cli.Context) error {
	a, err := setup(c.Context)
	if err != nil {
		return err
	}
	defer a.close()

	users, err := a.auth.ListUsers(c.Context)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tADMIN\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%t\t%t\n", u.Username, u.IsAdmin, u.IsActive)
	}
	return w.Flush()
}

func addUser(c *cli.Context) error {
	a, err := setup(c.Context)
	if err != nil {
		return err
	}
	defer a.close()

	password := c.String("password")
	user, err := a.auth.CreateUser(c.Context, auth.NewUser{
		Username: c.String("username"),
		Password: password,
		Confirm:  password,
		IsAdmin:  c.Bool("admin"),
	})
	if err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{"username": user.Username, "admin": user.IsAdmin}).Info("user created")
	return nil
}
