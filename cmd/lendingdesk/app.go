// cmd/lendingdesk/app.go
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"lendingdesk/internal/auth"
	"lendingdesk/internal/catalog"
	"lendingdesk/internal/circulation"
	"lendingdesk/internal/config"
	"lendingdesk/internal/console"
	"lendingdesk/internal/membership"
	"lendingdesk/internal/model"
	"lendingdesk/internal/reports"
	"lendingdesk/internal/requests"
	"lendingdesk/internal/store/memory"
	"lendingdesk/internal/store/postgres"
	"lendingdesk/internal/telemetry"
)

// app holds the wired services shared by every command.
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	store  model.Store
	meters *sdkmetric.MeterProvider

	catalog     catalog.Service
	membership  membership.Service
	circulation circulation.Service
	requests    requests.Service
	reports     reports.Service
	auth        auth.Service
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := telemetry.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func setup(ctx context.Context) (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}

	meters, err := telemetry.SetupMetrics(cfg.ServiceName, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		meters.Shutdown(ctx)
		return nil, err
	}

	a := &app{
		cfg:        cfg,
		log:        log,
		store:      store,
		meters:     meters,
		catalog:    catalog.NewService(store, log),
		membership: membership.NewService(store, log),
		circulation: circulation.NewService(store, log, circulation.Options{
			DailyFineRate: cfg.FineDailyRate,
			Meter:         meters.Meter("lendingdesk/circulation"),
		}),
		requests: requests.NewService(store, log),
		reports:  reports.NewService(store),
		auth:     auth.NewService(store, log, cfg.LoginRatePerMinute),
	}
	if err := a.bootstrapUsers(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (model.Store, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn("using the in-memory store, nothing will be persisted")
		return memory.New(), nil
	}

	if cfg.AutoMigrate {
		if err := postgres.Migrate(cfg.DatabaseURL, log); err != nil {
			return nil, err
		}
	}
	store, err := postgres.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// bootstrapUsers makes sure the default admin and desk accounts exist.
func (a *app) bootstrapUsers(ctx context.Context) error {
	accounts := []struct {
		username, password string
		admin              bool
	}{
		{"adm", a.cfg.BootstrapAdminPass, true},
		{"user", a.cfg.BootstrapUserPass, false},
	}
	for _, acc := range accounts {
		password := acc.password
		if password == "" {
			password = acc.username
		}
		created, err := a.auth.EnsureUser(ctx, acc.username, password, acc.admin)
		if err != nil {
			return fmt.Errorf("bootstrap user %s: %w", acc.username, err)
		}
		if created && acc.password == "" {
			a.log.WithField("username", acc.username).Warn("bootstrap account created with its default password")
		}
	}
	return nil
}

func (a *app) tokens() (*auth.Tokens, error) {
	secret := []byte(a.cfg.TokenSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		a.log.Warn("no token secret configured, tokens will not survive a restart")
	}
	return auth.NewTokens(secret, a.cfg.TokenTTL), nil
}

func (a *app) consoleServices() console.Services {
	return console.Services{
		Catalog:     a.catalog,
		Membership:  a.membership,
		Circulation: a.circulation,
		Requests:    a.requests,
		Reports:     a.reports,
		Auth:        a.auth,
	}
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("closing store")
	}
	if err := a.meters.Shutdown(context.Background()); err != nil {
		a.log.WithError(err).Warn("closing meter provider")
	}
}
