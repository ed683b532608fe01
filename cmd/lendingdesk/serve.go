// cmd/lendingdesk/serve.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"lendingdesk/internal/api"
	"lendingdesk/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

func serve(c *cli.Context) error {
	a, err := setup(c.Context)
	if err != nil {
		return err
	}
	defer a.close()

	shutdownTracing, err := telemetry.SetupTracing(c.Context, a.cfg.OTELEndpoint, a.cfg.ServiceName, a.log)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			a.log.WithError(err).Warn("tracing shutdown")
		}
	}()

	tokens, err := a.tokens()
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Services{
		Store:       a.store,
		Catalog:     a.catalog,
		Membership:  a.membership,
		Circulation: a.circulation,
		Requests:    a.requests,
		Reports:     a.reports,
		Auth:        a.auth,
		Tokens:      tokens,
	}, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithFields(logrus.Fields{"addr": a.cfg.HTTPAddr, "store": a.cfg.StoreDriver}).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	killSignalChan := make(chan os.Signal, 1)
	signal.Notify(killSignalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(killSignalChan)

	select {
	case err := <-errCh:
		return err
	case sig := <-killSignalChan:
		a.log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
