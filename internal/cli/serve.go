package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"medconnect-server/internal/integrations"
	"medconnect-server/internal/metrics"
	"medconnect-server/internal/models"
	"medconnect-server/internal/notifications"
	"medconnect-server/internal/routes"
	"medconnect-server/internal/store"
)

const shutdownTimeout = 10 * time.Second

func serveCmd(a *app) *cobra.Command {
	var port string
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				a.cfg.Port = port
			}
			return a.serve(skipMigrate)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Override PORT")
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not auto-migrate on startup")
	return cmd
}

// newHTTPServer returns a server whose request contexts are cancelled when
// Shutdown starts, so long-lived notification streams end and let it drain.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	baseCtx, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancel)
	return srv
}

func (a *app) serve(skipMigrate bool) error {
	log := a.logger.WithComponent("server")

	db, err := a.openDB()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if !skipMigrate {
		if err := models.Migrate(db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	st := store.New(db)
	m := metrics.New()
	notifier := notifications.NewService(st, notifications.NewBroadcaster(), m, a.logger)
	ai := integrations.NewMock(a.cfg.Integrations.MockDelay, st, a.logger)

	router := routes.NewRouter(routes.Deps{
		Config:       a.cfg,
		Store:        st,
		Logger:       a.logger,
		Metrics:      m,
		Notifier:     notifier,
		Integrations: ai,
	})

	jobs := notifications.NewJobs(st, notifier, a.cfg.Jobs, a.logger)
	if err := jobs.Start(); err != nil {
		return fmt.Errorf("start jobs: %w", err)
	}
	defer jobs.Stop()

	srv := newHTTPServer(":"+a.cfg.Port, router)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", a.cfg.Port).WithField("environment", a.cfg.Environment).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
