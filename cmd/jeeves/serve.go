package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jeeves/internal/logging"
	httpserver "jeeves/internal/server/http"
)

func newServeCommand() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the viewer HTTP server (command surface + event stream)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), listenAddr)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", "", "override the configured listen address")
	return cmd
}

func runServe(ctx context.Context, listenAddrOverride string) error {
	logger := logging.NewComponentLogger("serve")

	c, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	addr := c.cfg.ListenAddr
	if listenAddrOverride != "" {
		addr = listenAddrOverride
	}

	api := httpserver.NewAPIHandler(c.commands)
	router := httpserver.NewRouter(api, c.hub, httpserver.RouterConfig{
		Environment: c.cfg.Environment,
	})

	srv := &http.Server{Addr: addr, Handler: router}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-sigCtx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
