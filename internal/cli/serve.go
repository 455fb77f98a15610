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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskboard/internal/forms"
	"taskboard/internal/session"
	"taskboard/internal/web"
)

func newServeCommand() *cobra.Command {
	var (
		addr        string
		allowRemote bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser UI",
		Long: `Serve the browser UI.

The UI holds a single signed-in session shared by every browser that
reaches it, so it only listens on a loopback address unless --allow-remote
is given.

Examples:
  taskboard serve
  taskboard serve --addr 127.0.0.1:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, addr, allowRemote)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $TASKBOARD_ADDRESS)")
	cmd.Flags().BoolVar(&allowRemote, "allow-remote", false, "listen on a non-loopback address")
	return cmd
}

// ErrRemoteAddress is returned when serve would listen beyond loopback
// without --allow-remote.
var ErrRemoteAddress = errors.New("listen address is not loopback")

// isLoopback reports whether addr only accepts local connections. An empty
// host binds every interface.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil || host == "" {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func runServe(cmd *cobra.Command, addr string, allowRemote bool) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() { _ = env.log.Sync() }()
	if addr == "" {
		addr = env.cfg.Address
	}
	if !isLoopback(addr) {
		if !allowRemote {
			return fmt.Errorf("%w: %s (pass --allow-remote to share the signed-in session)", ErrRemoteAddress, addr)
		}
		env.log.Warn("serving beyond loopback; every visitor shares the signed-in session", zap.String("address", addr))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validator, err := forms.New(env.cfg.Language)
	if err != nil {
		return fmt.Errorf("load form messages: %w", err)
	}

	store := session.New(env.client, env.log)
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		env.log.Warn("no previous session", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	app := web.New(web.Options{
		Gateway:   env.client,
		Store:     store,
		Validator: validator,
		Logger:    env.log,
	})
	defer func() {
		if err := app.Close(); err != nil {
			env.log.Warn("closing board failed", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:              addr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		// Event streams end with the server context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		env.log.Info("taskboard listening", zap.String("address", addr), zap.String("gateway", env.cfg.GatewayURL))
		fmt.Fprintf(cmd.OutOrStdout(), "Taskboard running at http://%s\n", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	env.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		env.log.Error("graceful shutdown failed", zap.Error(err))
	}
	return nil
}
