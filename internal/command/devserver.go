package command

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

	"github.com/adamavenir/agora/internal/config"
	"github.com/adamavenir/agora/internal/fakeapi"
	"github.com/adamavenir/agora/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// NewDevServerCmd creates the dev-server command.
func NewDevServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run an in-memory backend with demo data",
		Long: `Run a local backend seeded with a few users and conversations.

Examples:
  agora dev-server --addr 127.0.0.1:8787
  AGORA_BASE_URL=http://127.0.0.1:8787 agora login --token token-ada --name "Ada Lovelace"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			verbose, _ := cmd.Flags().GetBool("verbose")

			level := "info"
			if verbose {
				level = "debug"
			}
			logger, err := logging.New(config.LogConfig{Level: level, Development: true})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer func() { _ = logger.Sync() }()

			backend, token := fakeapi.NewDemo(logger.Named("fakeapi"))
			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			server := &http.Server{
				Handler:           backend,
				ReadHeaderTimeout: 5 * time.Second,
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Serving demo backend on http://%s\n", listener.Addr())
			fmt.Fprintf(cmd.OutOrStdout(), "Demo token: %s (user u-ada)\n", token)

			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- server.Serve(listener) }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return writeCommandError(cmd, err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown", zap.Error(err))
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "127.0.0.1:8787", "listen address")

	return cmd
}
