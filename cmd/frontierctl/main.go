// Command frontierctl operates a frontier directly against the store:
// bootstrap or reset it, add and claim entries, and check dependencies.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"relentless-frontier/common"
	"relentless-frontier/internal/config"
	"relentless-frontier/internal/frontier"
	"relentless-frontier/internal/logging"
)

type appKeyType string

const appKey appKeyType = "app"

// app carries what subcommands share. The frontier is opened lazily so
// commands like check work without it.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	frontier frontier.Frontier
	close    func() error
}

// openFrontier is a variable so tests can inject a frontier.
var openFrontier = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (frontier.Frontier, func() error, error) {
	svc, st, err := common.OpenFrontier(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return svc, st.Disconnect, nil
}

func (a *app) open(ctx context.Context) (frontier.Frontier, error) {
	if a.frontier != nil {
		return a.frontier, nil
	}
	f, closeFn, err := openFrontier(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open frontier: %w", err)
	}
	a.frontier = f
	a.close = closeFn
	return f, nil
}

func (a *app) shutdown() {
	if a.close != nil {
		if err := a.close(); err != nil {
			a.logger.Warn("failed to disconnect store", zap.Error(err))
		}
		a.close = nil
	}
	_ = a.logger.Sync()
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:           "frontierctl",
		Short:         "Operate the Redis-coordinated crawl frontier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger := zap.NewNop()
			if verbose {
				if logger, err = logging.New(cfg.Log.Development); err != nil {
					return err
				}
			}
			a := &app{cfg: cfg, logger: logger.Named("frontierctl")}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKey).(*app); ok {
				a.shutdown()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	cmd.AddCommand(
		newInitCmd(),
		newAddCmd(),
		newClaimCmd(),
		newGetCmd(),
		newStatsCmd(),
		newCheckCmd(),
	)
	return cmd
}

func resolveApp(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey).(*app)
	if !ok || a == nil {
		return nil, errors.New("frontierctl: not initialized")
	}
	return a, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
