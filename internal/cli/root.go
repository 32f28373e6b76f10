// Package cli implements auditctl, an operator tool for querying and
// appending to the activity log without going through the HTTP API.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"activitylog/internal/audit/service"
	"activitylog/internal/platform/config"
	"activitylog/internal/platform/logger"
	"activitylog/internal/storage"
)

// Opener opens the configured event store.
type Opener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage.Handle, error)

type app struct {
	configFile string
	compact    bool

	out  io.Writer
	open Opener
}

// NewRootCommand builds the auditctl command tree. A nil opener uses
// storage.Open.
func NewRootCommand(out io.Writer, open Opener) *cobra.Command {
	if open == nil {
		open = storage.Open
	}
	a := &app{out: out, open: open}

	root := &cobra.Command{
		Use:   "auditctl",
		Short: "Query and record activity log events",
		Long: `auditctl reads the activity log from the store configured for the
server (config.yaml, .env or AUDIT_* variables) and prints events as JSON,
newest first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "path to a config file")
	root.PersistentFlags().BoolVar(&a.compact, "compact", false, "print one JSON document per line")

	root.AddCommand(
		a.allCmd(),
		a.recentCmd(),
		a.userCmd(),
		a.actionCmd(),
		a.roleCmd(),
		a.rangeCmd(),
		a.filterCmd(),
		a.searchCmd(),
		a.recordCmd(),
		a.tokenCmd(),
	)
	return root
}

// Execute runs auditctl with os.Args.
func Execute() {
	if err := NewRootCommand(os.Stdout, nil).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// env is what a command needs once config and store are open.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *storage.Handle
}

func (a *app) withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	cfg, err := loadConfig(a.configFile)
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout stays machine readable.
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := a.open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", "error", err)
		}
	}()
	return fn(ctx, &env{cfg: cfg, logger: log, store: store})
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (e *env) service() *service.Service {
	return service.New(e.store.Store,
		service.WithLogger(e.logger),
		service.WithBlankSearchLimit(e.cfg.Audit.SearchBlankLimit),
	)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	if !a.compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
