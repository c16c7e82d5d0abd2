// Command adminctl runs maintenance tasks against the studio document store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"studio/admin/internal/config"
	"studio/admin/internal/docstore"
	"studio/admin/internal/docstore/backend"
	"studio/admin/internal/logging"
)

// openStore is replaced in tests.
var openStore = backend.Open

var verbose bool

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "adminctl",
	Short: "Studio admin maintenance",
	Long: `adminctl manages admin users and inspects or repairs manual ordering
in the configured document store. The store is chosen the same way as for the
admin server: DOCSTORE_DRIVER and friends, optionally layered over the YAML file
named by ADMIN_CONFIG_FILE.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log batch details to stderr")
	rootCmd.AddCommand(userCmd, orderCmd, migrateCmd, searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// env is what every store-backed command needs.
type env struct {
	cfg    config.Config
	store  docstore.Store
	logger *zap.Logger
}

func (e *env) Close() {
	_ = e.store.Close()
	_ = e.logger.Sync()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := zap.NewNop()
	if verbose {
		logger, err = logging.New(cfg.LogLevel, "console")
		if err != nil {
			return nil, err
		}
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DocstoreDriver, err)
	}
	return &env{cfg: cfg, store: store, logger: logger}, nil
}
