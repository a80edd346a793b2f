// Package main provides atkctl, the operator CLI for the platform:
// challenge responses for manual GraphQL testing, migrations and
// exchange-rate maintenance.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"asset-tokenization-kit/internal/config"
	"asset-tokenization-kit/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// configFile is set by the --config flag.
	configFile string

	// cfg and logger are loaded by PersistentPreRunE.
	cfg    config.Config
	logger *logrus.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "atkctl",
		Short:         "Operator CLI for the asset tokenization platform",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig(configFile, cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			logger = logging.New(logging.Options{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./atk.yaml or ~/.atk/atk.yaml)")
	root.PersistentFlags().Bool("use-memory", false, "use in-memory storage instead of PostgreSQL")
	root.PersistentFlags().String("postgres-dsn", "", "PostgreSQL connection string")
	root.PersistentFlags().String("portal-url", "", "Portal GraphQL endpoint")

	root.AddCommand(newPincodeResponseCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newRatesCmd())
	return root
}
