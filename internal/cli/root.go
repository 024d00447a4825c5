// Package cli provides the snapdiff command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/agenthands/snapdiff/internal/config"
	"github.com/agenthands/snapdiff/internal/driver"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

type configKey struct{}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "snapdiff",
		Short: "snapdiff - structural comparison of project snapshots",
		Long: `snapdiff resolves two to five project snapshots (remote views, JSON/YAML files,
line-delimited files or archived graph snapshots) and reports how each one
differs from a baseline.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))

			_ = godotenv.Load()
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $CONFIG_PATH or ./config/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(newVersionCommand())
	rootCmd.AddCommand(newCompareCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newArchiveCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "config/config.toml"
	}
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// openGraph connects to Memgraph when configured. The returned close func is never nil.
func openGraph(cfg *config.Config) (driver.GraphDriver, func(), error) {
	if cfg.Memgraph.URI == "" {
		return nil, func() {}, nil
	}
	d, err := driver.NewMemgraphDriver(cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to connect to Memgraph: %w", err)
	}
	return d, func() { _ = d.Close(context.Background()) }, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "snapdiff v%s\n", Version)
		},
	}
}
