// Package cli builds the geodir command tree on cobra. Commands load the
// configuration through config.ViperLoader with their own flags bound, create
// the logger and hand both to the callbacks in ServiceCommandOptions.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nimburion/geodir/pkg/config"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/version"
)

// ServiceCommandOptions defines the callbacks behind each command. A nil
// callback leaves its command out.
type ServiceCommandOptions struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	RunServer         func(ctx context.Context, cfg *config.Config, log logger.Logger) error
	RunMigrations     func(ctx context.Context, cfg *config.Config, log logger.Logger, direction string, steps int) error
	RunSeed           func(ctx context.Context, cfg *config.Config, log logger.Logger) error
	CheckDependencies func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	CustomCommands []*cobra.Command
}

// NewServiceCommand creates the root command with serve, migrate, seed,
// healthcheck, config and version subcommands. Running the root command
// without a subcommand serves.
func NewServiceCommand(opts ServiceCommandOptions) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = "GEODIR"
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var cfgPath string
	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&cfgPath, "config-file", "c", opts.ConfigPath, "config file path")
	persistent.String("log-level", "", "log level (debug, info, warn, error)")
	persistent.String("log-format", "", "log format (json, text)")
	persistent.String("database-type", "", "database type (postgres, mysql)")
	persistent.String("database-url", "", "database connection URL")

	loadConfig := func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
		return LoadConfigAndLogger(cfgPath, opts.EnvPrefix, flags)
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout(), version.Current(opts.Name))
		},
	})

	if opts.RunServer != nil {
		serveCmd := &cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP servers",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadConfig(cmd.Flags())
				if err != nil {
					return err
				}
				if err := cfg.RequireDatabaseURL(); err != nil {
					return err
				}
				return opts.RunServer(cmd.Context(), cfg, log)
			},
		}
		serveCmd.Flags().Int("http-port", 0, "public API port")
		serveCmd.Flags().Int("management-port", 0, "management server port")
		serveCmd.Flags().Bool("auto-migrate", false, "apply pending migrations before serving")
		rootCmd.AddCommand(serveCmd)
		rootCmd.RunE = serveCmd.RunE
	}

	if opts.RunMigrations != nil {
		rootCmd.AddCommand(newMigrateCommand(opts, loadConfig))
	}

	if opts.RunSeed != nil {
		seedCmd := &cobra.Command{
			Use:   "seed",
			Short: "Load fixture data into the directory",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadConfig(cmd.Flags())
				if err != nil {
					return err
				}
				if err := cfg.RequireDatabaseURL(); err != nil {
					return err
				}
				return opts.RunSeed(cmd.Context(), cfg, log)
			},
		}
		seedCmd.Flags().String("file", "", "YAML fixture file (default: built-in fixture)")
		seedCmd.Flags().Bool("ignore-duplicates", false, "skip entries that already exist")
		rootCmd.AddCommand(seedCmd)
	}

	if opts.CheckDependencies != nil {
		rootCmd.AddCommand(&cobra.Command{
			Use:   "healthcheck",
			Short: "Check database and event bus connectivity",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadConfig(cmd.Flags())
				if err != nil {
					return err
				}
				if err := opts.CheckDependencies(cmd.Context(), cfg, log); err != nil {
					return fmt.Errorf("dependency check failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "all dependencies are healthy")
				return nil
			},
		})
	}

	rootCmd.AddCommand(newConfigCommand(&cfgPath, opts.EnvPrefix))

	for _, custom := range opts.CustomCommands {
		if custom != nil {
			rootCmd.AddCommand(custom)
		}
	}

	return rootCmd
}

type configLoadFunc func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error)

func newMigrateCommand(opts ServiceCommandOptions, loadConfig configLoadFunc) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema migrations",
	}

	run := func(direction string) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			steps, err := parseSteps(direction, args)
			if err != nil {
				return err
			}
			cfg, log, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabaseURL(); err != nil {
				return err
			}
			return opts.RunMigrations(cmd.Context(), cfg, log, direction, steps)
		}
	}

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE:  run("up"),
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Revert the last applied migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE:  run("down"),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE:  run("status"),
		},
	)
	return migrateCmd
}

func parseSteps(direction string, args []string) (int, error) {
	if direction != "down" || len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(args[0])
	if err != nil || steps <= 0 {
		return 0, fmt.Errorf("invalid down steps %q: must be a positive integer", args[0])
	}
	return steps, nil
}

func newConfigCommand(cfgPath *string, envPrefix string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.NewViperLoader(*cfgPath, envPrefix).WithFlags(cmd.Flags()).Load(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with credentials masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.NewViperLoader(*cfgPath, envPrefix).WithFlags(cmd.Flags()).Load()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			return nil
		},
	})
	return configCmd
}

// LoadConfigAndLogger loads and validates configuration and creates the
// zap logger it describes.
func LoadConfigAndLogger(cfgPath, envPrefix string, flags *pflag.FlagSet) (*config.Config, logger.Logger, error) {
	cfg, err := config.NewViperLoader(cfgPath, envPrefix).WithFlags(flags).Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level, err := logger.ParseLogLevel(cfg.Observability.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	format, err := logger.ParseLogFormat(cfg.Observability.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.NewZapLogger(logger.Config{Level: level, Format: format})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	if level == logger.DebugLevel {
		log.Debug("effective configuration", "config", cfg.String())
	}
	return cfg, log, nil
}

func printVersion(w io.Writer, info version.Info) {
	fmt.Fprintf(w, "Service:    %s\n", info.Service)
	fmt.Fprintf(w, "Version:    %s\n", info.Version)
	fmt.Fprintf(w, "Commit:     %s\n", info.Commit)
	fmt.Fprintf(w, "Build Time: %s\n", info.BuildTime)
	if info.GoVersion != "" {
		fmt.Fprintf(w, "Go:         %s\n", info.GoVersion)
	}
}

// Execute runs cmd with a context cancelled on SIGINT or SIGTERM and exits
// non-zero on error.
func Execute(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
