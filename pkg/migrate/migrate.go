package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nimburion/geodir/pkg/observability/logger"
)

// PendingMigration contains an unapplied migration entry for status output.
type PendingMigration struct {
	Version int64
	Name    string
}

// Status is the normalized migration status used by the CLI helper.
type Status struct {
	AppliedVersions []int64
	Pending         []PendingMigration
}

// Operations defines the migration hooks a command runs.
type Operations struct {
	Up     func(ctx context.Context) (int, error)
	Down   func(ctx context.Context, steps int) (int, error)
	Status func(ctx context.Context) (*Status, error)
}

// Options configures migration command behavior.
type Options struct {
	ServiceName string
	// Source names where migrations come from, for logging.
	Source  string
	Timeout time.Duration
	Logger  logger.Logger
}

// RunCommand executes a migrate subcommand under the configured timeout.
func RunCommand(ctx context.Context, subcommand string, steps int, opts Options, ops Operations) error {
	if err := validateOptions(opts); err != nil {
		return err
	}
	if err := validateOperations(ops); err != nil {
		return err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch subcommand {
	case "up":
		applied, err := ops.Up(ctx)
		if err != nil {
			return err
		}
		opts.Logger.Info("migrations applied", "count", applied, "source", opts.Source)
		return nil
	case "down":
		if steps <= 0 {
			return errors.New("steps must be greater than zero")
		}
		reverted, err := ops.Down(ctx, steps)
		if err != nil {
			return err
		}
		opts.Logger.Info("migrations reverted", "count", reverted, "steps", steps, "source", opts.Source)
		return nil
	case "status":
		status, err := ops.Status(ctx)
		if err != nil {
			return err
		}
		opts.Logger.Info("migration status", "applied", len(status.AppliedVersions), "pending", len(status.Pending), "source", opts.Source)
		for _, version := range status.AppliedVersions {
			opts.Logger.Info("migration applied", "version", version)
		}
		for _, pending := range status.Pending {
			opts.Logger.Info("migration pending", "version", pending.Version, "name", pending.Name)
		}
		return nil
	default:
		return usageError(opts.ServiceName)
	}
}

func validateOptions(opts Options) error {
	if opts.Logger == nil {
		return errors.New("migration logger is required")
	}
	if opts.ServiceName == "" {
		return errors.New("migration service name is required")
	}
	if opts.Source == "" {
		return errors.New("migration source is required")
	}
	return nil
}

func validateOperations(ops Operations) error {
	if ops.Up == nil || ops.Down == nil || ops.Status == nil {
		return errors.New("migration operations are incomplete")
	}
	return nil
}

func usageError(serviceName string) error {
	return fmt.Errorf("usage: %s migrate [up|down|status] [steps]", serviceName)
}
