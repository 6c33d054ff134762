package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/store/sqldb"
)

// RunWithAdapter runs a migrate subcommand against the embedded schema using
// an already opened store adapter.
func RunWithAdapter(ctx context.Context, adapter *sqldb.Adapter, serviceName, direction string, steps int, timeout time.Duration, log logger.Logger) error {
	if adapter == nil {
		return fmt.Errorf("store adapter is required")
	}

	manager, err := NewSchemaManager(adapter.DB(), adapter.Dialect())
	if err != nil {
		return err
	}
	source, _ := SchemaDir(adapter.Dialect())

	return RunCommand(ctx, direction, steps, Options{
		ServiceName: serviceName,
		Source:      "embedded:" + source,
		Timeout:     timeout,
		Logger:      log,
	}, manager.Operations())
}

// ApplyPending applies every pending migration of the embedded schema and
// returns how many were applied.
func ApplyPending(ctx context.Context, adapter *sqldb.Adapter, log logger.Logger) (int, error) {
	if adapter == nil {
		return 0, fmt.Errorf("store adapter is required")
	}
	manager, err := NewSchemaManager(adapter.DB(), adapter.Dialect())
	if err != nil {
		return 0, err
	}
	applied, err := manager.Up(ctx)
	if err != nil {
		return applied, err
	}
	log.Info("schema migrations applied", "count", applied, "dialect", adapter.Dialect().Name())
	return applied, nil
}
