package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/observability/metrics"
	"github.com/nimburion/geodir/pkg/observability/tracing"
)

// instrumentation wraps every repository operation in a span, a query
// timeout and the repository metrics, and publishes change events after
// committed writes.
type instrumentation struct {
	entity    EntityType
	table     string
	db        DB
	log       logger.Logger
	publisher eventbus.Publisher
}

func newInstrumentation(entity EntityType, table string, db DB, log logger.Logger, publisher eventbus.Publisher) instrumentation {
	if log == nil {
		log = logger.NewNop()
	}
	if publisher == nil {
		publisher = eventbus.NoopPublisher{}
	}
	return instrumentation{
		entity:    entity,
		table:     table,
		db:        db,
		log:       log.With("entity", string(entity)),
		publisher: publisher,
	}
}

func (in instrumentation) observe(ctx context.Context, operation string, spanOp tracing.SpanOperation, id string, fn func(ctx context.Context) error) error {
	start := time.Now()

	ctx, span := tracing.StartDatabaseSpan(ctx, spanOp,
		tracing.WithDBTable(in.table),
		tracing.WithDBSystem(in.db.Dialect().Name()),
		tracing.WithEntity(string(in.entity), id),
	)
	defer span.End()

	ctx, cancel := in.db.WithQueryTimeout(ctx)
	defer cancel()

	err := fn(ctx)

	outcome := outcomeOf(err)
	metrics.RecordRepositoryOperation(string(in.entity), operation, outcome, time.Since(start))
	if err != nil {
		tracing.RecordError(span, err)
	} else {
		tracing.RecordSuccess(span)
	}

	log := in.log.WithContext(ctx)
	switch outcome {
	case metrics.OutcomeError:
		log.Error("repository operation failed", "operation", operation, "id", id, "error", err)
	case metrics.OutcomeConflict:
		log.Info("repository conflict", "operation", operation, "id", id, "error", err)
	case metrics.OutcomeSuccess:
		if spanOp != tracing.SpanOperationDBQuery {
			log.Debug("repository write committed", "operation", operation, "id", id, "duration", time.Since(start))
		}
	default:
		log.Debug("repository operation rejected", "operation", operation, "id", id, "error", err)
	}
	return err
}

func (in instrumentation) publish(ctx context.Context, operation eventbus.Operation, id string, cascade map[string]int64) {
	event := eventbus.NewChangeEvent(string(in.entity), operation, id)
	if len(cascade) > 0 {
		event.Cascade = cascade
	}
	if err := in.publisher.PublishChange(ctx, event); err != nil {
		in.log.WithContext(ctx).Warn("change event not published",
			"operation", operation,
			"id", id,
			"error", err,
		)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrParentNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrDuplicateEntity):
		return metrics.OutcomeConflict
	case errors.Is(err, ErrInvalidHierarchy),
		errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrInvalidSortDirection),
		errors.Is(err, ErrUnknownSortField),
		errors.Is(err, ErrInvalidPagination),
		errors.Is(err, ErrAmbiguousOrMissingKey):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}
