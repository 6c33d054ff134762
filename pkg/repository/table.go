package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/observability/tracing"
	"github.com/nimburion/geodir/pkg/store/sqldb"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// predicate renders a WHERE fragment, binding its values through args.
// An empty fragment means no condition.
type predicate func(args *sqldb.Args) string

func eq(column string, value interface{}) predicate {
	return func(args *sqldb.Args) string {
		return column + " = " + args.Add(value)
	}
}

func isNull(column string) predicate {
	return func(*sqldb.Args) string {
		return column + " IS NULL"
	}
}

// notID excludes one row; uuid.Nil excludes nothing.
func notID(id uuid.UUID) predicate {
	return func(args *sqldb.Args) string {
		if id == uuid.Nil {
			return ""
		}
		return "id <> " + args.Add(id)
	}
}

func and(preds ...predicate) predicate {
	return func(args *sqldb.Args) string {
		parts := make([]string, 0, len(preds))
		for _, p := range preds {
			if p == nil {
				continue
			}
			if s := p(args); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " AND ")
	}
}

func where(args *sqldb.Args, pred predicate) string {
	if pred == nil {
		return ""
	}
	if s := pred(args); s != "" {
		return " WHERE " + s
	}
	return ""
}

// table holds the SQL shared by every entity repository.
type table[T any] struct {
	db        DB
	hierarchy Hierarchy
	entity    EntityType
	name      string
	columns   []string
	fields    FieldMap
	scan      func(rowScanner) (*T, error)
	inst      instrumentation
}

func (t *table[T]) selectFrom() string {
	return "SELECT " + strings.Join(t.columns, ", ") + " FROM " + t.name
}

// read runs a query operation under instrumentation.
func (t *table[T]) read(ctx context.Context, operation string, id uuid.UUID, fn func(ctx context.Context) error) error {
	return t.inst.observe(ctx, operation, tracing.SpanOperationDBQuery, idString(id), fn)
}

// write runs fn in a transaction and publishes a change event once it has
// committed. fn may report cascade counts for deletes.
func (t *table[T]) write(ctx context.Context, op eventbus.Operation, id uuid.UUID, fn func(ctx context.Context) (map[string]int64, error)) error {
	spanOp := tracing.SpanOperationDBInsert
	switch op {
	case eventbus.OperationUpdated:
		spanOp = tracing.SpanOperationDBUpdate
	case eventbus.OperationDeleted:
		spanOp = tracing.SpanOperationDBDelete
	}

	var cascade map[string]int64
	err := t.inst.observe(ctx, writeOperation(op), spanOp, idString(id), func(ctx context.Context) error {
		return t.db.WithTransaction(ctx, func(ctx context.Context) error {
			var err error
			cascade, err = fn(ctx)
			return err
		})
	})
	if err != nil {
		return err
	}
	t.inst.publish(ctx, op, id.String(), cascade)
	return nil
}

func writeOperation(op eventbus.Operation) string {
	switch op {
	case eventbus.OperationUpdated:
		return "update"
	case eventbus.OperationDeleted:
		return "delete"
	default:
		return "create"
	}
}

func idString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

// rowLock is the row lock a read takes for the enclosing transaction.
type rowLock int

const (
	noLock rowLock = iota
	// shareLock blocks writers of the row until commit but not other readers.
	shareLock
	updateLock
)

func (l rowLock) clause() string {
	switch l {
	case shareLock:
		return " FOR SHARE"
	case updateLock:
		return " FOR UPDATE"
	default:
		return ""
	}
}

// queryOne returns the first matching row, or nil when there is none.
func (t *table[T]) queryOne(ctx context.Context, pred predicate, lock rowLock) (*T, error) {
	args := sqldb.NewArgs(t.db.Dialect())
	query := t.selectFrom() + where(args, pred) + lock.clause()

	item, err := t.scan(t.db.QueryRowContext(ctx, query, args.Values()...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.name, err)
	}
	return item, nil
}

// get loads a row by id; lock takes a row lock for the enclosing transaction.
func (t *table[T]) get(ctx context.Context, id uuid.UUID, lock bool) (*T, error) {
	mode := noLock
	if lock {
		mode = updateLock
	}
	item, err := t.queryOne(ctx, eq("id", id), mode)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, notFoundByID(t.entity, id)
	}
	return item, nil
}

// find loads a row by natural key, failing with NotFound.
func (t *table[T]) find(ctx context.Context, pred predicate, key, value string) (*T, error) {
	item, err := t.queryOne(ctx, pred, noLock)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &NotFoundError{Entity: t.entity, Key: key, Value: value}
	}
	return item, nil
}

func (t *table[T]) count(ctx context.Context, pred predicate) (int64, error) {
	return t.countTable(ctx, t.name, pred)
}

// countIn counts rows of the table storing entity.
func (t *table[T]) countIn(ctx context.Context, entity EntityType, pred predicate) (int64, error) {
	return t.countTable(ctx, t.hierarchy.Table(entity), pred)
}

func (t *table[T]) countTable(ctx context.Context, name string, pred predicate) (int64, error) {
	args := sqldb.NewArgs(t.db.Dialect())
	query := "SELECT COUNT(*) FROM " + name + where(args, pred)

	var n int64
	if err := t.db.QueryRowContext(ctx, query, args.Values()...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", name, err)
	}
	return n, nil
}

// exists reports whether id is present in the table storing entity.
func (t *table[T]) exists(ctx context.Context, entity EntityType, id uuid.UUID) (bool, error) {
	args := sqldb.NewArgs(t.db.Dialect())
	name := t.hierarchy.Table(entity)
	query := "SELECT 1 FROM " + name + " WHERE id = " + args.Add(id)

	var one int
	err := t.db.QueryRowContext(ctx, query, args.Values()...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", name, err)
	}
	return true, nil
}

// requireParent fails with ParentNotFound when parentID does not resolve.
func (t *table[T]) requireParent(ctx context.Context, parent EntityType, parentID uuid.UUID) error {
	ok, err := t.exists(ctx, parent, parentID)
	if err != nil {
		return err
	}
	if !ok {
		return &ParentNotFoundError{Entity: t.entity, Parent: parent, ParentID: parentID}
	}
	return nil
}

// requireNavigable fails with NotFound when a navigated parent is missing.
func (t *table[T]) requireNavigable(ctx context.Context, parent EntityType, parentID uuid.UUID) error {
	ok, err := t.exists(ctx, parent, parentID)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundByID(parent, parentID)
	}
	return nil
}

// conflict returns the id of a row other than exclude matching pred, or
// uuid.Nil.
func (t *table[T]) conflict(ctx context.Context, pred predicate, exclude uuid.UUID) (uuid.UUID, error) {
	args := sqldb.NewArgs(t.db.Dialect())
	query := "SELECT id FROM " + t.name + where(args, and(pred, notID(exclude))) + " LIMIT 1"

	var id uuid.UUID
	err := t.db.QueryRowContext(ctx, query, args.Values()...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to check %s duplicates: %w", t.name, err)
	}
	return id, nil
}

// checkUnique fails with DuplicateEntity when another row matches pred.
func (t *table[T]) checkUnique(ctx context.Context, pred predicate, exclude uuid.UUID, description string) error {
	existing, err := t.conflict(ctx, pred, exclude)
	if err != nil {
		return err
	}
	if existing != uuid.Nil {
		return &DuplicateEntityError{Entity: t.entity, ExistingID: existing, Description: description}
	}
	return nil
}

// prepare validates the caller ordering and page window of a listing.
func (t *table[T]) prepare(opts ListOptions) (Ordering, error) {
	if err := opts.Pagination.Validate(); err != nil {
		return nil, err
	}
	return ParseSort(opts.Sort, t.fields)
}

// page counts the matching rows and loads one window of them.
func (t *table[T]) page(ctx context.Context, pred predicate, ordering Ordering, p Pagination) (Page[T], error) {
	total, err := t.count(ctx, pred)
	if err != nil {
		return Page[T]{}, err
	}

	args := sqldb.NewArgs(t.db.Dialect())
	query := t.selectFrom() + where(args, pred) + " " + ordering.OrderByClause("id")
	if !p.Unlimited() {
		query += " LIMIT " + args.Add(p.Limit()) + " OFFSET " + args.Add(p.Offset())
	}

	rows, err := t.db.QueryContext(ctx, query, args.Values()...)
	if err != nil {
		return Page[T]{}, fmt.Errorf("failed to list %s: %w", t.name, err)
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := t.scan(rows)
		if err != nil {
			return Page[T]{}, fmt.Errorf("failed to scan %s: %w", t.name, err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return Page[T]{}, fmt.Errorf("failed to iterate %s: %w", t.name, err)
	}

	return Page[T]{Items: items, Info: NewPageInfo(total, p)}, nil
}

// list is prepare followed by page.
func (t *table[T]) list(ctx context.Context, pred predicate, opts ListOptions) (Page[T], error) {
	ordering, err := t.prepare(opts)
	if err != nil {
		return Page[T]{}, err
	}
	return t.page(ctx, pred, ordering, opts.Pagination)
}

func (t *table[T]) insert(ctx context.Context, columns []string, values []interface{}) error {
	args := sqldb.NewArgs(t.db.Dialect())
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = args.Add(v)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.name, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	_, err := t.db.ExecContext(ctx, query, args.Values()...)
	return err
}

func (t *table[T]) update(ctx context.Context, id uuid.UUID, columns []string, values []interface{}) error {
	args := sqldb.NewArgs(t.db.Dialect())
	sets := make([]string, len(columns))
	for i, column := range columns {
		sets[i] = column + " = " + args.Add(values[i])
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s", t.name, strings.Join(sets, ", "), args.Add(id))

	_, err := t.db.ExecContext(ctx, query, args.Values()...)
	return err
}

// deleteCascade removes id and its descendants, deepest first, and returns
// the number of descendant rows removed per entity.
func (t *table[T]) deleteCascade(ctx context.Context, id uuid.UUID) (map[string]int64, error) {
	if _, err := t.get(ctx, id, true); err != nil {
		return nil, err
	}

	removed := map[string]int64{}
	for _, step := range t.hierarchy.CascadePlan(t.entity) {
		args := sqldb.NewArgs(t.db.Dialect())
		query := step.Statement(t.hierarchy, args.Add(id))
		res, err := t.db.ExecContext(ctx, query, args.Values()...)
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s under %s %s: %w", step, t.entity, id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			removed[string(step.Entity)] += n
		}
	}

	args := sqldb.NewArgs(t.db.Dialect())
	res, err := t.db.ExecContext(ctx, "DELETE FROM "+t.name+" WHERE id = "+args.Add(id), args.Values()...)
	if err != nil {
		return nil, fmt.Errorf("failed to delete %s %s: %w", t.entity, id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, notFoundByID(t.entity, id)
	}
	return removed, nil
}

// persistError re-surfaces store constraint violations raised by a write
// racing with another transaction.
func (t *table[T]) persistError(err error, duplicate func() error, parent func() error) error {
	if err == nil {
		return nil
	}
	dialect := t.db.Dialect()
	switch {
	case dialect.IsUniqueViolation(err) && duplicate != nil:
		return duplicate()
	case dialect.IsForeignKeyViolation(err) && parent != nil:
		return parent()
	default:
		return fmt.Errorf("failed to persist %s: %w", t.entity, err)
	}
}

// stamp returns the current time at the precision both stores keep.
func stamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
