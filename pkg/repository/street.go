package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/observability/logger"
)

// StreetFields are the sort fields accepted for streets.
var StreetFields = withAuditFields(FieldMap{
	"name":        "name",
	"postCodeId":  "postcode_id",
	"postcodeId":  "postcode_id",
	"postcode_id": "postcode_id",
})

var streetColumns = []string{"id", "postcode_id", "name", "created_at", "updated_at"}

func scanStreet(row rowScanner) (*Street, error) {
	var s Street
	if err := row.Scan(&s.ID, &s.PostCodeID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

// StreetRepository stores streets.
type StreetRepository struct {
	t *table[Street]
}

// NewStreetRepository creates a repository on db.
func NewStreetRepository(db DB, log logger.Logger, publisher eventbus.Publisher) *StreetRepository {
	h := DefaultHierarchy()
	return &StreetRepository{t: &table[Street]{
		db:        db,
		hierarchy: h,
		entity:    EntityStreet,
		name:      h.Table(EntityStreet),
		columns:   streetColumns,
		fields:    StreetFields,
		scan:      scanStreet,
		inst:      newInstrumentation(EntityStreet, h.Table(EntityStreet), db, log, publisher),
	}}
}

// Count returns the number of streets.
func (r *StreetRepository) Count(ctx context.Context) (n int64, err error) {
	err = r.t.read(ctx, "count", uuid.Nil, func(ctx context.Context) error {
		n, err = r.t.count(ctx, nil)
		return err
	})
	return n, err
}

// List returns one page of streets.
func (r *StreetRepository) List(ctx context.Context, opts ListOptions) (page Page[Street], err error) {
	err = r.t.read(ctx, "list", uuid.Nil, func(ctx context.Context) error {
		page, err = r.t.list(ctx, nil, opts)
		return err
	})
	return page, err
}

// FindByID returns the street with id or a NotFoundError.
func (r *StreetRepository) FindByID(ctx context.Context, id uuid.UUID) (s *Street, err error) {
	err = r.t.read(ctx, "find", id, func(ctx context.Context) error {
		s, err = r.t.get(ctx, id, false)
		return err
	})
	return s, err
}

// FindByName returns the street called name inside postCodeID.
func (r *StreetRepository) FindByName(ctx context.Context, postCodeID uuid.UUID, name string) (s *Street, err error) {
	key := Street{PostCodeID: postCodeID, Name: name}
	if err := key.normalize(); err != nil {
		return nil, err
	}
	err = r.t.read(ctx, "find", uuid.Nil, func(ctx context.Context) error {
		s, err = r.t.find(ctx, streetScope(&key), "name", key.Name)
		return err
	})
	return s, err
}

// ListByPostCode returns one page of the streets of a postcode.
func (r *StreetRepository) ListByPostCode(ctx context.Context, postCodeID uuid.UUID, opts ListOptions) (page Page[Street], err error) {
	ordering, err := r.t.prepare(opts)
	if err != nil {
		return Page[Street]{}, err
	}
	err = r.t.read(ctx, "list_by_postcode", postCodeID, func(ctx context.Context) error {
		if err := r.t.requireNavigable(ctx, EntityPostCode, postCodeID); err != nil {
			return err
		}
		page, err = r.t.page(ctx, eq("postcode_id", postCodeID), ordering, opts.Pagination)
		return err
	})
	return page, err
}

// CountByPostCode returns the number of streets of a postcode.
func (r *StreetRepository) CountByPostCode(ctx context.Context, postCodeID uuid.UUID) (n int64, err error) {
	err = r.t.read(ctx, "count_by_postcode", postCodeID, func(ctx context.Context) error {
		if err := r.t.requireNavigable(ctx, EntityPostCode, postCodeID); err != nil {
			return err
		}
		n, err = r.t.count(ctx, eq("postcode_id", postCodeID))
		return err
	})
	return n, err
}

// Create validates and inserts s, assigning its id and timestamps.
func (r *StreetRepository) Create(ctx context.Context, s *Street) error {
	row := *s
	if err := row.normalize(); err != nil {
		return err
	}
	row.ID = uuid.New()
	row.CreatedAt = stamp()
	row.UpdatedAt = row.CreatedAt

	err := r.t.write(ctx, eventbus.OperationCreated, row.ID, func(ctx context.Context) (map[string]int64, error) {
		if err := r.validate(ctx, &row, uuid.Nil); err != nil {
			return nil, err
		}
		err := r.t.insert(ctx, streetColumns, []interface{}{row.ID, row.PostCodeID, row.Name, row.CreatedAt, row.UpdatedAt})
		return nil, r.t.persistError(err, r.raced(&row), r.parentGone(&row))
	})
	if err != nil {
		return err
	}
	*s = row
	return nil
}

// Update rewrites the street s.ID.
func (r *StreetRepository) Update(ctx context.Context, s *Street) error {
	row := *s
	if err := row.normalize(); err != nil {
		return err
	}

	err := r.t.write(ctx, eventbus.OperationUpdated, row.ID, func(ctx context.Context) (map[string]int64, error) {
		current, err := r.t.get(ctx, row.ID, true)
		if err != nil {
			return nil, err
		}
		if err := r.validate(ctx, &row, row.ID); err != nil {
			return nil, err
		}
		row.CreatedAt = current.CreatedAt
		row.UpdatedAt = stamp()
		err = r.t.update(ctx, row.ID,
			[]string{"postcode_id", "name", "updated_at"},
			[]interface{}{row.PostCodeID, row.Name, row.UpdatedAt},
		)
		return nil, r.t.persistError(err, r.raced(&row), r.parentGone(&row))
	})
	if err != nil {
		return err
	}
	*s = row
	return nil
}

// Delete removes the street with its addresses.
func (r *StreetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.t.write(ctx, eventbus.OperationDeleted, id, func(ctx context.Context) (map[string]int64, error) {
		return r.t.deleteCascade(ctx, id)
	})
}

func (r *StreetRepository) validate(ctx context.Context, s *Street, self uuid.UUID) error {
	if err := r.t.requireParent(ctx, EntityPostCode, s.PostCodeID); err != nil {
		return err
	}
	return r.t.checkUnique(ctx, streetScope(s), self, streetDescription(s))
}

func streetScope(s *Street) predicate {
	return and(eq("postcode_id", s.PostCodeID), eq("name", s.Name))
}

func streetDescription(s *Street) string {
	return fmt.Sprintf("street %q already exists in postcode %s", s.Name, s.PostCodeID)
}

func (r *StreetRepository) raced(s *Street) func() error {
	return func() error {
		return &DuplicateEntityError{Entity: EntityStreet, Description: streetDescription(s)}
	}
}

func (r *StreetRepository) parentGone(s *Street) func() error {
	return func() error {
		return &ParentNotFoundError{Entity: EntityStreet, Parent: EntityPostCode, ParentID: s.PostCodeID}
	}
}
