package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/observability/logger"
)

// PostCodeFields are the sort fields accepted for postcodes.
var PostCodeFields = withAuditFields(FieldMap{
	"code":    "code",
	"cityId":  "city_id",
	"city_id": "city_id",
})

var postCodeColumns = []string{"id", "city_id", "code", "created_at", "updated_at"}

func scanPostCode(row rowScanner) (*PostCode, error) {
	var p PostCode
	if err := row.Scan(&p.ID, &p.CityID, &p.Code, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// PostCodeRepository stores postcodes.
type PostCodeRepository struct {
	t *table[PostCode]
}

// NewPostCodeRepository creates a repository on db.
func NewPostCodeRepository(db DB, log logger.Logger, publisher eventbus.Publisher) *PostCodeRepository {
	h := DefaultHierarchy()
	return &PostCodeRepository{t: &table[PostCode]{
		db:        db,
		hierarchy: h,
		entity:    EntityPostCode,
		name:      h.Table(EntityPostCode),
		columns:   postCodeColumns,
		fields:    PostCodeFields,
		scan:      scanPostCode,
		inst:      newInstrumentation(EntityPostCode, h.Table(EntityPostCode), db, log, publisher),
	}}
}

// Count returns the number of postcodes.
func (r *PostCodeRepository) Count(ctx context.Context) (n int64, err error) {
	err = r.t.read(ctx, "count", uuid.Nil, func(ctx context.Context) error {
		n, err = r.t.count(ctx, nil)
		return err
	})
	return n, err
}

// List returns one page of postcodes.
func (r *PostCodeRepository) List(ctx context.Context, opts ListOptions) (page Page[PostCode], err error) {
	err = r.t.read(ctx, "list", uuid.Nil, func(ctx context.Context) error {
		page, err = r.t.list(ctx, nil, opts)
		return err
	})
	return page, err
}

// FindByID returns the postcode with id or a NotFoundError.
func (r *PostCodeRepository) FindByID(ctx context.Context, id uuid.UUID) (p *PostCode, err error) {
	err = r.t.read(ctx, "find", id, func(ctx context.Context) error {
		p, err = r.t.get(ctx, id, false)
		return err
	})
	return p, err
}

// FindByCode returns the postcode with code inside cityID.
func (r *PostCodeRepository) FindByCode(ctx context.Context, cityID uuid.UUID, code string) (p *PostCode, err error) {
	key := PostCode{CityID: cityID, Code: code}
	if err := key.normalize(); err != nil {
		return nil, err
	}
	err = r.t.read(ctx, "find", uuid.Nil, func(ctx context.Context) error {
		p, err = r.t.find(ctx, postCodeScope(&key), "code", key.Code)
		return err
	})
	return p, err
}

// ListByCity returns one page of the postcodes of a city.
func (r *PostCodeRepository) ListByCity(ctx context.Context, cityID uuid.UUID, opts ListOptions) (page Page[PostCode], err error) {
	ordering, err := r.t.prepare(opts)
	if err != nil {
		return Page[PostCode]{}, err
	}
	err = r.t.read(ctx, "list_by_city", cityID, func(ctx context.Context) error {
		if err := r.t.requireNavigable(ctx, EntityCity, cityID); err != nil {
			return err
		}
		page, err = r.t.page(ctx, eq("city_id", cityID), ordering, opts.Pagination)
		return err
	})
	return page, err
}

// CountByCity returns the number of postcodes of a city.
func (r *PostCodeRepository) CountByCity(ctx context.Context, cityID uuid.UUID) (n int64, err error) {
	err = r.t.read(ctx, "count_by_city", cityID, func(ctx context.Context) error {
		if err := r.t.requireNavigable(ctx, EntityCity, cityID); err != nil {
			return err
		}
		n, err = r.t.count(ctx, eq("city_id", cityID))
		return err
	})
	return n, err
}

// Create validates and inserts p, assigning its id and timestamps.
func (r *PostCodeRepository) Create(ctx context.Context, p *PostCode) error {
	row := *p
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
		err := r.t.insert(ctx, postCodeColumns, []interface{}{row.ID, row.CityID, row.Code, row.CreatedAt, row.UpdatedAt})
		return nil, r.t.persistError(err, r.raced(&row), r.parentGone(&row))
	})
	if err != nil {
		return err
	}
	*p = row
	return nil
}

// Update rewrites the postcode p.ID.
func (r *PostCodeRepository) Update(ctx context.Context, p *PostCode) error {
	row := *p
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
			[]string{"city_id", "code", "updated_at"},
			[]interface{}{row.CityID, row.Code, row.UpdatedAt},
		)
		return nil, r.t.persistError(err, r.raced(&row), r.parentGone(&row))
	})
	if err != nil {
		return err
	}
	*p = row
	return nil
}

// Delete removes the postcode with its streets and addresses.
func (r *PostCodeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.t.write(ctx, eventbus.OperationDeleted, id, func(ctx context.Context) (map[string]int64, error) {
		return r.t.deleteCascade(ctx, id)
	})
}

func (r *PostCodeRepository) validate(ctx context.Context, p *PostCode, self uuid.UUID) error {
	if err := r.t.requireParent(ctx, EntityCity, p.CityID); err != nil {
		return err
	}
	return r.t.checkUnique(ctx, postCodeScope(p), self, postCodeDescription(p))
}

func postCodeScope(p *PostCode) predicate {
	return and(eq("city_id", p.CityID), eq("code", p.Code))
}

func postCodeDescription(p *PostCode) string {
	return fmt.Sprintf("postcode %q already exists in city %s", p.Code, p.CityID)
}

func (r *PostCodeRepository) raced(p *PostCode) func() error {
	return func() error {
		return &DuplicateEntityError{Entity: EntityPostCode, Description: postCodeDescription(p)}
	}
}

func (r *PostCodeRepository) parentGone(p *PostCode) func() error {
	return func() error {
		return &ParentNotFoundError{Entity: EntityPostCode, Parent: EntityCity, ParentID: p.CityID}
	}
}
