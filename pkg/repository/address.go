package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/observability/logger"
)

// AddressFields are the sort fields accepted for addresses.
var AddressFields = withAuditFields(FieldMap{
	"houseNumber":  "house_number",
	"house_number": "house_number",
	"extra":        "extra",
	"streetId":     "street_id",
	"street_id":    "street_id",
})

var addressColumns = []string{"id", "street_id", "house_number", "extra", "created_at", "updated_at"}

func scanAddress(row rowScanner) (*Address, error) {
	var a Address
	if err := row.Scan(&a.ID, &a.StreetID, &a.HouseNumber, &a.Extra, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// AddressRepository stores addresses, the leaves of the hierarchy.
type AddressRepository struct {
	t *table[Address]
}

// NewAddressRepository creates a repository on db.
func NewAddressRepository(db DB, log logger.Logger, publisher eventbus.Publisher) *AddressRepository {
	h := DefaultHierarchy()
	return &AddressRepository{t: &table[Address]{
		db:        db,
		hierarchy: h,
		entity:    EntityAddress,
		name:      h.Table(EntityAddress),
		columns:   addressColumns,
		fields:    AddressFields,
		scan:      scanAddress,
		inst:      newInstrumentation(EntityAddress, h.Table(EntityAddress), db, log, publisher),
	}}
}

// Count returns the number of addresses.
func (r *AddressRepository) Count(ctx context.Context) (n int64, err error) {
	err = r.t.read(ctx, "count", uuid.Nil, func(ctx context.Context) error {
		n, err = r.t.count(ctx, nil)
		return err
	})
	return n, err
}

// List returns one page of addresses.
func (r *AddressRepository) List(ctx context.Context, opts ListOptions) (page Page[Address], err error) {
	err = r.t.read(ctx, "list", uuid.Nil, func(ctx context.Context) error {
		page, err = r.t.list(ctx, nil, opts)
		return err
	})
	return page, err
}

// FindByID returns the address with id or a NotFoundError.
func (r *AddressRepository) FindByID(ctx context.Context, id uuid.UUID) (a *Address, err error) {
	err = r.t.read(ctx, "find", id, func(ctx context.Context) error {
		a, err = r.t.get(ctx, id, false)
		return err
	})
	return a, err
}

// FindByNumber returns the address (houseNumber, extra) on streetID.
func (r *AddressRepository) FindByNumber(ctx context.Context, streetID uuid.UUID, houseNumber, extra string) (a *Address, err error) {
	key := Address{StreetID: streetID, HouseNumber: houseNumber, Extra: extra}
	if err := key.normalize(); err != nil {
		return nil, err
	}
	err = r.t.read(ctx, "find", uuid.Nil, func(ctx context.Context) error {
		a, err = r.t.find(ctx, addressScope(&key), "house_number", key.HouseNumber)
		return err
	})
	return a, err
}

// ListByStreet returns one page of the addresses of a street.
func (r *AddressRepository) ListByStreet(ctx context.Context, streetID uuid.UUID, opts ListOptions) (page Page[Address], err error) {
	ordering, err := r.t.prepare(opts)
	if err != nil {
		return Page[Address]{}, err
	}
	err = r.t.read(ctx, "list_by_street", streetID, func(ctx context.Context) error {
		if err := r.t.requireNavigable(ctx, EntityStreet, streetID); err != nil {
			return err
		}
		page, err = r.t.page(ctx, eq("street_id", streetID), ordering, opts.Pagination)
		return err
	})
	return page, err
}

// CountByStreet returns the number of addresses of a street.
func (r *AddressRepository) CountByStreet(ctx context.Context, streetID uuid.UUID) (n int64, err error) {
	err = r.t.read(ctx, "count_by_street", streetID, func(ctx context.Context) error {
		if err := r.t.requireNavigable(ctx, EntityStreet, streetID); err != nil {
			return err
		}
		n, err = r.t.count(ctx, eq("street_id", streetID))
		return err
	})
	return n, err
}

// Create validates and inserts a, assigning its id and timestamps.
func (r *AddressRepository) Create(ctx context.Context, a *Address) error {
	row := *a
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
		err := r.t.insert(ctx, addressColumns, []interface{}{
			row.ID, row.StreetID, row.HouseNumber, row.Extra, row.CreatedAt, row.UpdatedAt,
		})
		return nil, r.t.persistError(err, r.raced(&row), r.parentGone(&row))
	})
	if err != nil {
		return err
	}
	*a = row
	return nil
}

// Update rewrites the address a.ID.
func (r *AddressRepository) Update(ctx context.Context, a *Address) error {
	row := *a
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
			[]string{"street_id", "house_number", "extra", "updated_at"},
			[]interface{}{row.StreetID, row.HouseNumber, row.Extra, row.UpdatedAt},
		)
		return nil, r.t.persistError(err, r.raced(&row), r.parentGone(&row))
	})
	if err != nil {
		return err
	}
	*a = row
	return nil
}

// Delete removes the address.
func (r *AddressRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.t.write(ctx, eventbus.OperationDeleted, id, func(ctx context.Context) (map[string]int64, error) {
		return r.t.deleteCascade(ctx, id)
	})
}

func (r *AddressRepository) validate(ctx context.Context, a *Address, self uuid.UUID) error {
	if err := r.t.requireParent(ctx, EntityStreet, a.StreetID); err != nil {
		return err
	}
	return r.t.checkUnique(ctx, addressScope(a), self, addressDescription(a))
}

// addressScope matches (house number, extra) on the street; an empty extra
// is stored as '' and so matches only addresses without one.
func addressScope(a *Address) predicate {
	return and(eq("street_id", a.StreetID), eq("house_number", a.HouseNumber), eq("extra", a.Extra))
}

func addressDescription(a *Address) string {
	if a.Extra == "" {
		return fmt.Sprintf("address %q already exists on street %s", a.HouseNumber, a.StreetID)
	}
	return fmt.Sprintf("address %q %q already exists on street %s", a.HouseNumber, a.Extra, a.StreetID)
}

func (r *AddressRepository) raced(a *Address) func() error {
	return func() error {
		return &DuplicateEntityError{Entity: EntityAddress, Description: addressDescription(a)}
	}
}

func (r *AddressRepository) parentGone(a *Address) func() error {
	return func() error {
		return &ParentNotFoundError{Entity: EntityAddress, Parent: EntityStreet, ParentID: a.StreetID}
	}
}
