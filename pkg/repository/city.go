package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/observability/logger"
)

// CityFields are the sort fields accepted for cities.
var CityFields = withAuditFields(FieldMap{
	"name":       "name",
	"countryId":  "country_id",
	"country_id": "country_id",
	"stateId":    "state_id",
	"state_id":   "state_id",
})

var cityColumns = []string{"id", "country_id", "state_id", "name", "created_at", "updated_at"}

func scanCity(row rowScanner) (*City, error) {
	var (
		c     City
		state uuid.NullUUID
	)
	if err := row.Scan(&c.ID, &c.CountryID, &state, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if state.Valid {
		id := state.UUID
		c.StateID = &id
	}
	return &c, nil
}

func newCityTable(db DB, log logger.Logger, publisher eventbus.Publisher) *table[City] {
	h := DefaultHierarchy()
	return &table[City]{
		db:        db,
		hierarchy: h,
		entity:    EntityCity,
		name:      h.Table(EntityCity),
		columns:   cityColumns,
		fields:    CityFields,
		scan:      scanCity,
		inst:      newInstrumentation(EntityCity, h.Table(EntityCity), db, log, publisher),
	}
}

// CityRepository stores cities. A city's optional state must belong to the
// city's country.
type CityRepository struct {
	t      *table[City]
	states *table[State]
}

// NewCityRepository creates a repository on db.
func NewCityRepository(db DB, log logger.Logger, publisher eventbus.Publisher) *CityRepository {
	return &CityRepository{
		t:      newCityTable(db, log, publisher),
		states: newStateTable(db, log, nil),
	}
}

// Count returns the number of cities.
func (r *CityRepository) Count(ctx context.Context) (n int64, err error) {
	err = r.t.read(ctx, "count", uuid.Nil, func(ctx context.Context) error {
		n, err = r.t.count(ctx, nil)
		return err
	})
	return n, err
}

// List returns one page of cities.
func (r *CityRepository) List(ctx context.Context, opts ListOptions) (page Page[City], err error) {
	err = r.t.read(ctx, "list", uuid.Nil, func(ctx context.Context) error {
		page, err = r.t.list(ctx, nil, opts)
		return err
	})
	return page, err
}

// FindByID returns the city with id or a NotFoundError.
func (r *CityRepository) FindByID(ctx context.Context, id uuid.UUID) (c *City, err error) {
	err = r.t.read(ctx, "find", id, func(ctx context.Context) error {
		c, err = r.t.get(ctx, id, false)
		return err
	})
	return c, err
}

// FindByName returns the city called name in the given country and optional
// state.
func (r *CityRepository) FindByName(ctx context.Context, countryID uuid.UUID, stateID *uuid.UUID, name string) (c *City, err error) {
	key := City{CountryID: countryID, StateID: stateID, Name: name}
	if err := key.normalize(); err != nil {
		return nil, err
	}
	err = r.t.read(ctx, "find", uuid.Nil, func(ctx context.Context) error {
		c, err = r.t.find(ctx, cityScope(&key), "name", key.Name)
		return err
	})
	return c, err
}

// ListByCountry returns one page of the cities of a country, with or
// without a state.
func (r *CityRepository) ListByCountry(ctx context.Context, countryID uuid.UUID, opts ListOptions) (Page[City], error) {
	return r.listByParent(ctx, "list_by_country", EntityCountry, "country_id", countryID, opts)
}

// CountByCountry returns the number of cities of a country.
func (r *CityRepository) CountByCountry(ctx context.Context, countryID uuid.UUID) (int64, error) {
	return r.countByParent(ctx, "count_by_country", EntityCountry, "country_id", countryID)
}

// ListByState returns one page of the cities of a state.
func (r *CityRepository) ListByState(ctx context.Context, stateID uuid.UUID, opts ListOptions) (Page[City], error) {
	return r.listByParent(ctx, "list_by_state", EntityState, "state_id", stateID, opts)
}

// CountByState returns the number of cities of a state.
func (r *CityRepository) CountByState(ctx context.Context, stateID uuid.UUID) (int64, error) {
	return r.countByParent(ctx, "count_by_state", EntityState, "state_id", stateID)
}

func (r *CityRepository) listByParent(ctx context.Context, operation string, parent EntityType, column string, parentID uuid.UUID, opts ListOptions) (page Page[City], err error) {
	ordering, err := r.t.prepare(opts)
	if err != nil {
		return Page[City]{}, err
	}
	err = r.t.read(ctx, operation, parentID, func(ctx context.Context) error {
		if err := r.t.requireNavigable(ctx, parent, parentID); err != nil {
			return err
		}
		page, err = r.t.page(ctx, eq(column, parentID), ordering, opts.Pagination)
		return err
	})
	return page, err
}

func (r *CityRepository) countByParent(ctx context.Context, operation string, parent EntityType, column string, parentID uuid.UUID) (n int64, err error) {
	err = r.t.read(ctx, operation, parentID, func(ctx context.Context) error {
		if err := r.t.requireNavigable(ctx, parent, parentID); err != nil {
			return err
		}
		n, err = r.t.count(ctx, eq(column, parentID))
		return err
	})
	return n, err
}

// Create validates and inserts c, assigning its id and timestamps.
func (r *CityRepository) Create(ctx context.Context, c *City) error {
	row := *c
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
		err := r.t.insert(ctx, cityColumns, []interface{}{
			row.ID, row.CountryID, nullableUUID(row.StateID), row.Name, row.CreatedAt, row.UpdatedAt,
		})
		return nil, r.t.persistError(err, r.raced(&row), r.parentGone(&row))
	})
	if err != nil {
		return err
	}
	*c = row
	return nil
}

// Update rewrites the city c.ID, re-validating its country and state.
func (r *CityRepository) Update(ctx context.Context, c *City) error {
	row := *c
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
			[]string{"country_id", "state_id", "name", "updated_at"},
			[]interface{}{row.CountryID, nullableUUID(row.StateID), row.Name, row.UpdatedAt},
		)
		return nil, r.t.persistError(err, r.raced(&row), r.parentGone(&row))
	})
	if err != nil {
		return err
	}
	*c = row
	return nil
}

// Delete removes the city with its postcodes, streets and addresses.
func (r *CityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.t.write(ctx, eventbus.OperationDeleted, id, func(ctx context.Context) (map[string]int64, error) {
		return r.t.deleteCascade(ctx, id)
	})
}

// validate runs the parent, hierarchy and duplicate checks in that order.
func (r *CityRepository) validate(ctx context.Context, c *City, self uuid.UUID) error {
	if err := r.t.requireParent(ctx, EntityCountry, c.CountryID); err != nil {
		return err
	}

	// The share lock waits for a concurrent state move to commit, so the
	// country compared below is the one the state ends up in.
	var state *State
	if c.StateID != nil {
		s, err := r.states.queryOne(ctx, eq("id", *c.StateID), shareLock)
		if err != nil {
			return err
		}
		if s == nil {
			return &ParentNotFoundError{Entity: EntityCity, Parent: EntityState, ParentID: *c.StateID}
		}
		state = s
	}
	if err := ValidateCityState(c.CountryID, state); err != nil {
		return err
	}

	return r.t.checkUnique(ctx, cityScope(c), self, cityDescription(c))
}

// cityScope matches the city's name within (country, state); a missing
// state only matches cities without one.
func cityScope(c *City) predicate {
	state := isNull("state_id")
	if c.StateID != nil {
		state = eq("state_id", *c.StateID)
	}
	return and(eq("country_id", c.CountryID), state, eq("name", c.Name))
}

func cityDescription(c *City) string {
	if c.StateID == nil {
		return fmt.Sprintf("city %q already exists in country %s without state", c.Name, c.CountryID)
	}
	return fmt.Sprintf("city %q already exists in country %s, state %s", c.Name, c.CountryID, *c.StateID)
}

func (r *CityRepository) raced(c *City) func() error {
	return func() error {
		return &DuplicateEntityError{Entity: EntityCity, Description: cityDescription(c)}
	}
}

// parentGone reports the state when one is referenced, since it is the
// narrower parent, and the country otherwise.
func (r *CityRepository) parentGone(c *City) func() error {
	return func() error {
		if c.StateID != nil {
			return &ParentNotFoundError{Entity: EntityCity, Parent: EntityState, ParentID: *c.StateID}
		}
		return &ParentNotFoundError{Entity: EntityCity, Parent: EntityCountry, ParentID: c.CountryID}
	}
}
