package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/observability/logger"
)

// StateFields are the sort fields accepted for states.
var StateFields = withAuditFields(FieldMap{
	"name":       "name",
	"countryId":  "country_id",
	"country_id": "country_id",
})

var stateColumns = []string{"id", "country_id", "name", "created_at", "updated_at"}

func scanState(row rowScanner) (*State, error) {
	var s State
	if err := row.Scan(&s.ID, &s.CountryID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func newStateTable(db DB, log logger.Logger, publisher eventbus.Publisher) *table[State] {
	h := DefaultHierarchy()
	return &table[State]{
		db:        db,
		hierarchy: h,
		entity:    EntityState,
		name:      h.Table(EntityState),
		columns:   stateColumns,
		fields:    StateFields,
		scan:      scanState,
		inst:      newInstrumentation(EntityState, h.Table(EntityState), db, log, publisher),
	}
}

// StateRepository stores states. Deleting a state removes its cities and
// everything below them.
type StateRepository struct {
	t *table[State]
}

// NewStateRepository creates a repository on db.
func NewStateRepository(db DB, log logger.Logger, publisher eventbus.Publisher) *StateRepository {
	return &StateRepository{t: newStateTable(db, log, publisher)}
}

// Count returns the number of states.
func (r *StateRepository) Count(ctx context.Context) (n int64, err error) {
	err = r.t.read(ctx, "count", uuid.Nil, func(ctx context.Context) error {
		n, err = r.t.count(ctx, nil)
		return err
	})
	return n, err
}

// List returns one page of states.
func (r *StateRepository) List(ctx context.Context, opts ListOptions) (page Page[State], err error) {
	err = r.t.read(ctx, "list", uuid.Nil, func(ctx context.Context) error {
		page, err = r.t.list(ctx, nil, opts)
		return err
	})
	return page, err
}

// FindByID returns the state with id or a NotFoundError.
func (r *StateRepository) FindByID(ctx context.Context, id uuid.UUID) (s *State, err error) {
	err = r.t.read(ctx, "find", id, func(ctx context.Context) error {
		s, err = r.t.get(ctx, id, false)
		return err
	})
	return s, err
}

// FindByName returns the state called name inside countryID.
func (r *StateRepository) FindByName(ctx context.Context, countryID uuid.UUID, name string) (s *State, err error) {
	key := State{CountryID: countryID, Name: name}
	if err := key.normalize(); err != nil {
		return nil, err
	}
	err = r.t.read(ctx, "find", uuid.Nil, func(ctx context.Context) error {
		s, err = r.t.find(ctx, stateScope(&key), "name", key.Name)
		return err
	})
	return s, err
}

// ListByCountry returns one page of the states of a country.
func (r *StateRepository) ListByCountry(ctx context.Context, countryID uuid.UUID, opts ListOptions) (page Page[State], err error) {
	ordering, err := r.t.prepare(opts)
	if err != nil {
		return Page[State]{}, err
	}
	err = r.t.read(ctx, "list_by_country", countryID, func(ctx context.Context) error {
		if err := r.t.requireNavigable(ctx, EntityCountry, countryID); err != nil {
			return err
		}
		page, err = r.t.page(ctx, eq("country_id", countryID), ordering, opts.Pagination)
		return err
	})
	return page, err
}

// CountByCountry returns the number of states of a country.
func (r *StateRepository) CountByCountry(ctx context.Context, countryID uuid.UUID) (n int64, err error) {
	err = r.t.read(ctx, "count_by_country", countryID, func(ctx context.Context) error {
		if err := r.t.requireNavigable(ctx, EntityCountry, countryID); err != nil {
			return err
		}
		n, err = r.t.count(ctx, eq("country_id", countryID))
		return err
	})
	return n, err
}

// Create validates and inserts s, assigning its id and timestamps.
func (r *StateRepository) Create(ctx context.Context, s *State) error {
	row := *s
	if err := row.normalize(); err != nil {
		return err
	}
	row.ID = uuid.New()
	row.CreatedAt = stamp()
	row.UpdatedAt = row.CreatedAt

	err := r.t.write(ctx, eventbus.OperationCreated, row.ID, func(ctx context.Context) (map[string]int64, error) {
		if err := r.t.requireParent(ctx, EntityCountry, row.CountryID); err != nil {
			return nil, err
		}
		if err := r.t.checkUnique(ctx, stateScope(&row), uuid.Nil, stateDescription(&row)); err != nil {
			return nil, err
		}
		err := r.t.insert(ctx, stateColumns, []interface{}{row.ID, row.CountryID, row.Name, row.CreatedAt, row.UpdatedAt})
		return nil, r.t.persistError(err, r.raced(&row), r.parentGone(&row))
	})
	if err != nil {
		return err
	}
	*s = row
	return nil
}

// Update rewrites the state s.ID. A state that has cities cannot move to
// another country.
func (r *StateRepository) Update(ctx context.Context, s *State) error {
	row := *s
	if err := row.normalize(); err != nil {
		return err
	}

	err := r.t.write(ctx, eventbus.OperationUpdated, row.ID, func(ctx context.Context) (map[string]int64, error) {
		current, err := r.t.get(ctx, row.ID, true)
		if err != nil {
			return nil, err
		}
		if err := r.t.requireParent(ctx, EntityCountry, row.CountryID); err != nil {
			return nil, err
		}
		if row.CountryID != current.CountryID {
			if err := r.requireNoCities(ctx, &row); err != nil {
				return nil, err
			}
		}
		if err := r.t.checkUnique(ctx, stateScope(&row), row.ID, stateDescription(&row)); err != nil {
			return nil, err
		}
		row.CreatedAt = current.CreatedAt
		row.UpdatedAt = stamp()
		err = r.t.update(ctx, row.ID,
			[]string{"country_id", "name", "updated_at"},
			[]interface{}{row.CountryID, row.Name, row.UpdatedAt},
		)
		return nil, r.t.persistError(err, r.raced(&row), r.parentGone(&row))
	})
	if err != nil {
		return err
	}
	*s = row
	return nil
}

// Delete removes the state, its cities and everything below them.
func (r *StateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.t.write(ctx, eventbus.OperationDeleted, id, func(ctx context.Context) (map[string]int64, error) {
		return r.t.deleteCascade(ctx, id)
	})
}

func (r *StateRepository) requireNoCities(ctx context.Context, s *State) error {
	cities, err := r.t.countIn(ctx, EntityCity, eq("state_id", s.ID))
	if err != nil {
		return err
	}
	if cities > 0 {
		return &InvalidFieldError{
			Entity: EntityState,
			Field:  "country_id",
			Value:  s.CountryID.String(),
			Reason: fmt.Sprintf("state has %d cities and cannot move to another country", cities),
		}
	}
	return nil
}

func stateScope(s *State) predicate {
	return and(eq("country_id", s.CountryID), eq("name", s.Name))
}

func stateDescription(s *State) string {
	return fmt.Sprintf("state %q already exists in country %s", s.Name, s.CountryID)
}

func (r *StateRepository) raced(s *State) func() error {
	return func() error {
		return &DuplicateEntityError{Entity: EntityState, Description: stateDescription(s)}
	}
}

func (r *StateRepository) parentGone(s *State) func() error {
	return func() error {
		return &ParentNotFoundError{Entity: EntityState, Parent: EntityCountry, ParentID: s.CountryID}
	}
}
