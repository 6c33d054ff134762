package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/observability/logger"
)

// CountryFields are the sort fields accepted for countries.
var CountryFields = withAuditFields(FieldMap{
	"alpha2":         "alpha2",
	"alpha3":         "alpha3",
	"name":           "name",
	"localizedName":  "localized_name",
	"localized_name": "localized_name",
})

// withAuditFields adds id and timestamp sort fields, in camelCase and
// snake_case.
func withAuditFields(fields FieldMap) FieldMap {
	fields["id"] = "id"
	fields["createdAt"] = "created_at"
	fields["created_at"] = "created_at"
	fields["updatedAt"] = "updated_at"
	fields["updated_at"] = "updated_at"
	return fields
}

var countryColumns = []string{"id", "alpha2", "alpha3", "name", "localized_name", "created_at", "updated_at"}

func scanCountry(row rowScanner) (*Country, error) {
	var c Country
	if err := row.Scan(&c.ID, &c.Alpha2, &c.Alpha3, &c.Name, &c.LocalizedName, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func newCountryTable(db DB, log logger.Logger, publisher eventbus.Publisher) *table[Country] {
	h := DefaultHierarchy()
	return &table[Country]{
		db:        db,
		hierarchy: h,
		entity:    EntityCountry,
		name:      h.Table(EntityCountry),
		columns:   countryColumns,
		fields:    CountryFields,
		scan:      scanCountry,
		inst:      newInstrumentation(EntityCountry, h.Table(EntityCountry), db, log, publisher),
	}
}

// CountryKey selects a country by exactly one of its unique keys.
type CountryKey struct {
	ID     uuid.UUID
	Alpha2 string
	Alpha3 string
}

func (k CountryKey) provided() []string {
	var keys []string
	if k.ID != uuid.Nil {
		keys = append(keys, "id")
	}
	if strings.TrimSpace(k.Alpha2) != "" {
		keys = append(keys, "alpha2")
	}
	if strings.TrimSpace(k.Alpha3) != "" {
		keys = append(keys, "alpha3")
	}
	return keys
}

// CountryRepository stores countries. Deleting a country removes its states,
// cities and everything below them.
type CountryRepository struct {
	t *table[Country]
}

// NewCountryRepository creates a repository on db. A nil publisher disables
// change events.
func NewCountryRepository(db DB, log logger.Logger, publisher eventbus.Publisher) *CountryRepository {
	return &CountryRepository{t: newCountryTable(db, log, publisher)}
}

// Count returns the number of countries.
func (r *CountryRepository) Count(ctx context.Context) (n int64, err error) {
	err = r.t.read(ctx, "count", uuid.Nil, func(ctx context.Context) error {
		n, err = r.t.count(ctx, nil)
		return err
	})
	return n, err
}

// List returns one page of countries.
func (r *CountryRepository) List(ctx context.Context, opts ListOptions) (page Page[Country], err error) {
	err = r.t.read(ctx, "list", uuid.Nil, func(ctx context.Context) error {
		page, err = r.t.list(ctx, nil, opts)
		return err
	})
	return page, err
}

// FindByID returns the country with id or a NotFoundError.
func (r *CountryRepository) FindByID(ctx context.Context, id uuid.UUID) (c *Country, err error) {
	err = r.t.read(ctx, "find", id, func(ctx context.Context) error {
		c, err = r.t.get(ctx, id, false)
		return err
	})
	return c, err
}

// Find looks a country up by exactly one key of CountryKey.
func (r *CountryRepository) Find(ctx context.Context, key CountryKey) (*Country, error) {
	provided := key.provided()
	if len(provided) != 1 {
		return nil, &AmbiguousOrMissingKeyError{Provided: provided}
	}

	var (
		pred  predicate
		value string
	)
	switch provided[0] {
	case "id":
		return r.FindByID(ctx, key.ID)
	case "alpha2":
		value = strings.ToUpper(strings.TrimSpace(key.Alpha2))
		pred = eq("alpha2", value)
	default:
		value = strings.ToUpper(strings.TrimSpace(key.Alpha3))
		pred = eq("alpha3", value)
	}

	var c *Country
	err := r.t.read(ctx, "find", uuid.Nil, func(ctx context.Context) error {
		var err error
		c, err = r.t.find(ctx, pred, provided[0], value)
		return err
	})
	return c, err
}

// Create validates and inserts c, assigning its id and timestamps.
func (r *CountryRepository) Create(ctx context.Context, c *Country) error {
	row := *c
	if err := row.normalize(); err != nil {
		return err
	}
	row.ID = uuid.New()
	row.CreatedAt = stamp()
	row.UpdatedAt = row.CreatedAt

	err := r.t.write(ctx, eventbus.OperationCreated, row.ID, func(ctx context.Context) (map[string]int64, error) {
		if err := r.checkUnique(ctx, &row); err != nil {
			return nil, err
		}
		err := r.t.insert(ctx, countryColumns, []interface{}{
			row.ID, row.Alpha2, row.Alpha3, row.Name, row.LocalizedName, row.CreatedAt, row.UpdatedAt,
		})
		return nil, r.t.persistError(err, r.raced(&row), nil)
	})
	if err != nil {
		return err
	}
	*c = row
	return nil
}

// Update rewrites the mutable fields of the country c.ID.
func (r *CountryRepository) Update(ctx context.Context, c *Country) error {
	row := *c
	if err := row.normalize(); err != nil {
		return err
	}

	err := r.t.write(ctx, eventbus.OperationUpdated, row.ID, func(ctx context.Context) (map[string]int64, error) {
		current, err := r.t.get(ctx, row.ID, true)
		if err != nil {
			return nil, err
		}
		if err := r.checkUnique(ctx, &row); err != nil {
			return nil, err
		}
		row.CreatedAt = current.CreatedAt
		row.UpdatedAt = stamp()
		err = r.t.update(ctx, row.ID,
			[]string{"alpha2", "alpha3", "name", "localized_name", "updated_at"},
			[]interface{}{row.Alpha2, row.Alpha3, row.Name, row.LocalizedName, row.UpdatedAt},
		)
		return nil, r.t.persistError(err, r.raced(&row), nil)
	})
	if err != nil {
		return err
	}
	*c = row
	return nil
}

// Delete removes the country and all of its descendants.
func (r *CountryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.t.write(ctx, eventbus.OperationDeleted, id, func(ctx context.Context) (map[string]int64, error) {
		return r.t.deleteCascade(ctx, id)
	})
}

// checkUnique checks alpha2, alpha3 and name, ignoring c's own row.
func (r *CountryRepository) checkUnique(ctx context.Context, c *Country) error {
	keys := []struct {
		column, value string
	}{
		{"alpha2", c.Alpha2},
		{"alpha3", c.Alpha3},
		{"name", c.Name},
	}
	for _, k := range keys {
		description := fmt.Sprintf("country with %s %q already exists", k.column, k.value)
		if err := r.t.checkUnique(ctx, eq(k.column, k.value), c.ID, description); err != nil {
			return err
		}
	}
	return nil
}

func (r *CountryRepository) raced(c *Country) func() error {
	return func() error {
		return &DuplicateEntityError{
			Entity:      EntityCountry,
			Description: fmt.Sprintf("country %s/%s %q conflicts with a concurrent write", c.Alpha2, c.Alpha3, c.Name),
		}
	}
}
