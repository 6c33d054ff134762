package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/repository"
)

type countryStore interface {
	Create(ctx context.Context, c *repository.Country) error
	Find(ctx context.Context, key repository.CountryKey) (*repository.Country, error)
}

type stateStore interface {
	Create(ctx context.Context, s *repository.State) error
	FindByName(ctx context.Context, countryID uuid.UUID, name string) (*repository.State, error)
}

type cityStore interface {
	Create(ctx context.Context, c *repository.City) error
	FindByName(ctx context.Context, countryID uuid.UUID, stateID *uuid.UUID, name string) (*repository.City, error)
}

type postCodeStore interface {
	Create(ctx context.Context, p *repository.PostCode) error
	FindByCode(ctx context.Context, cityID uuid.UUID, code string) (*repository.PostCode, error)
}

type streetStore interface {
	Create(ctx context.Context, s *repository.Street) error
	FindByName(ctx context.Context, postCodeID uuid.UUID, name string) (*repository.Street, error)
}

type addressStore interface {
	Create(ctx context.Context, a *repository.Address) error
	FindByNumber(ctx context.Context, streetID uuid.UUID, houseNumber, extra string) (*repository.Address, error)
}

// Options controls a Loader.
type Options struct {
	// IgnoreDuplicates resolves entries that already exist instead of
	// aborting, so a fixture can be applied more than once.
	IgnoreDuplicates bool
}

// Report counts entries per entity type.
type Report struct {
	Created map[repository.EntityType]int
	Skipped map[repository.EntityType]int
}

func newReport() *Report {
	return &Report{
		Created: make(map[repository.EntityType]int),
		Skipped: make(map[repository.EntityType]int),
	}
}

func (r *Report) TotalCreated() int { return sum(r.Created) }

func (r *Report) TotalSkipped() int { return sum(r.Skipped) }

func sum(m map[repository.EntityType]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

// Loader writes fixtures through the repositories, parents first. Each entry
// commits on its own; on error the report covers what was written so far.
type Loader struct {
	countries countryStore
	states    stateStore
	cities    cityStore
	postCodes postCodeStore
	streets   streetStore
	addresses addressStore
	opts      Options
	log       logger.Logger
}

func NewLoader(dir *repository.Directory, log logger.Logger, opts Options) *Loader {
	return &Loader{
		countries: dir.Countries,
		states:    dir.States,
		cities:    dir.Cities,
		postCodes: dir.PostCodes,
		streets:   dir.Streets,
		addresses: dir.Addresses,
		opts:      opts,
		log:       log,
	}
}

// Load applies f and returns what was created and skipped.
func (l *Loader) Load(ctx context.Context, f *Fixture) (*Report, error) {
	report := newReport()
	if f == nil {
		return report, nil
	}
	if err := f.Validate(); err != nil {
		return report, err
	}

	for _, cf := range f.Countries {
		if err := l.loadCountry(ctx, report, cf); err != nil {
			return report, err
		}
	}

	l.log.Info("seed completed",
		"created", report.TotalCreated(),
		"skipped", report.TotalSkipped(),
		"ignore_duplicates", l.opts.IgnoreDuplicates,
	)
	return report, nil
}

func (l *Loader) loadCountry(ctx context.Context, report *Report, cf CountryFixture) error {
	countryID, err := l.ensure(ctx, report, repository.EntityCountry, cf.Alpha2,
		func() (uuid.UUID, error) {
			c := &repository.Country{Alpha2: cf.Alpha2, Alpha3: cf.Alpha3, Name: cf.Name, LocalizedName: cf.LocalizedName}
			err := l.countries.Create(ctx, c)
			return c.ID, err
		},
		func() (uuid.UUID, error) {
			c, err := l.countries.Find(ctx, repository.CountryKey{Alpha2: cf.Alpha2})
			return idOf(c, err, func(c *repository.Country) uuid.UUID { return c.ID })
		},
	)
	if err != nil {
		return err
	}

	states := make(map[string]uuid.UUID, len(cf.States))
	for _, sf := range cf.States {
		stateID, err := l.ensure(ctx, report, repository.EntityState, sf.Name,
			func() (uuid.UUID, error) {
				s := &repository.State{CountryID: countryID, Name: sf.Name}
				err := l.states.Create(ctx, s)
				return s.ID, err
			},
			func() (uuid.UUID, error) {
				s, err := l.states.FindByName(ctx, countryID, sf.Name)
				return idOf(s, err, func(s *repository.State) uuid.UUID { return s.ID })
			},
		)
		if err != nil {
			return err
		}
		states[strings.TrimSpace(sf.Name)] = stateID
	}

	for _, cityF := range cf.Cities {
		var stateID *uuid.UUID
		if ref := strings.TrimSpace(cityF.State); ref != "" {
			id := states[ref]
			stateID = &id
		}
		if err := l.loadCity(ctx, report, countryID, stateID, cityF); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) loadCity(ctx context.Context, report *Report, countryID uuid.UUID, stateID *uuid.UUID, cf CityFixture) error {
	cityID, err := l.ensure(ctx, report, repository.EntityCity, cf.Name,
		func() (uuid.UUID, error) {
			c := &repository.City{CountryID: countryID, StateID: stateID, Name: cf.Name}
			err := l.cities.Create(ctx, c)
			return c.ID, err
		},
		func() (uuid.UUID, error) {
			c, err := l.cities.FindByName(ctx, countryID, stateID, cf.Name)
			return idOf(c, err, func(c *repository.City) uuid.UUID { return c.ID })
		},
	)
	if err != nil {
		return err
	}

	for _, pf := range cf.PostCodes {
		postCodeID, err := l.ensure(ctx, report, repository.EntityPostCode, pf.Code,
			func() (uuid.UUID, error) {
				p := &repository.PostCode{CityID: cityID, Code: pf.Code}
				err := l.postCodes.Create(ctx, p)
				return p.ID, err
			},
			func() (uuid.UUID, error) {
				p, err := l.postCodes.FindByCode(ctx, cityID, pf.Code)
				return idOf(p, err, func(p *repository.PostCode) uuid.UUID { return p.ID })
			},
		)
		if err != nil {
			return err
		}
		for _, sf := range pf.Streets {
			if err := l.loadStreet(ctx, report, postCodeID, sf); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Loader) loadStreet(ctx context.Context, report *Report, postCodeID uuid.UUID, sf StreetFixture) error {
	streetID, err := l.ensure(ctx, report, repository.EntityStreet, sf.Name,
		func() (uuid.UUID, error) {
			s := &repository.Street{PostCodeID: postCodeID, Name: sf.Name}
			err := l.streets.Create(ctx, s)
			return s.ID, err
		},
		func() (uuid.UUID, error) {
			s, err := l.streets.FindByName(ctx, postCodeID, sf.Name)
			return idOf(s, err, func(s *repository.Street) uuid.UUID { return s.ID })
		},
	)
	if err != nil {
		return err
	}

	for _, af := range sf.Addresses {
		_, err := l.ensure(ctx, report, repository.EntityAddress, af.HouseNumber,
			func() (uuid.UUID, error) {
				a := &repository.Address{StreetID: streetID, HouseNumber: af.HouseNumber, Extra: af.Extra}
				err := l.addresses.Create(ctx, a)
				return a.ID, err
			},
			func() (uuid.UUID, error) {
				a, err := l.addresses.FindByNumber(ctx, streetID, af.HouseNumber, af.Extra)
				return idOf(a, err, func(a *repository.Address) uuid.UUID { return a.ID })
			},
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// ensure creates an entry, or with IgnoreDuplicates resolves the one that
// already holds its natural key. When the conflict was on another key (a
// country name, say) the id reported by the conflict is used.
func (l *Loader) ensure(
	ctx context.Context,
	report *Report,
	entity repository.EntityType,
	label string,
	create func() (uuid.UUID, error),
	find func() (uuid.UUID, error),
) (uuid.UUID, error) {
	id, err := create()
	if err == nil {
		report.Created[entity]++
		return id, nil
	}

	var dup *repository.DuplicateEntityError
	if !l.opts.IgnoreDuplicates || !errors.As(err, &dup) {
		return uuid.Nil, fmt.Errorf("seed %s %q: %w", entity, label, err)
	}

	existing, findErr := find()
	switch {
	case findErr == nil:
	case errors.Is(findErr, repository.ErrNotFound) && dup.ExistingID != uuid.Nil:
		existing = dup.ExistingID
	default:
		return uuid.Nil, fmt.Errorf("seed %s %q: resolve existing: %w", entity, label, errors.Join(err, findErr))
	}

	report.Skipped[entity]++
	l.log.WithContext(ctx).Debug("seed entry exists",
		"entity", string(entity),
		"key", label,
		"id", existing.String(),
	)
	return existing, nil
}

func idOf[T any](v *T, err error, id func(*T) uuid.UUID) (uuid.UUID, error) {
	if err != nil {
		return uuid.Nil, err
	}
	return id(v), nil
}
