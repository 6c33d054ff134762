package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nimburion/geodir/pkg/migrate"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/store/postgres"
	"github.com/nimburion/geodir/pkg/testutil"
)

// TestDirectory_PostgresIntegration runs the repositories against a real
// PostgreSQL server with the embedded schema applied.
func TestDirectory_PostgresIntegration(t *testing.T) {
	connStr := testutil.StartPostgres(t)
	ctx := context.Background()

	adapter, err := postgres.NewPostgreSQLAdapter(postgres.Config{
		URL:          connStr,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		QueryTimeout: 10 * time.Second,
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("failed to create adapter: %v", err)
	}
	t.Cleanup(func() { _ = adapter.Close() })

	if _, err := migrate.ApplyPending(ctx, adapter, logger.NewNop()); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	pub := &recordingPublisher{}
	dir := NewDirectory(adapter, logger.NewNop(), pub)

	mustCountry := func(t *testing.T, alpha2, alpha3, name string) *Country {
		t.Helper()
		c := &Country{Alpha2: alpha2, Alpha3: alpha3, Name: name}
		if err := dir.Countries.Create(ctx, c); err != nil {
			t.Fatalf("create country %s: %v", name, err)
		}
		return c
	}

	t.Run("state delete cascades below it only", func(t *testing.T) {
		germany := mustCountry(t, "DE", "DEU", "Germany")

		berlinState := &State{CountryID: germany.ID, Name: "Berlin"}
		if err := dir.States.Create(ctx, berlinState); err != nil {
			t.Fatalf("create state: %v", err)
		}
		berlin := &City{CountryID: germany.ID, StateID: &berlinState.ID, Name: "Berlin"}
		if err := dir.Cities.Create(ctx, berlin); err != nil {
			t.Fatalf("create city: %v", err)
		}
		hamburg := &City{CountryID: germany.ID, Name: "Hamburg"}
		if err := dir.Cities.Create(ctx, hamburg); err != nil {
			t.Fatalf("create stateless city: %v", err)
		}
		postcode := &PostCode{CityID: berlin.ID, Code: "10115"}
		if err := dir.PostCodes.Create(ctx, postcode); err != nil {
			t.Fatalf("create postcode: %v", err)
		}
		street := &Street{PostCodeID: postcode.ID, Name: "Invalidenstraße"}
		if err := dir.Streets.Create(ctx, street); err != nil {
			t.Fatalf("create street: %v", err)
		}
		address := &Address{StreetID: street.ID, HouseNumber: "117"}
		if err := dir.Addresses.Create(ctx, address); err != nil {
			t.Fatalf("create address: %v", err)
		}

		found, err := dir.Addresses.FindByNumber(ctx, street.ID, "117", "")
		if err != nil || found.ID != address.ID {
			t.Fatalf("FindByNumber() = %v, %v", found, err)
		}

		if err := dir.States.Delete(ctx, berlinState.ID); err != nil {
			t.Fatalf("delete state: %v", err)
		}
		for name, lookup := range map[string]func() error{
			"city":     func() error { _, err := dir.Cities.FindByID(ctx, berlin.ID); return err },
			"postcode": func() error { _, err := dir.PostCodes.FindByID(ctx, postcode.ID); return err },
			"street":   func() error { _, err := dir.Streets.FindByID(ctx, street.ID); return err },
			"address":  func() error { _, err := dir.Addresses.FindByID(ctx, address.ID); return err },
		} {
			if err := lookup(); !errors.Is(err, ErrNotFound) {
				t.Errorf("%s should be gone after state delete, got %v", name, err)
			}
		}

		n, err := dir.Cities.CountByCountry(ctx, germany.ID)
		if err != nil || n != 1 {
			t.Fatalf("CountByCountry() = %d, %v; want the stateless city only", n, err)
		}

		events := pub.published()
		last := events[len(events)-1]
		if last.Operation != "deleted" || last.Cascade["City"] != 1 || last.Cascade["Address"] != 1 {
			t.Fatalf("unexpected delete event %+v", last)
		}
	})

	t.Run("country delete removes every descendant", func(t *testing.T) {
		france := mustCountry(t, "FR", "FRA", "France")
		idf := &State{CountryID: france.ID, Name: "Île-de-France"}
		if err := dir.States.Create(ctx, idf); err != nil {
			t.Fatalf("create state: %v", err)
		}
		paris := &City{CountryID: france.ID, StateID: &idf.ID, Name: "Paris"}
		if err := dir.Cities.Create(ctx, paris); err != nil {
			t.Fatalf("create city: %v", err)
		}
		lyon := &City{CountryID: france.ID, Name: "Lyon"}
		if err := dir.Cities.Create(ctx, lyon); err != nil {
			t.Fatalf("create city: %v", err)
		}
		postcode := &PostCode{CityID: lyon.ID, Code: "69001"}
		if err := dir.PostCodes.Create(ctx, postcode); err != nil {
			t.Fatalf("create postcode: %v", err)
		}

		if err := dir.Countries.Delete(ctx, france.ID); err != nil {
			t.Fatalf("delete country: %v", err)
		}
		if _, err := dir.Countries.Find(ctx, CountryKey{Alpha2: "FR"}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("country should be gone, got %v", err)
		}
		for _, id := range []uuid.UUID{paris.ID, lyon.ID} {
			if _, err := dir.Cities.FindByID(ctx, id); !errors.Is(err, ErrNotFound) {
				t.Errorf("city %s should be gone, got %v", id, err)
			}
		}
		if _, err := dir.PostCodes.FindByID(ctx, postcode.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("postcode should be gone, got %v", err)
		}
		if _, err := dir.States.ListByCountry(ctx, france.ID, ListOptions{}); !errors.Is(err, ErrNotFound) {
			t.Errorf("listing states of a deleted country should fail, got %v", err)
		}
	})

	t.Run("state names are unique per country", func(t *testing.T) {
		austria := mustCountry(t, "AT", "AUT", "Austria")
		swiss := mustCountry(t, "CH", "CHE", "Switzerland")

		if err := dir.States.Create(ctx, &State{CountryID: austria.ID, Name: "Tirol"}); err != nil {
			t.Fatalf("create state: %v", err)
		}
		err := dir.States.Create(ctx, &State{CountryID: austria.ID, Name: "Tirol"})
		if !errors.Is(err, ErrDuplicateEntity) {
			t.Fatalf("same country duplicate error = %v", err)
		}
		if err := dir.States.Create(ctx, &State{CountryID: swiss.ID, Name: "Tirol"}); err != nil {
			t.Fatalf("same name in another country: %v", err)
		}

		unknown := uuid.New()
		err = dir.States.Create(ctx, &State{CountryID: unknown, Name: "Nowhere"})
		if !errors.Is(err, ErrParentNotFound) {
			t.Fatalf("unknown country error = %v", err)
		}
	})

	t.Run("concurrent duplicate address creates", func(t *testing.T) {
		italy := mustCountry(t, "IT", "ITA", "Italy")
		rome := &City{CountryID: italy.ID, Name: "Rome"}
		if err := dir.Cities.Create(ctx, rome); err != nil {
			t.Fatalf("create city: %v", err)
		}
		postcode := &PostCode{CityID: rome.ID, Code: "00184"}
		if err := dir.PostCodes.Create(ctx, postcode); err != nil {
			t.Fatalf("create postcode: %v", err)
		}
		street := &Street{PostCodeID: postcode.ID, Name: "Via Nazionale"}
		if err := dir.Streets.Create(ctx, street); err != nil {
			t.Fatalf("create street: %v", err)
		}

		const writers = 2
		var wg sync.WaitGroup
		errs := make([]error, writers)
		start := make(chan struct{})
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				errs[i] = dir.Addresses.Create(ctx, &Address{StreetID: street.ID, HouseNumber: "7", Extra: "B"})
			}(i)
		}
		close(start)
		wg.Wait()

		var created, duplicates int
		for _, err := range errs {
			switch {
			case err == nil:
				created++
			case errors.Is(err, ErrDuplicateEntity):
				duplicates++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if created != 1 || duplicates != 1 {
			t.Fatalf("created=%d duplicates=%d, want 1 and 1", created, duplicates)
		}

		if err := dir.Addresses.Create(ctx, &Address{StreetID: street.ID, HouseNumber: "7"}); err != nil {
			t.Fatalf("same number without extra should be distinct: %v", err)
		}
		n, err := dir.Addresses.CountByStreet(ctx, street.ID)
		if err != nil || n != 2 {
			t.Fatalf("CountByStreet() = %d, %v", n, err)
		}
	})

	t.Run("state move races city create", func(t *testing.T) {
		belgium := mustCountry(t, "BE", "BEL", "Belgium")
		netherlands := mustCountry(t, "NL", "NLD", "Netherlands")

		for round := 0; round < 10; round++ {
			province := &State{CountryID: belgium.ID, Name: fmt.Sprintf("Province %d", round)}
			if err := dir.States.Create(ctx, province); err != nil {
				t.Fatalf("create state: %v", err)
			}

			var wg sync.WaitGroup
			var moveErr, createErr error
			start := make(chan struct{})
			wg.Add(2)
			go func() {
				defer wg.Done()
				<-start
				moveErr = dir.States.Update(ctx, &State{ID: province.ID, CountryID: netherlands.ID, Name: province.Name})
			}()
			go func() {
				defer wg.Done()
				<-start
				createErr = dir.Cities.Create(ctx, &City{CountryID: belgium.ID, StateID: &province.ID, Name: fmt.Sprintf("Town %d", round)})
			}()
			close(start)
			wg.Wait()

			switch {
			case moveErr == nil && createErr == nil:
				t.Fatalf("round %d: state move and city create both committed", round)
			case moveErr == nil && !errors.Is(createErr, ErrInvalidHierarchy):
				t.Fatalf("round %d: city create error = %v, want invalid hierarchy", round, createErr)
			case createErr == nil && !errors.Is(moveErr, ErrInvalidField):
				t.Fatalf("round %d: state move error = %v, want invalid field", round, moveErr)
			}

			state, err := dir.States.FindByID(ctx, province.ID)
			if err != nil {
				t.Fatalf("FindByID() error = %v", err)
			}
			cities, err := dir.Cities.ListByState(ctx, province.ID, ListOptions{})
			if err != nil {
				t.Fatalf("ListByState() error = %v", err)
			}
			for _, c := range cities.Items {
				if c.CountryID != state.CountryID {
					t.Fatalf("round %d: city %s in country %s but its state is in %s", round, c.ID, c.CountryID, state.CountryID)
				}
			}
		}
	})

	t.Run("pages partition rows with duplicate sort keys", func(t *testing.T) {
		for i := 0; i < 7; i++ {
			c := &Country{
				Alpha2:        fmt.Sprintf("Q%c", 'A'+i),
				Alpha3:        fmt.Sprintf("QQ%c", 'A'+i),
				Name:          fmt.Sprintf("Testland %d", i),
				LocalizedName: "Testland",
			}
			if err := dir.Countries.Create(ctx, c); err != nil {
				t.Fatalf("create country: %v", err)
			}
		}

		total, err := dir.Countries.Count(ctx)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}

		seen := map[uuid.UUID]int{}
		for page := 0; ; page++ {
			result, err := dir.Countries.List(ctx, ListOptions{
				Sort:       "localizedName,desc",
				Pagination: Pagination{Page: page, Size: 3},
			})
			if err != nil {
				t.Fatalf("List(page %d) error = %v", page, err)
			}
			for _, c := range result.Items {
				seen[c.ID]++
			}
			if !result.Info.HasNext() {
				break
			}
		}

		if int64(len(seen)) != total {
			t.Fatalf("pages returned %d distinct countries, want %d", len(seen), total)
		}
		for id, n := range seen {
			if n != 1 {
				t.Errorf("country %s returned %d times", id, n)
			}
		}
	})
}
