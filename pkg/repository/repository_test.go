package repository

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/store/postgres"
	"github.com/nimburion/geodir/pkg/store/sqldb"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.ChangeEvent
	err    error
}

func (p *recordingPublisher) PublishChange(_ context.Context, event eventbus.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published() []eventbus.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]eventbus.ChangeEvent(nil), p.events...)
}

func newMockDirectory(t *testing.T) (*Directory, sqlmock.Sqlmock, *recordingPublisher) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	adapter := sqldb.New(db, postgres.Dialect{}, sqldb.Config{QueryTimeout: 5 * time.Second}, logger.NewNop())
	pub := &recordingPublisher{}
	return NewDirectory(adapter, logger.NewNop(), pub), mock, pub
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}

func noRows(columns ...string) *sqlmock.Rows {
	return sqlmock.NewRows(columns)
}

func one() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"?column?"}).AddRow(1)
}

func verify(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unfulfilled expectations: %v", err)
	}
}

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func countryRow(id uuid.UUID, alpha2, alpha3, name string) *sqlmock.Rows {
	return sqlmock.NewRows(countryColumns).AddRow(id.String(), alpha2, alpha3, name, "", testTime, testTime)
}

func TestCountryCreate(t *testing.T) {
	dir, mock, pub := newMockDirectory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM countries WHERE alpha2 = $1 AND id <> $2 LIMIT 1")).
		WithArgs("DE", sqlmock.AnyArg()).WillReturnRows(noRows("id"))
	mock.ExpectQuery(q("SELECT id FROM countries WHERE alpha3 = $1 AND id <> $2 LIMIT 1")).
		WithArgs("DEU", sqlmock.AnyArg()).WillReturnRows(noRows("id"))
	mock.ExpectQuery(q("SELECT id FROM countries WHERE name = $1 AND id <> $2 LIMIT 1")).
		WithArgs("Germany", sqlmock.AnyArg()).WillReturnRows(noRows("id"))
	mock.ExpectExec(q("INSERT INTO countries (id, alpha2, alpha3, name, localized_name, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)")).
		WithArgs(sqlmock.AnyArg(), "DE", "DEU", "Germany", "Deutschland", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := &Country{Alpha2: " de ", Alpha3: "deu", Name: "Germany", LocalizedName: "Deutschland"}
	if err := dir.Countries.Create(context.Background(), c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	verify(t, mock)

	if c.ID == uuid.Nil || c.CreatedAt.IsZero() || !c.CreatedAt.Equal(c.UpdatedAt) {
		t.Fatalf("Create() did not assign id and timestamps: %+v", c)
	}
	if c.Alpha2 != "DE" {
		t.Fatalf("alpha2 not normalized: %q", c.Alpha2)
	}

	events := pub.published()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
	if e := events[0]; e.Entity != "Country" || e.Operation != eventbus.OperationCreated || e.EntityID != c.ID.String() {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestCountryCreateDuplicate(t *testing.T) {
	dir, mock, pub := newMockDirectory(t)
	existing := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT id FROM countries WHERE alpha2 = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(existing.String()))
	mock.ExpectRollback()

	c := &Country{Alpha2: "DE", Alpha3: "DEU", Name: "Germany"}
	err := dir.Countries.Create(context.Background(), c)
	if !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("Create() error = %v, want duplicate", err)
	}
	var dup *DuplicateEntityError
	if !errors.As(err, &dup) || dup.ExistingID != existing {
		t.Fatalf("duplicate should name existing id, got %+v", dup)
	}
	if c.ID != uuid.Nil {
		t.Fatal("failed create must not modify the input")
	}
	if len(pub.published()) != 0 {
		t.Fatal("failed write must not publish")
	}
	verify(t, mock)
}

func TestCountryCreateInvalidFieldTouchesNoStore(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)

	err := dir.Countries.Create(context.Background(), &Country{Alpha2: "D1", Alpha3: "DEU", Name: "Germany"})
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("Create() error = %v, want invalid field", err)
	}
	verify(t, mock)
}

func TestCountryFind(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	ctx := context.Background()
	id := uuid.New()

	for _, key := range []CountryKey{{}, {Alpha2: "DE", Alpha3: "DEU"}, {ID: id, Alpha2: "DE"}} {
		if _, err := dir.Countries.Find(ctx, key); !errors.Is(err, ErrAmbiguousOrMissingKey) {
			t.Fatalf("Find(%+v) error = %v", key, err)
		}
	}

	mock.ExpectQuery(q("SELECT id, alpha2, alpha3, name, localized_name, created_at, updated_at FROM countries WHERE alpha2 = $1")).
		WithArgs("DE").WillReturnRows(countryRow(id, "DE", "DEU", "Germany"))
	c, err := dir.Countries.Find(ctx, CountryKey{Alpha2: "de"})
	if err != nil {
		t.Fatalf("Find(alpha2) error = %v", err)
	}
	if c.ID != id || c.Name != "Germany" {
		t.Fatalf("Find(alpha2) = %+v", c)
	}

	mock.ExpectQuery(q("FROM countries WHERE alpha3 = $1")).
		WithArgs("ZZZ").WillReturnRows(noRows(countryColumns...))
	_, err = dir.Countries.Find(ctx, CountryKey{Alpha3: "zzz"})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Key != "alpha3" || nf.Value != "ZZZ" {
		t.Fatalf("Find(alpha3) error = %v", err)
	}
	verify(t, mock)
}

func TestCountryUpdateIsIdempotent(t *testing.T) {
	dir, mock, pub := newMockDirectory(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM countries WHERE id = $1 FOR UPDATE")).
		WithArgs(id).WillReturnRows(countryRow(id, "DE", "DEU", "Germany"))
	for _, column := range []string{"alpha2", "alpha3", "name"} {
		mock.ExpectQuery(q("SELECT id FROM countries WHERE "+column+" = $1 AND id <> $2 LIMIT 1")).
			WillReturnRows(noRows("id"))
	}
	mock.ExpectExec(q("UPDATE countries SET alpha2 = $1, alpha3 = $2, name = $3, localized_name = $4, updated_at = $5 WHERE id = $6")).
		WithArgs("DE", "DEU", "Germany", "", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := &Country{ID: id, Alpha2: "DE", Alpha3: "DEU", Name: "Germany"}
	if err := dir.Countries.Update(context.Background(), c); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	verify(t, mock)

	if !c.CreatedAt.Equal(testTime) {
		t.Fatalf("created_at = %v, want the stored %v", c.CreatedAt, testTime)
	}
	if !c.UpdatedAt.After(testTime) {
		t.Fatalf("updated_at not refreshed: %v", c.UpdatedAt)
	}
	if events := pub.published(); len(events) != 1 || events[0].Operation != eventbus.OperationUpdated {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestCityWithStateUpdateIsIdempotent(t *testing.T) {
	dir, mock, pub := newMockDirectory(t)
	id, germany, bavaria := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM cities WHERE id = $1 FOR UPDATE")).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(cityColumns).AddRow(id.String(), germany.String(), bavaria.String(), "Munich", testTime, testTime))
	mock.ExpectQuery(q("SELECT 1 FROM countries WHERE id = $1")).WithArgs(germany).WillReturnRows(one())
	mock.ExpectQuery(q("FROM states WHERE id = $1 FOR SHARE")).WithArgs(bavaria).
		WillReturnRows(sqlmock.NewRows(stateColumns).AddRow(bavaria.String(), germany.String(), "Bavaria", testTime, testTime))
	mock.ExpectQuery(q("SELECT id FROM cities WHERE country_id = $1 AND state_id = $2 AND name = $3 AND id <> $4 LIMIT 1")).
		WithArgs(germany, bavaria, "Munich", id).WillReturnRows(noRows("id"))
	mock.ExpectExec(q("UPDATE cities SET country_id = $1, state_id = $2, name = $3, updated_at = $4 WHERE id = $5")).
		WithArgs(germany, bavaria, "Munich", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c := &City{ID: id, CountryID: germany, StateID: &bavaria, Name: "Munich"}
	if err := dir.Cities.Update(context.Background(), c); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	verify(t, mock)

	if c.StateID == nil || *c.StateID != bavaria || !c.CreatedAt.Equal(testTime) {
		t.Fatalf("updated city = %+v", c)
	}
	if events := pub.published(); len(events) != 1 || events[0].Operation != eventbus.OperationUpdated {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestAddressWithExtraUpdateIsIdempotent(t *testing.T) {
	dir, mock, pub := newMockDirectory(t)
	id, street := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM addresses WHERE id = $1 FOR UPDATE")).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(addressColumns).AddRow(id.String(), street.String(), "12", "b", testTime, testTime))
	mock.ExpectQuery(q("SELECT 1 FROM streets WHERE id = $1")).WithArgs(street).WillReturnRows(one())
	mock.ExpectQuery(q("SELECT id FROM addresses WHERE street_id = $1 AND house_number = $2 AND extra = $3 AND id <> $4 LIMIT 1")).
		WithArgs(street, "12", "b", id).WillReturnRows(noRows("id"))
	mock.ExpectExec(q("UPDATE addresses SET street_id = $1, house_number = $2, extra = $3, updated_at = $4 WHERE id = $5")).
		WithArgs(street, "12", "b", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a := &Address{ID: id, StreetID: street, HouseNumber: "12", Extra: " b "}
	if err := dir.Addresses.Update(context.Background(), a); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	verify(t, mock)

	if a.Extra != "b" || !a.CreatedAt.Equal(testTime) || !a.UpdatedAt.After(testTime) {
		t.Fatalf("updated address = %+v", a)
	}
	if events := pub.published(); len(events) != 1 || events[0].Operation != eventbus.OperationUpdated {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestCountryUpdateMissing(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM countries WHERE id = $1 FOR UPDATE")).WillReturnRows(noRows(countryColumns...))
	mock.ExpectRollback()

	err := dir.Countries.Update(context.Background(), &Country{ID: id, Alpha2: "DE", Alpha3: "DEU", Name: "Germany"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update() error = %v, want not found", err)
	}
	verify(t, mock)
}

func TestStateCreateParentMissing(t *testing.T) {
	dir, mock, pub := newMockDirectory(t)
	country := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT 1 FROM countries WHERE id = $1")).WithArgs(country).WillReturnRows(noRows("?column?"))
	mock.ExpectRollback()

	err := dir.States.Create(context.Background(), &State{CountryID: country, Name: "Bavaria"})
	var perr *ParentNotFoundError
	if !errors.As(err, &perr) || perr.Parent != EntityCountry || perr.ParentID != country {
		t.Fatalf("Create() error = %v, want missing country", err)
	}
	if len(pub.published()) != 0 {
		t.Fatal("failed write must not publish")
	}
	verify(t, mock)
}

func TestStateCreateUniqueRace(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	country := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT 1 FROM countries WHERE id = $1")).WillReturnRows(one())
	mock.ExpectQuery(q("SELECT id FROM states WHERE country_id = $1 AND name = $2 LIMIT 1")).
		WithArgs(country, "Bavaria").WillReturnRows(noRows("id"))
	mock.ExpectExec(q("INSERT INTO states")).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	err := dir.States.Create(context.Background(), &State{CountryID: country, Name: "Bavaria"})
	if !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("Create() error = %v, want duplicate", err)
	}
	verify(t, mock)
}

func TestStateUpdateCannotMoveWithCities(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	id, from, to := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM states WHERE id = $1 FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(stateColumns).AddRow(id.String(), from.String(), "Bavaria", testTime, testTime))
	mock.ExpectQuery(q("SELECT 1 FROM countries WHERE id = $1")).WithArgs(to).WillReturnRows(one())
	mock.ExpectQuery(q("SELECT COUNT(*) FROM cities WHERE state_id = $1")).
		WithArgs(id).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := dir.States.Update(context.Background(), &State{ID: id, CountryID: to, Name: "Bavaria"})
	var ferr *InvalidFieldError
	if !errors.As(err, &ferr) || ferr.Field != "country_id" {
		t.Fatalf("Update() error = %v, want invalid country_id", err)
	}
	verify(t, mock)
}

func TestCityCreateInvalidHierarchy(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	france, germany, bavaria := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT 1 FROM countries WHERE id = $1")).WithArgs(france).WillReturnRows(one())
	mock.ExpectQuery(q("FROM states WHERE id = $1 FOR SHARE")).WithArgs(bavaria).
		WillReturnRows(sqlmock.NewRows(stateColumns).AddRow(bavaria.String(), germany.String(), "Bavaria", testTime, testTime))
	mock.ExpectRollback()

	err := dir.Cities.Create(context.Background(), &City{CountryID: france, StateID: &bavaria, Name: "Munich"})
	if !errors.Is(err, ErrInvalidHierarchy) {
		t.Fatalf("Create() error = %v, want invalid hierarchy", err)
	}
	verify(t, mock)
}

func TestCityCreateForeignKeyRaceReportsState(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	germany, bavaria := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT 1 FROM countries WHERE id = $1")).WillReturnRows(one())
	mock.ExpectQuery(q("FROM states WHERE id = $1 FOR SHARE")).
		WillReturnRows(sqlmock.NewRows(stateColumns).AddRow(bavaria.String(), germany.String(), "Bavaria", testTime, testTime))
	mock.ExpectQuery(q("SELECT id FROM cities WHERE country_id = $1 AND state_id = $2 AND name = $3 LIMIT 1")).
		WithArgs(germany, bavaria, "Munich").WillReturnRows(noRows("id"))
	mock.ExpectExec(q("INSERT INTO cities")).WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	err := dir.Cities.Create(context.Background(), &City{CountryID: germany, StateID: &bavaria, Name: "Munich"})
	var perr *ParentNotFoundError
	if !errors.As(err, &perr) || perr.Parent != EntityState || perr.ParentID != bavaria {
		t.Fatalf("Create() error = %v, want missing state", err)
	}
	verify(t, mock)
}

func TestCityWithoutStateScope(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	germany := uuid.New()

	mock.ExpectQuery(q("FROM cities WHERE country_id = $1 AND state_id IS NULL AND name = $2")).
		WithArgs(germany, "Berlin").WillReturnRows(noRows(cityColumns...))

	_, err := dir.Cities.FindByName(context.Background(), germany, nil, " Berlin ")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindByName() error = %v", err)
	}
	verify(t, mock)
}

func TestCityDeleteCascades(t *testing.T) {
	dir, mock, pub := newMockDirectory(t)
	id, country := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM cities WHERE id = $1 FOR UPDATE")).WithArgs(id).
		WillReturnRows(sqlmock.NewRows(cityColumns).AddRow(id.String(), country.String(), nil, "Berlin", testTime, testTime))
	mock.ExpectExec(q("DELETE FROM addresses WHERE street_id IN (SELECT id FROM streets WHERE postcode_id IN (SELECT id FROM postcodes WHERE city_id = $1))")).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(q("DELETE FROM streets WHERE postcode_id IN (SELECT id FROM postcodes WHERE city_id = $1)")).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("DELETE FROM postcodes WHERE city_id = $1")).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM cities WHERE id = $1")).
		WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := dir.Cities.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	verify(t, mock)

	events := pub.published()
	if len(events) != 1 {
		t.Fatalf("published %d events, want 1", len(events))
	}
	want := map[string]int64{"Address": 3, "Street": 2, "PostCode": 1}
	for entity, n := range want {
		if events[0].Cascade[entity] != n {
			t.Errorf("cascade[%s] = %d, want %d", entity, events[0].Cascade[entity], n)
		}
	}
}

func TestDeleteMissingRollsBack(t *testing.T) {
	dir, mock, pub := newMockDirectory(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM streets WHERE id = $1 FOR UPDATE")).WillReturnRows(noRows(streetColumns...))
	mock.ExpectRollback()

	if err := dir.Streets.Delete(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete() error = %v, want not found", err)
	}
	if len(pub.published()) != 0 {
		t.Fatal("failed delete must not publish")
	}
	verify(t, mock)
}

func TestAddressCreateSurvivesPublishFailure(t *testing.T) {
	dir, mock, pub := newMockDirectory(t)
	pub.err = errors.New("broker unavailable")
	street := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT 1 FROM streets WHERE id = $1")).WithArgs(street).WillReturnRows(one())
	mock.ExpectQuery(q("SELECT id FROM addresses WHERE street_id = $1 AND house_number = $2 AND extra = $3 LIMIT 1")).
		WithArgs(street, "12", "").WillReturnRows(noRows("id"))
	mock.ExpectExec(q("INSERT INTO addresses (id, street_id, house_number, extra, created_at, updated_at)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	a := &Address{StreetID: street, HouseNumber: "12"}
	if err := dir.Addresses.Create(context.Background(), a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.ID == uuid.Nil {
		t.Fatal("committed address should carry its id")
	}
	verify(t, mock)
}

func TestCountryListQueryShape(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)

	mock.ExpectQuery(q("SELECT COUNT(*) FROM countries")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(q("SELECT id, alpha2, alpha3, name, localized_name, created_at, updated_at FROM countries ORDER BY name DESC, id ASC LIMIT $1 OFFSET $2")).
		WithArgs(2, 2).
		WillReturnRows(sqlmock.NewRows(countryColumns).
			AddRow(uuid.NewString(), "CH", "CHE", "Switzerland", "", testTime, testTime).
			AddRow(uuid.NewString(), "AT", "AUT", "Austria", "", testTime, testTime))

	page, err := dir.Countries.List(context.Background(), ListOptions{
		Sort:       "name,desc",
		Pagination: Pagination{Page: 1, Size: 2},
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	verify(t, mock)

	if len(page.Items) != 2 || page.Items[0].Alpha2 != "CH" {
		t.Fatalf("List() items = %+v", page.Items)
	}
	if page.Info.TotalElements != 5 || page.Info.TotalPages != 3 || page.Info.Page != 1 {
		t.Fatalf("List() info = %+v", page.Info)
	}
}

func TestListRejectsBadSortBeforeQuerying(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	ctx := context.Background()

	if _, err := dir.Countries.List(ctx, ListOptions{Sort: "population"}); !errors.Is(err, ErrUnknownSortField) {
		t.Fatalf("List() error = %v, want unknown sort field", err)
	}
	if _, err := dir.Streets.ListByPostCode(ctx, uuid.New(), ListOptions{Sort: "name,up"}); !errors.Is(err, ErrInvalidSortDirection) {
		t.Fatalf("ListByPostCode() error = %v, want invalid direction", err)
	}
	verify(t, mock)
}

func TestListByParentMissing(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	country := uuid.New()

	mock.ExpectQuery(q("SELECT 1 FROM countries WHERE id = $1")).WithArgs(country).WillReturnRows(noRows("?column?"))

	_, err := dir.States.ListByCountry(context.Background(), country, ListOptions{})
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Entity != EntityCountry {
		t.Fatalf("ListByCountry() error = %v, want missing country", err)
	}
	verify(t, mock)
}

func TestListUnlimitedEmpty(t *testing.T) {
	dir, mock, _ := newMockDirectory(t)
	postcode := uuid.New()

	mock.ExpectQuery(q("SELECT 1 FROM postcodes WHERE id = $1")).WillReturnRows(one())
	mock.ExpectQuery(q("SELECT COUNT(*) FROM streets WHERE postcode_id = $1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(q("FROM streets WHERE postcode_id = $1 ORDER BY id ASC")).
		WillReturnRows(noRows(streetColumns...))

	page, err := dir.Streets.ListByPostCode(context.Background(), postcode, ListOptions{})
	if err != nil {
		t.Fatalf("ListByPostCode() error = %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 || page.Info.TotalPages != 0 {
		t.Fatalf("unexpected empty page %+v", page)
	}
	verify(t, mock)
}
