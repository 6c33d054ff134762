package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/nimburion/geodir/pkg/controller"
	"github.com/nimburion/geodir/pkg/middleware/requestid"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/repository"
	"github.com/nimburion/geodir/pkg/server/router/gin"
)

// fakeCountries keeps countries in memory and enforces alpha2 uniqueness.
type fakeCountries struct {
	mu   sync.Mutex
	rows map[uuid.UUID]repository.Country
	opts repository.ListOptions
}

func newFakeCountries(rows ...repository.Country) *fakeCountries {
	f := &fakeCountries{rows: map[uuid.UUID]repository.Country{}}
	for _, row := range rows {
		f.rows[row.ID] = row
	}
	return f
}

func (f *fakeCountries) List(_ context.Context, opts repository.ListOptions) (repository.Page[repository.Country], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = opts
	if _, err := repository.ParseSort(opts.Sort, repository.FieldMap{"name": "name"}); err != nil {
		return repository.Page[repository.Country]{}, err
	}
	items := make([]repository.Country, 0, len(f.rows))
	for _, row := range f.rows {
		items = append(items, row)
	}
	return repository.Page[repository.Country]{
		Items: items,
		Info:  repository.NewPageInfo(int64(len(items)), opts.Pagination),
	}, nil
}

func (f *fakeCountries) FindByID(_ context.Context, id uuid.UUID) (*repository.Country, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, &repository.NotFoundError{Entity: repository.EntityCountry, Key: "id", Value: id.String()}
	}
	return &row, nil
}

func (f *fakeCountries) Find(_ context.Context, key repository.CountryKey) (*repository.Country, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if (key.Alpha2 != "" && strings.EqualFold(row.Alpha2, key.Alpha2)) ||
			(key.Alpha3 != "" && strings.EqualFold(row.Alpha3, key.Alpha3)) {
			return &row, nil
		}
	}
	return nil, &repository.NotFoundError{Entity: repository.EntityCountry, Key: "alpha2", Value: key.Alpha2}
}

func (f *fakeCountries) Create(_ context.Context, c *repository.Country) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(c.Alpha2) != 2 {
		return &repository.InvalidFieldError{Entity: repository.EntityCountry, Field: "alpha2", Value: c.Alpha2, Reason: "must be exactly 2 letters"}
	}
	for _, row := range f.rows {
		if row.Alpha2 == c.Alpha2 {
			return &repository.DuplicateEntityError{Entity: repository.EntityCountry, ExistingID: row.ID, Description: "alpha2 " + c.Alpha2}
		}
	}
	c.ID = uuid.New()
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeCountries) Update(_ context.Context, c *repository.Country) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[c.ID]; !ok {
		return &repository.NotFoundError{Entity: repository.EntityCountry, Key: "id", Value: c.ID.String()}
	}
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeCountries) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return &repository.NotFoundError{Entity: repository.EntityCountry, Key: "id", Value: id.String()}
	}
	delete(f.rows, id)
	return nil
}

// fakeCities records calls; cities belong to known states only.
type fakeCities struct {
	cityStore
	knownState uuid.UUID
	created    []repository.City
}

func (f *fakeCities) Create(_ context.Context, c *repository.City) error {
	if c.StateID != nil && *c.StateID != f.knownState {
		return &repository.ParentNotFoundError{Entity: repository.EntityCity, Parent: repository.EntityState, ParentID: *c.StateID}
	}
	c.ID = uuid.New()
	f.created = append(f.created, *c)
	return nil
}

func (f *fakeCities) ListByState(_ context.Context, stateID uuid.UUID, opts repository.ListOptions) (repository.Page[repository.City], error) {
	if stateID != f.knownState {
		return repository.Page[repository.City]{}, &repository.NotFoundError{Entity: repository.EntityState, Key: "id", Value: stateID.String()}
	}
	return repository.Page[repository.City]{Info: repository.NewPageInfo(0, opts.Pagination)}, nil
}

// unreachable fails the test when any store method runs.
type unreachable[T any] struct{ t *testing.T }

func (u unreachable[T]) fail() { u.t.Error("store should not be reached") }

func (u unreachable[T]) List(context.Context, repository.ListOptions) (repository.Page[T], error) {
	u.fail()
	return repository.Page[T]{}, nil
}

func (u unreachable[T]) listBy(context.Context, uuid.UUID, repository.ListOptions) (repository.Page[T], error) {
	u.fail()
	return repository.Page[T]{}, nil
}

func (u unreachable[T]) ListByCountry(ctx context.Context, id uuid.UUID, o repository.ListOptions) (repository.Page[T], error) {
	return u.listBy(ctx, id, o)
}

func (u unreachable[T]) ListByState(ctx context.Context, id uuid.UUID, o repository.ListOptions) (repository.Page[T], error) {
	return u.listBy(ctx, id, o)
}

func (u unreachable[T]) ListByCity(ctx context.Context, id uuid.UUID, o repository.ListOptions) (repository.Page[T], error) {
	return u.listBy(ctx, id, o)
}

func (u unreachable[T]) ListByPostCode(ctx context.Context, id uuid.UUID, o repository.ListOptions) (repository.Page[T], error) {
	return u.listBy(ctx, id, o)
}

func (u unreachable[T]) ListByStreet(ctx context.Context, id uuid.UUID, o repository.ListOptions) (repository.Page[T], error) {
	return u.listBy(ctx, id, o)
}

func (u unreachable[T]) FindByID(context.Context, uuid.UUID) (*T, error) {
	u.fail()
	return nil, nil
}

func (u unreachable[T]) Find(context.Context, repository.CountryKey) (*T, error) {
	u.fail()
	return nil, nil
}

func (u unreachable[T]) Create(context.Context, *T) error { u.fail(); return nil }
func (u unreachable[T]) Update(context.Context, *T) error { u.fail(); return nil }
func (u unreachable[T]) Delete(context.Context, uuid.UUID) error {
	u.fail()
	return nil
}

func newTestServer(h *Handler) *gin.GinRouter {
	if h.logger == nil {
		h.logger = logger.NewNop()
	}
	r := gin.NewRouter()
	r.Use(requestid.RequestID())
	h.Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return v
}

type envelope[T any] struct {
	Data T `json:"data"`
}

func TestRoutesAreRegistered(t *testing.T) {
	r := newTestServer(&Handler{
		countries: unreachable[repository.Country]{t},
		states:    unreachable[repository.State]{t},
		cities:    unreachable[repository.City]{t},
		postCodes: unreachable[repository.PostCode]{t},
		streets:   unreachable[repository.Street]{t},
		addresses: unreachable[repository.Address]{t},
	})

	// Every request fails validation before reaching a store.
	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/countries?page=-1"},
		{http.MethodPost, "/api/v1/countries"},
		{http.MethodGet, "/api/v1/countries/nope"},
		{http.MethodPut, "/api/v1/countries/nope"},
		{http.MethodDelete, "/api/v1/countries/nope"},
		{http.MethodGet, "/api/v1/countries/nope/states"},
		{http.MethodGet, "/api/v1/countries/nope/cities"},
		{http.MethodGet, "/api/v1/states?size=0"},
		{http.MethodPost, "/api/v1/states"},
		{http.MethodGet, "/api/v1/states/nope"},
		{http.MethodPut, "/api/v1/states/nope"},
		{http.MethodDelete, "/api/v1/states/nope"},
		{http.MethodGet, "/api/v1/states/nope/cities"},
		{http.MethodGet, "/api/v1/cities?page=x"},
		{http.MethodPost, "/api/v1/cities"},
		{http.MethodGet, "/api/v1/cities/nope"},
		{http.MethodPut, "/api/v1/cities/nope"},
		{http.MethodDelete, "/api/v1/cities/nope"},
		{http.MethodGet, "/api/v1/cities/nope/postcodes"},
		{http.MethodGet, "/api/v1/postcodes?size=-3"},
		{http.MethodPost, "/api/v1/postcodes"},
		{http.MethodGet, "/api/v1/postcodes/nope"},
		{http.MethodPut, "/api/v1/postcodes/nope"},
		{http.MethodDelete, "/api/v1/postcodes/nope"},
		{http.MethodGet, "/api/v1/postcodes/nope/streets"},
		{http.MethodGet, "/api/v1/streets?page=1.5"},
		{http.MethodPost, "/api/v1/streets"},
		{http.MethodGet, "/api/v1/streets/nope"},
		{http.MethodPut, "/api/v1/streets/nope"},
		{http.MethodDelete, "/api/v1/streets/nope"},
		{http.MethodGet, "/api/v1/streets/nope/addresses"},
		{http.MethodGet, "/api/v1/addresses?size=none"},
		{http.MethodPost, "/api/v1/addresses"},
		{http.MethodGet, "/api/v1/addresses/nope"},
		{http.MethodPut, "/api/v1/addresses/nope"},
		{http.MethodDelete, "/api/v1/addresses/nope"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(t, r, tt.method, tt.path, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCountryLifecycle(t *testing.T) {
	countries := newFakeCountries()
	r := newTestServer(&Handler{countries: countries})

	rec := do(t, r, http.MethodPost, "/api/v1/countries", `{"alpha2":"DE","alpha3":"DEU","name":"Germany","localized_name":"Deutschland"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[envelope[repository.Country]](t, rec).Data
	if created.ID == uuid.Nil || created.LocalizedName != "Deutschland" {
		t.Fatalf("created = %+v", created)
	}

	rec = do(t, r, http.MethodPost, "/api/v1/countries", `{"alpha2":"DE","alpha3":"DEX","name":"Other"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", rec.Code)
	}
	conflict := decode[controller.ErrorResponse](t, rec)
	if conflict.Details["existing_id"] != created.ID.String() {
		t.Fatalf("conflict details = %v", conflict.Details)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/countries/by-alpha2/de", "")
	if rec.Code != http.StatusOK || decode[envelope[repository.Country]](t, rec).Data.ID != created.ID {
		t.Fatalf("by-alpha2 = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/countries/by-alpha3/DEU", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("by-alpha3 status = %d", rec.Code)
	}

	rec = do(t, r, http.MethodPut, "/api/v1/countries/"+created.ID.String(), `{"alpha2":"DE","alpha3":"DEU","name":"Federal Republic of Germany"}`)
	if rec.Code != http.StatusOK || decode[envelope[repository.Country]](t, rec).Data.Name != "Federal Republic of Germany" {
		t.Fatalf("update = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodDelete, "/api/v1/countries/"+created.ID.String(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/countries/"+created.ID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestCreateCountry_RejectsBadBodies(t *testing.T) {
	r := newTestServer(&Handler{countries: newFakeCountries()})

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"invalid field", `{"alpha2":"DEU","alpha3":"DEU","name":"Germany"}`, http.StatusBadRequest, "validation.invalid_field"},
		{"unknown field", `{"alpha2":"DE","population":83}`, http.StatusBadRequest, "validation.malformed_body"},
		{"truncated", `{"alpha2":`, http.StatusBadRequest, "validation.malformed_body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/api/v1/countries", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decode[controller.ErrorResponse](t, rec).Code; got != tt.code {
				t.Fatalf("code = %s, want %s", got, tt.code)
			}
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/countries", strings.NewReader(`alpha2=DE`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("form body status = %d", rec.Code)
	}
}

func TestListCountries_PageAndLinks(t *testing.T) {
	countries := newFakeCountries(
		repository.Country{ID: uuid.New(), Alpha2: "AT", Alpha3: "AUT", Name: "Austria"},
		repository.Country{ID: uuid.New(), Alpha2: "BE", Alpha3: "BEL", Name: "Belgium"},
		repository.Country{ID: uuid.New(), Alpha2: "CH", Alpha3: "CHE", Name: "Switzerland"},
	)
	r := newTestServer(&Handler{countries: countries})

	rec := do(t, r, http.MethodGet, "/api/v1/countries?sort=name,desc&page=0&size=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if countries.opts.Sort != "name,desc" || countries.opts.Pagination != (repository.Pagination{Page: 0, Size: 2}) {
		t.Fatalf("options = %+v", countries.opts)
	}

	body := decode[controller.ListResponse[repository.Country]](t, rec)
	if body.Page.TotalElements != 3 || body.Page.TotalPages != 2 {
		t.Fatalf("page = %+v", body.Page)
	}
	if body.Links.Next != "/api/v1/countries?page=1&size=2&sort=name%2Cdesc" {
		t.Fatalf("next = %q", body.Links.Next)
	}

	rec = do(t, r, http.MethodGet, "/api/v1/countries?sort=name,up", "")
	if rec.Code != http.StatusBadRequest || decode[controller.ErrorResponse](t, rec).Code != "validation.invalid_sort_direction" {
		t.Fatalf("bad sort = %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateCity_OptionalState(t *testing.T) {
	stateID := uuid.New()
	cities := &fakeCities{knownState: stateID}
	r := newTestServer(&Handler{cities: cities})
	countryID := uuid.New().String()

	rec := do(t, r, http.MethodPost, "/api/v1/cities", `{"country_id":"`+countryID+`","state_id":null,"name":"Vaduz"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("stateless city status = %d, body %s", rec.Code, rec.Body.String())
	}
	if cities.created[0].StateID != nil {
		t.Fatalf("state_id = %v, want nil", cities.created[0].StateID)
	}

	rec = do(t, r, http.MethodPost, "/api/v1/cities", `{"country_id":"`+countryID+`","state_id":"`+stateID.String()+`","name":"Munich"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("city with state status = %d", rec.Code)
	}

	rec = do(t, r, http.MethodPost, "/api/v1/cities", `{"country_id":"`+countryID+`","state_id":"`+uuid.New().String()+`","name":"Nowhere"}`)
	if rec.Code != http.StatusNotFound || decode[controller.ErrorResponse](t, rec).Code != "resource.parent_not_found" {
		t.Fatalf("unknown state = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/api/v1/cities", `{"name":"Orphan"}`)
	if rec.Code != http.StatusBadRequest || decode[controller.ErrorResponse](t, rec).Code != "validation.required" {
		t.Fatalf("missing country = %d %s", rec.Code, rec.Body.String())
	}
}

func TestListStateCities(t *testing.T) {
	stateID := uuid.New()
	r := newTestServer(&Handler{cities: &fakeCities{knownState: stateID}})

	rec := do(t, r, http.MethodGet, "/api/v1/states/"+stateID.String()+"/cities", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["data"]) != "[]" {
		t.Fatalf("data = %s", raw["data"])
	}

	rec = do(t, r, http.MethodGet, "/api/v1/states/"+uuid.New().String()+"/cities", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing state status = %d", rec.Code)
	}
}
