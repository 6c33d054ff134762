package repository

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestValidateCityState(t *testing.T) {
	germany, france := uuid.New(), uuid.New()
	bavaria := &State{ID: uuid.New(), CountryID: germany, Name: "Bavaria"}

	if err := ValidateCityState(germany, nil); err != nil {
		t.Fatalf("city without state: %v", err)
	}
	if err := ValidateCityState(germany, bavaria); err != nil {
		t.Fatalf("state in same country: %v", err)
	}

	err := ValidateCityState(france, bavaria)
	if !errors.Is(err, ErrInvalidHierarchy) {
		t.Fatalf("state in other country: got %v", err)
	}
	var hierr *InvalidHierarchyError
	if !errors.As(err, &hierr) || hierr.StateCountryID != germany || hierr.CountryID != france {
		t.Fatalf("unexpected hierarchy error details: %+v", hierr)
	}
}

func TestCascadePlanOrder(t *testing.T) {
	h := DefaultHierarchy()

	tests := []struct {
		root EntityType
		want []string
	}{
		{root: EntityAddress, want: nil},
		{root: EntityStreet, want: []string{"Address"}},
		{root: EntityCity, want: []string{"PostCode/Street/Address", "PostCode/Street", "PostCode"}},
		{root: EntityState, want: []string{
			"City/PostCode/Street/Address", "City/PostCode/Street", "City/PostCode", "City",
		}},
		{root: EntityCountry, want: []string{
			"State/City/PostCode/Street/Address", "State/City/PostCode/Street", "State/City/PostCode", "State/City", "State",
			"City/PostCode/Street/Address", "City/PostCode/Street", "City/PostCode", "City",
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.root), func(t *testing.T) {
			plan := h.CascadePlan(tt.root)
			if len(plan) != len(tt.want) {
				t.Fatalf("CascadePlan(%s) has %d steps, want %d", tt.root, len(plan), len(tt.want))
			}
			for i, step := range plan {
				if step.String() != tt.want[i] {
					t.Errorf("step %d = %s, want %s", i, step, tt.want[i])
				}
			}
		})
	}
}

func TestCascadeStepStatement(t *testing.T) {
	h := DefaultHierarchy()

	city := h.CascadePlan(EntityCity)
	if got, want := city[2].Statement(h, "$1"), "DELETE FROM postcodes WHERE city_id = $1"; got != want {
		t.Errorf("postcode step = %q, want %q", got, want)
	}
	if got, want := city[1].Statement(h, "$1"),
		"DELETE FROM streets WHERE postcode_id IN (SELECT id FROM postcodes WHERE city_id = $1)"; got != want {
		t.Errorf("street step = %q, want %q", got, want)
	}

	state := h.CascadePlan(EntityState)
	want := "DELETE FROM addresses WHERE street_id IN (SELECT id FROM streets WHERE postcode_id IN " +
		"(SELECT id FROM postcodes WHERE city_id IN (SELECT id FROM cities WHERE state_id = ?)))"
	if got := state[0].Statement(h, "?"); got != want {
		t.Errorf("address step = %q, want %q", got, want)
	}
}

func TestHierarchyTables(t *testing.T) {
	h := DefaultHierarchy()
	for entity, table := range map[EntityType]string{
		EntityCountry:  "countries",
		EntityState:    "states",
		EntityCity:     "cities",
		EntityPostCode: "postcodes",
		EntityStreet:   "streets",
		EntityAddress:  "addresses",
	} {
		if got := h.Table(entity); got != table {
			t.Errorf("Table(%s) = %q, want %q", entity, got, table)
		}
	}
	if children := h.Children(EntityCountry); len(children) != 2 {
		t.Errorf("country should have states and cities as children, got %v", children)
	}
}
