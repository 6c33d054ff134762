package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ValidateCityState checks that a City's optional State belongs to the
// City's Country. A nil state always passes.
func ValidateCityState(countryID uuid.UUID, state *State) error {
	if state == nil || state.CountryID == countryID {
		return nil
	}
	return &InvalidHierarchyError{
		CountryID:      countryID,
		StateID:        state.ID,
		StateCountryID: state.CountryID,
	}
}

// Relationship is one parent/child edge of the directory.
type Relationship struct {
	Parent       EntityType
	Child        EntityType
	ChildTable   string
	ParentColumn string
}

// Hierarchy is the static registry of entity tables and parent/child edges.
type Hierarchy struct {
	tables        map[EntityType]string
	relationships []Relationship
}

// DefaultHierarchy returns the directory hierarchy:
// Country → State → City → PostCode → Street → Address, plus Country → City.
func DefaultHierarchy() Hierarchy {
	return Hierarchy{
		tables: map[EntityType]string{
			EntityCountry:  "countries",
			EntityState:    "states",
			EntityCity:     "cities",
			EntityPostCode: "postcodes",
			EntityStreet:   "streets",
			EntityAddress:  "addresses",
		},
		relationships: []Relationship{
			{Parent: EntityCountry, Child: EntityState, ChildTable: "states", ParentColumn: "country_id"},
			{Parent: EntityState, Child: EntityCity, ChildTable: "cities", ParentColumn: "state_id"},
			{Parent: EntityCountry, Child: EntityCity, ChildTable: "cities", ParentColumn: "country_id"},
			{Parent: EntityCity, Child: EntityPostCode, ChildTable: "postcodes", ParentColumn: "city_id"},
			{Parent: EntityPostCode, Child: EntityStreet, ChildTable: "streets", ParentColumn: "postcode_id"},
			{Parent: EntityStreet, Child: EntityAddress, ChildTable: "addresses", ParentColumn: "street_id"},
		},
	}
}

// Table returns the table storing entity.
func (h Hierarchy) Table(entity EntityType) string {
	return h.tables[entity]
}

// Children returns the edges leaving parent, in registry order.
func (h Hierarchy) Children(parent EntityType) []Relationship {
	var out []Relationship
	for _, rel := range h.relationships {
		if rel.Parent == parent {
			out = append(out, rel)
		}
	}
	return out
}

// CascadeStep deletes the descendants reachable from the root through Path.
type CascadeStep struct {
	Entity EntityType
	// Path runs from the root's direct child down to Entity.
	Path []Relationship
}

// CascadePlan lists the delete steps for removing root, deepest descendants
// first. An entity reachable through several paths gets one step per path;
// later steps for already emptied tables affect no rows.
func (h Hierarchy) CascadePlan(root EntityType) []CascadeStep {
	var plan []CascadeStep
	var visit func(parent EntityType, path []Relationship)
	visit = func(parent EntityType, path []Relationship) {
		for _, rel := range h.Children(parent) {
			next := append(append([]Relationship(nil), path...), rel)
			visit(rel.Child, next)
			plan = append(plan, CascadeStep{Entity: rel.Child, Path: next})
		}
	}
	visit(root, nil)
	return plan
}

// Statement renders the DELETE for the step. placeholder is bound to the
// root id.
func (s CascadeStep) Statement(h Hierarchy, placeholder string) string {
	// Innermost selection: ids of the root's direct children.
	filter := fmt.Sprintf("%s = %s", s.Path[0].ParentColumn, placeholder)
	for i := 1; i < len(s.Path); i++ {
		parentTable := h.Table(s.Path[i-1].Child)
		filter = fmt.Sprintf("%s IN (SELECT id FROM %s WHERE %s)", s.Path[i].ParentColumn, parentTable, filter)
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", h.Table(s.Entity), filter)
}

func (s CascadeStep) String() string {
	names := make([]string, 0, len(s.Path))
	for _, rel := range s.Path {
		names = append(names, string(rel.Child))
	}
	return strings.Join(names, "/")
}
