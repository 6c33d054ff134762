package repository

import (
	"strings"
)

// SortOrder defines the sort direction for queries.
type SortOrder string

// Sort order constants
const (
	// SortAsc sorts in ascending order
	SortAsc SortOrder = "ASC"
	// SortDesc sorts in descending order
	SortDesc SortOrder = "DESC"
)

// FieldMap maps API field names accepted in sort strings to store columns.
// It is the only source of column names that reach an ORDER BY clause.
type FieldMap map[string]string

// Resolve returns the column for an API field name.
func (m FieldMap) Resolve(field string) (string, bool) {
	column, ok := m[field]
	return column, ok
}

// Sort is one (field, direction) instruction of a parsed sort string.
type Sort struct {
	Field  string
	Column string
	Order  SortOrder
}

// Ordering is a parsed sort string in caller order. Duplicated fields are kept.
type Ordering []Sort

// ParseSort parses "field[,dir](;field[,dir])*" against an allow-list.
// Whitespace around tokens is ignored, the direction is case-insensitive and
// defaults to ascending. Blank input yields an empty Ordering.
func ParseSort(raw string, fields FieldMap) (Ordering, error) {
	if strings.TrimSpace(raw) == "" {
		return Ordering{}, nil
	}

	segments := strings.Split(raw, ";")
	ordering := make(Ordering, 0, len(segments))
	for _, segment := range segments {
		field, direction, _ := strings.Cut(segment, ",")
		field = strings.TrimSpace(field)

		column, ok := fields.Resolve(field)
		if !ok {
			return nil, &UnknownSortFieldError{Token: field}
		}

		order, err := parseSortOrder(direction)
		if err != nil {
			return nil, err
		}

		ordering = append(ordering, Sort{Field: field, Column: column, Order: order})
	}
	return ordering, nil
}

func parseSortOrder(token string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", "asc":
		return SortAsc, nil
	case "desc":
		return SortDesc, nil
	default:
		return "", &InvalidSortDirectionError{Token: strings.TrimSpace(token)}
	}
}

// OrderByClause renders the ordering followed by the tiebreak column
// ascending, so that every listing has a total order.
func (o Ordering) OrderByClause(tiebreak string) string {
	parts := make([]string, 0, len(o)+1)
	for _, s := range o {
		parts = append(parts, s.Column+" "+string(s.Order))
	}
	parts = append(parts, tiebreak+" "+string(SortAsc))
	return "ORDER BY " + strings.Join(parts, ", ")
}
