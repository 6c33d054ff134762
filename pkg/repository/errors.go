package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors. Every typed error below matches exactly one of them
// through errors.Is and carries the details needed for a precise message.
var (
	ErrNotFound              = errors.New("entity not found")
	ErrParentNotFound        = errors.New("parent entity not found")
	ErrInvalidHierarchy      = errors.New("invalid hierarchy")
	ErrDuplicateEntity       = errors.New("duplicate entity")
	ErrInvalidSortDirection  = errors.New("invalid sort direction")
	ErrUnknownSortField      = errors.New("unknown sort field")
	ErrAmbiguousOrMissingKey = errors.New("exactly one lookup key is required")
	ErrInvalidPagination     = errors.New("invalid pagination")
	ErrInvalidField          = errors.New("invalid field")
)

// NotFoundError reports that an id or natural key does not resolve.
type NotFoundError struct {
	Entity EntityType
	// Key is the lookup key name ("id", "alpha2", ...).
	Key   string
	Value string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with %s %q not found", e.Entity, e.Key, e.Value)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func notFoundByID(entity EntityType, id uuid.UUID) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: "id", Value: id.String()}
}

// ParentNotFoundError reports that a referenced parent does not resolve.
type ParentNotFoundError struct {
	Entity   EntityType
	Parent   EntityType
	ParentID uuid.UUID
}

func (e *ParentNotFoundError) Error() string {
	return fmt.Sprintf("%s references unknown %s %s", e.Entity, e.Parent, e.ParentID)
}

// Is reports whether target is ErrParentNotFound.
func (e *ParentNotFoundError) Is(target error) bool { return target == ErrParentNotFound }

// InvalidHierarchyError reports a City whose State belongs to another Country.
type InvalidHierarchyError struct {
	CountryID      uuid.UUID
	StateID        uuid.UUID
	StateCountryID uuid.UUID
}

func (e *InvalidHierarchyError) Error() string {
	return fmt.Sprintf("state %s belongs to country %s, not to country %s", e.StateID, e.StateCountryID, e.CountryID)
}

// Is reports whether target is ErrInvalidHierarchy.
func (e *InvalidHierarchyError) Is(target error) bool { return target == ErrInvalidHierarchy }

// DuplicateEntityError reports a conflict inside a uniqueness scope.
type DuplicateEntityError struct {
	Entity EntityType
	// ExistingID is uuid.Nil when the conflict was raised by a store constraint.
	ExistingID  uuid.UUID
	Description string
}

func (e *DuplicateEntityError) Error() string {
	if e.ExistingID == uuid.Nil {
		return fmt.Sprintf("duplicate %s: %s", e.Entity, e.Description)
	}
	return fmt.Sprintf("duplicate %s: %s (existing id %s)", e.Entity, e.Description, e.ExistingID)
}

// Is reports whether target is ErrDuplicateEntity.
func (e *DuplicateEntityError) Is(target error) bool { return target == ErrDuplicateEntity }

// InvalidSortDirectionError carries the offending direction token.
type InvalidSortDirectionError struct {
	Token string
}

func (e *InvalidSortDirectionError) Error() string {
	return fmt.Sprintf("invalid sort direction %q (must be asc or desc)", e.Token)
}

// Is reports whether target is ErrInvalidSortDirection.
func (e *InvalidSortDirectionError) Is(target error) bool { return target == ErrInvalidSortDirection }

// UnknownSortFieldError carries the offending field token.
type UnknownSortFieldError struct {
	Token string
}

func (e *UnknownSortFieldError) Error() string {
	return fmt.Sprintf("unknown sort field %q", e.Token)
}

// Is reports whether target is ErrUnknownSortField.
func (e *UnknownSortFieldError) Is(target error) bool { return target == ErrUnknownSortField }

// AmbiguousOrMissingKeyError lists the lookup keys that were supplied.
type AmbiguousOrMissingKeyError struct {
	Provided []string
}

func (e *AmbiguousOrMissingKeyError) Error() string {
	if len(e.Provided) == 0 {
		return "country lookup requires one of id, alpha2, alpha3"
	}
	return fmt.Sprintf("country lookup requires exactly one key, got %s", strings.Join(e.Provided, ", "))
}

// Is reports whether target is ErrAmbiguousOrMissingKey.
func (e *AmbiguousOrMissingKeyError) Is(target error) bool { return target == ErrAmbiguousOrMissingKey }

// InvalidPaginationError reports a malformed page or size parameter.
type InvalidPaginationError struct {
	Param  string
	Value  string
	Reason string
}

func (e *InvalidPaginationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Param, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidPagination.
func (e *InvalidPaginationError) Is(target error) bool { return target == ErrInvalidPagination }

// InvalidFieldError reports an entity field that fails validation.
type InvalidFieldError struct {
	Entity EntityType
	Field  string
	Value  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s %s %q: %s", e.Entity, e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidField.
func (e *InvalidFieldError) Is(target error) bool { return target == ErrInvalidField }
