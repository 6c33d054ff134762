package sqldb

import "fmt"

// Dialect captures the SQL differences between the supported relational stores.
type Dialect interface {
	// Name identifies the dialect ("postgres", "mysql").
	Name() string

	// DriverName is the database/sql driver registered for the dialect.
	DriverName() string

	// Placeholder returns the bind parameter for the 1-based position.
	Placeholder(position int) string

	// IsUniqueViolation reports whether err is a unique-constraint violation.
	IsUniqueViolation(err error) bool

	// IsForeignKeyViolation reports whether err is a foreign-key violation.
	IsForeignKeyViolation(err error) bool
}

// Args accumulates positional arguments and hands out matching placeholders.
type Args struct {
	dialect Dialect
	values  []interface{}
}

// NewArgs creates an argument list for the dialect.
func NewArgs(d Dialect) *Args {
	return &Args{dialect: d}
}

// Add appends a value and returns its placeholder.
func (a *Args) Add(value interface{}) string {
	a.values = append(a.values, value)
	return a.dialect.Placeholder(len(a.values))
}

// Values returns the accumulated values in bind order.
func (a *Args) Values() []interface{} {
	return a.values
}

// QuestionDialect implements placeholder rendering for drivers using "?".
type QuestionDialect struct{}

// Placeholder always returns "?".
func (QuestionDialect) Placeholder(int) string { return "?" }

// DollarDialect implements placeholder rendering for drivers using "$n".
type DollarDialect struct{}

// Placeholder returns "$n".
func (DollarDialect) Placeholder(position int) string { return fmt.Sprintf("$%d", position) }
