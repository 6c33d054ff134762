// Package store selects and opens the relational store backing the directory.
package store

import (
	"context"

	"github.com/nimburion/geodir/pkg/store/sqldb"
)

// Adapter is the minimal lifecycle and health contract for storage adapters.
type Adapter interface {
	HealthCheck(ctx context.Context) error
	Close() error
}

var _ Adapter = (*sqldb.Adapter)(nil)
