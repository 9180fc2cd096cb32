package etl

import (
	"context"

	"github.com/BartekS5/totesys-etl/internal/storage"
	"github.com/BartekS5/totesys-etl/pkg/table"
)

// Source is a single open connection to the relational source. Query
// returns the full result set with the columns reported by the driver.
type Source interface {
	Query(ctx context.Context, query string) (*table.Table, error)
	Close() error
}

// StoreFactory builds the object store client for one run.
type StoreFactory func(ctx context.Context) (storage.ObjectStore, error)

// SourceFactory opens the source connection for one run.
type SourceFactory func(ctx context.Context) (Source, error)
