// Package store provides show and update operations for catalogue entities over a
// pluggable document table (memory, SQLite or S3).
package store

import (
	"context"
	"errors"

	"github.com/sei-protocol/ckanpatch/entity"
)

// ErrStopScan may be returned from a scan callback to end the scan without error.
var ErrStopScan = errors.New("stop scan")

// Table stores encoded documents keyed by kind and id. Get returns an error matching
// entity.ErrNotFound for unknown ids.
type Table interface {
	Get(ctx context.Context, kind entity.Kind, id string) ([]byte, error)
	Put(ctx context.Context, kind entity.Kind, id string, body []byte) error
	// Scan calls fn for every document of kind in id order.
	Scan(ctx context.Context, kind entity.Kind, fn func(id string, body []byte) error) error
}
