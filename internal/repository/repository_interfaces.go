// Package repository provides the storage backends for cache generations.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/guttosm/shell-cache/internal/domain/model"
)

var (
	// ErrStoreNotFound is returned when writing to a store that was deleted.
	ErrStoreNotFound = errors.New("store not found")
	// ErrInvalidStoreName is returned for empty or unsafe store names.
	ErrInvalidStoreName = errors.New("invalid store name")
)

// CacheStorage owns every named generation store of one deployment.
type CacheStorage interface {
	// Open returns the named store, creating it when absent.
	Open(ctx context.Context, name string) (Store, error)
	// Has reports whether the named store exists.
	Has(ctx context.Context, name string) (bool, error)
	// Keys lists store names in lexical order.
	Keys(ctx context.Context) ([]string, error)
	// Delete removes a store and every entry in it. It reports whether the
	// store existed.
	Delete(ctx context.Context, name string) (bool, error)
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close(ctx context.Context) error
	// Backend names the implementation, e.g. "sqlite".
	Backend() string
}

// Store maps request identities to response snapshots.
// Put is a blind overwrite: the last committed write for a key wins.
type Store interface {
	Name() string
	// Match returns the stored snapshot, or nil, nil when absent.
	Match(ctx context.Context, id model.RequestIdentity) (*model.Snapshot, error)
	Put(ctx context.Context, id model.RequestIdentity, snap *model.Snapshot) error
	// Keys lists stored identities ordered by key.
	Keys(ctx context.Context) ([]model.RequestIdentity, error)
	Delete(ctx context.Context, id model.RequestIdentity) (bool, error)
}

// ValidateStoreName rejects names that cannot be used safely as a
// directory, table value or document id.
func ValidateStoreName(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > 255 {
		return ErrInvalidStoreName
	}
	if strings.ContainsAny(name, "/\\\x00") || name == "." || name == ".." {
		return ErrInvalidStoreName
	}
	return nil
}
