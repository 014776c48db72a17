package ports

import (
	"context"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
)

// DocumentStore is a single collection of records of type T.
// FindOne returns domain.ErrNotFound when no record matches.
// ReplaceOne and DeleteOne report how many records matched the identifier.
type DocumentStore[T any] interface {
	Find(ctx context.Context) ([]T, error)
	FindOne(ctx context.Context, id domain.ID) (T, error)
	InsertOne(ctx context.Context, doc T) (domain.ID, error)
	ReplaceOne(ctx context.Context, id domain.ID, doc T) (int64, error)
	DeleteOne(ctx context.Context, id domain.ID) (int64, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
