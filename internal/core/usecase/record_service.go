package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
	"github.com/atvirokodosprendimai/libraryapi/internal/core/ports"
)

// RecordService runs the identifier, validation and persistence steps for one
// resource type. Client input problems are reported before the store is touched.
type RecordService[T any] struct {
	kind   string
	store  ports.DocumentStore[T]
	schema *SchemaService[T]
}

// NewRecordService builds the service for a resource type. kind is the
// display name used in not-found messages, e.g. "Book".
func NewRecordService[T any](kind string, store ports.DocumentStore[T], schema *SchemaService[T]) *RecordService[T] {
	return &RecordService[T]{kind: kind, store: store, schema: schema}
}

func (s *RecordService[T]) Kind() string {
	return s.kind
}

func (s *RecordService[T]) List(ctx context.Context) ([]T, error) {
	records, err := s.store.Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.kind, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

func (s *RecordService[T]) Get(ctx context.Context, rawID string) (T, error) {
	var zero T
	id, err := domain.ParseID(rawID)
	if err != nil {
		return zero, err
	}

	rec, err := s.store.FindOne(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return zero, &domain.NotFoundError{Resource: s.kind}
		}
		return zero, fmt.Errorf("get %s %s: %w", s.kind, id.Hex(), err)
	}
	return rec, nil
}

// Create validates payload and inserts it, returning the store-assigned identifier.
func (s *RecordService[T]) Create(ctx context.Context, payload []byte) (domain.ID, error) {
	rec, err := s.schema.Validate(payload)
	if err != nil {
		return domain.NilID, err
	}

	id, err := s.store.InsertOne(ctx, rec)
	if err != nil {
		return domain.NilID, fmt.Errorf("insert %s: %w", s.kind, err)
	}
	return id, nil
}

// Replace overwrites every field of an existing record. The identifier is
// parsed before the payload is validated.
func (s *RecordService[T]) Replace(ctx context.Context, rawID string, payload []byte) error {
	id, err := domain.ParseID(rawID)
	if err != nil {
		return err
	}

	rec, err := s.schema.Validate(payload)
	if err != nil {
		return err
	}

	matched, err := s.store.ReplaceOne(ctx, id, rec)
	if err != nil {
		return fmt.Errorf("replace %s %s: %w", s.kind, id.Hex(), err)
	}
	if matched == 0 {
		return &domain.NotFoundError{Resource: s.kind}
	}
	return nil
}

func (s *RecordService[T]) Delete(ctx context.Context, rawID string) error {
	id, err := domain.ParseID(rawID)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeleteOne(ctx, id)
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", s.kind, id.Hex(), err)
	}
	if deleted == 0 {
		return &domain.NotFoundError{Resource: s.kind}
	}
	return nil
}
