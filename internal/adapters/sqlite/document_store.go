package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/libraryapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/libraryapi/internal/core/domain"
	"gorm.io/gorm"
)

type documentModel struct {
	Collection string    `gorm:"column:collection;primaryKey"`
	ID         string    `gorm:"column:id;primaryKey"`
	Data       string    `gorm:"column:data;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (documentModel) TableName() string {
	return "documents"
}

// DocumentStore keeps one collection of JSON documents in the documents table.
// Identifiers are assigned by the store on insert.
type DocumentStore[T any, PT domain.Document[T]] struct {
	db         *gormsqlite.DB
	collection string
}

func NewDocumentStore[T any, PT domain.Document[T]](db *gormsqlite.DB, collection string) *DocumentStore[T, PT] {
	return &DocumentStore[T, PT]{db: db, collection: collection}
}

// Find returns every document in insertion order.
func (s *DocumentStore[T, PT]) Find(ctx context.Context) ([]T, error) {
	var models []documentModel
	err := s.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("collection = ?", s.collection).Order("created_at ASC, id ASC").Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", s.collection, err)
	}

	docs := make([]T, 0, len(models))
	for _, model := range models {
		doc, err := s.decode(model)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *DocumentStore[T, PT]) FindOne(ctx context.Context, id domain.ID) (T, error) {
	var model documentModel
	err := s.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("collection = ? AND id = ?", s.collection, id.Hex()).First(&model).Error
	})
	if err != nil {
		var zero T
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, domain.ErrNotFound
		}
		return zero, fmt.Errorf("find %s %s: %w", s.collection, id.Hex(), err)
	}
	return s.decode(model)
}

func (s *DocumentStore[T, PT]) InsertOne(ctx context.Context, doc T) (domain.ID, error) {
	id := domain.NewID()
	data, err := s.encode(id, doc)
	if err != nil {
		return domain.NilID, err
	}

	now := time.Now().UTC()
	model := documentModel{
		Collection: s.collection,
		ID:         id.Hex(),
		Data:       data,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = s.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.NilID, fmt.Errorf("insert %s: %w", s.collection, err)
	}
	return id, nil
}

func (s *DocumentStore[T, PT]) ReplaceOne(ctx context.Context, id domain.ID, doc T) (int64, error) {
	data, err := s.encode(id, doc)
	if err != nil {
		return 0, err
	}

	var matched int64
	err = s.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Model(&documentModel{}).
			Where("collection = ? AND id = ?", s.collection, id.Hex()).
			Updates(map[string]any{"data": data, "updated_at": time.Now().UTC()})
		if res.Error != nil {
			return res.Error
		}
		matched = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replace %s %s: %w", s.collection, id.Hex(), err)
	}
	return matched, nil
}

func (s *DocumentStore[T, PT]) DeleteOne(ctx context.Context, id domain.ID) (int64, error) {
	var deleted int64
	err := s.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		res := tx.Where("collection = ? AND id = ?", s.collection, id.Hex()).Delete(&documentModel{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete %s %s: %w", s.collection, id.Hex(), err)
	}
	return deleted, nil
}

func (s *DocumentStore[T, PT]) encode(id domain.ID, doc T) (string, error) {
	PT(&doc).SetDocumentID(id)
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", s.collection, err)
	}
	return string(data), nil
}

func (s *DocumentStore[T, PT]) decode(model documentModel) (T, error) {
	var doc T
	if err := json.Unmarshal([]byte(model.Data), &doc); err != nil {
		return doc, fmt.Errorf("decode %s document %s: %w", s.collection, model.ID, err)
	}
	id, err := domain.ParseID(model.ID)
	if err != nil {
		return doc, fmt.Errorf("decode %s document id %q: %w", s.collection, model.ID, err)
	}
	PT(&doc).SetDocumentID(id)
	return doc, nil
}
