package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/forumfeed/models"
)

// GormStore keeps every document as a JSON row of the documents table.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore wraps an opened gorm connection. The documents table must exist.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Add implements Store.
func (s *GormStore) Add(ctx context.Context, collection string, data Data) (string, error) {
	now := s.now()
	b, err := json.Marshal(resolve(data, now))
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	doc := models.Document{
		ID:         uuid.NewString(),
		Collection: collection,
		Data:       string(b),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return "", fmt.Errorf("insert document: %w", err)
	}
	return doc.ID, nil
}

// Get implements Store.
func (s *GormStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var row models.Document
	err := s.db.WithContext(ctx).Where("id = ? AND collection = ?", id, collection).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("load document: %w", err)
	}
	return decodeRow(row)
}

// List implements Store.
func (s *GormStore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	var rows []models.Document
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeRow(row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	sortDocuments(docs, q)
	return docs, nil
}

// Update implements Store. The read-modify-write runs in one transaction and
// holds a row lock on dialects that support SELECT ... FOR UPDATE.
func (s *GormStore) Update(ctx context.Context, collection, id string, ops ...FieldOp) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if tx.Dialector.Name() != "sqlite" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var row models.Document
		if err := q.Where("id = ? AND collection = ?", id, collection).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock document: %w", err)
		}
		current, err := decodeRow(row)
		if err != nil {
			return err
		}
		now := s.now()
		b, err := json.Marshal(applyOps(current.Data, ops, now))
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		if err := tx.Model(&models.Document{}).
			Where("id = ?", id).
			Updates(map[string]any{"data": string(b), "updated_at": now}).Error; err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		return nil
	})
}

// Delete implements Store.
func (s *GormStore) Delete(ctx context.Context, collection, id string) error {
	if err := s.db.WithContext(ctx).
		Where("id = ? AND collection = ?", id, collection).
		Delete(&models.Document{}).Error; err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func decodeRow(row models.Document) (Document, error) {
	data := Data{}
	if row.Data != "" {
		if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
			return Document{}, fmt.Errorf("decode document %s: %w", row.ID, err)
		}
	}
	return Document{ID: row.ID, Data: data}, nil
}
