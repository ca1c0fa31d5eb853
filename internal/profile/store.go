package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultKey is the singleton key the profile is stored under.
const DefaultKey = "profile"

var ErrNotFound = errors.New("profile not found")

// Document is the persisted form of a Record: one JSON blob per key.
type Document struct {
	Key       string    `gorm:"column:doc_key;primaryKey;type:varchar(64)"`
	Body      string    `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Document) TableName() string { return "profile_documents" }

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	var doc Document
	if err := s.db.WithContext(ctx).First(&doc, "doc_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(doc.Body), &rec); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", key, err)
	}
	return &rec, nil
}

// Put upserts the record under key. Only the seeding tool writes profiles.
func (s *Store) Put(ctx context.Context, key string, rec *Record) error {
	if rec == nil {
		return errors.New("profile: nil record")
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	doc := Document{Key: key, Body: string(b), UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&doc).Error
}
