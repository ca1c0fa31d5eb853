package chat

import (
	"context"
	"time"

	"github.com/suPer8Hu/profile-assistant/internal/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Insert stores m and assigns its ID (and Timestamp when unset).
func (r *Repo) Insert(ctx context.Context, m *Message) (string, error) {
	if m.ID == "" {
		id, err := common.NewULID()
		if err != nil {
			return "", err
		}
		m.ID = id
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		m.ID = ""
		return "", err
	}
	return m.ID, nil
}

// ListBySession returns the full session history, oldest first.
func (r *Repo) ListBySession(ctx context.Context, sessionID string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// DeleteBySession removes every message of the session and reports how many went.
func (r *Repo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&Message{})
	return res.RowsAffected, res.Error
}

// RecordEvent stores e once; redelivered events are ignored.
func (r *Repo) RecordEvent(ctx context.Context, e *Event) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(e).Error
}

func (r *Repo) ListEvents(ctx context.Context, sessionID string) ([]Event, error) {
	var evs []Event
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("occurred_at ASC").
		Order("id ASC").
		Find(&evs).Error; err != nil {
		return nil, err
	}
	return evs, nil
}
