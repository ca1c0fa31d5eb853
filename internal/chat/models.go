package chat

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one persisted chat turn. Text is written once, in full; only the
// in-memory copy of an assistant message changes while it is being revealed.
type Message struct {
	ID        string    `gorm:"primaryKey;size:26" json:"id"`
	SessionID string    `gorm:"type:varchar(64);not null;index:idx_chat_msg_session_ts,priority:1" json:"session_id"`
	Sender    Sender    `gorm:"type:varchar(16);not null" json:"sender"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Timestamp time.Time `gorm:"not null;index:idx_chat_msg_session_ts,priority:2" json:"timestamp"`
}

func (Message) TableName() string { return "chat_messages" }

type EventKind string

const (
	EventMessageCreated EventKind = "message_created"
	EventSessionCleared EventKind = "session_cleared"
)

// Event is published for every stored message and every clear, and recorded
// by the worker into an audit table.
type Event struct {
	ID         string    `gorm:"primaryKey;size:26" json:"id"`
	Kind       EventKind `gorm:"type:varchar(32);index;not null" json:"kind"`
	SessionID  string    `gorm:"type:varchar(64);index;not null" json:"session_id"`
	MessageID  *string   `gorm:"size:26" json:"message_id,omitempty"`
	Sender     Sender    `gorm:"type:varchar(16)" json:"sender,omitempty"`
	Topic      string    `gorm:"type:varchar(32);index" json:"topic,omitempty"`
	Language   string    `gorm:"type:varchar(8)" json:"language,omitempty"`
	Deleted    int64     `json:"deleted,omitempty"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
}

func (Event) TableName() string { return "chat_events" }
