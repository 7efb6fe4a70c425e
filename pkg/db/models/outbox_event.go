package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/withmetravel/withme-backend/pkg/enums"
)

// OutboxEvent is an append-only change record drained by the outbox publisher.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:text;not null" json:"event_type"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:text;not null" json:"aggregate_type"`
	AggregateID   uuid.UUID                 `gorm:"column:aggregate_id;type:uuid;not null" json:"aggregate_id"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	PublishedAt   *time.Time                `gorm:"column:published_at" json:"published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0" json:"attempt_count"`
	LastError     *string                   `gorm:"column:last_error;type:text" json:"last_error"`
}
