package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alkholigroup2020/stock-management-system-sub004/config"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRecord is the transactional outbox: the record is written inside
// the caller's DB transaction, and publishing to Pub/Sub happens asynchronously
// after commit via the outbox dispatcher.
type NotificationRecord struct {
	ID         int       `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	Event      string    `gorm:"size:50;not null;index" json:"event"`
	EntityType string    `gorm:"size:50;not null" json:"entity_type"`
	EntityId   string    `gorm:"size:64;not null;index" json:"entity_id"`
	OccurredAt time.Time `gorm:"index;not null" json:"occurred_at"`
	Payload    []byte    `gorm:"type:blob" json:"payload"`
	// Publish metadata (publish happens after commit via dispatcher).
	PublishStatus    string     `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publish_status"` // PENDING|PROCESSING|SENT|FAILED|DEAD
	PublishedAt      *time.Time `gorm:"index" json:"published_at"`
	PubSubMessageId  *string    `gorm:"size:255" json:"pubsub_message_id"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time `gorm:"index" json:"locked_at"`
	LockedBy         *string    `gorm:"size:100" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string     `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func ConvertToNotifyMessage(record NotificationRecord) config.NotifyMessage {
	return config.NotifyMessage{
		ID:            record.ID,
		Event:         record.Event,
		EntityType:    record.EntityType,
		EntityId:      record.EntityId,
		OccurredAt:    record.OccurredAt,
		Payload:       record.Payload,
		CorrelationId: record.CorrelationId,
	}
}

// QueueNotification writes an outbox record inside the caller's transaction.
// payload is marshalled as-is; nil payloads are stored empty.
func QueueNotification(ctx context.Context, tx *gorm.DB, event string, entityType string, entityId string, payload interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return err
		}
	}

	record := NotificationRecord{
		Event:         event,
		EntityType:    entityType,
		EntityId:      entityId,
		OccurredAt:    time.Now().UTC(),
		Payload:       body,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
