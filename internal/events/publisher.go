// Package events publishes record lifecycle messages to Kafka. Publishing is
// strictly best-effort: the store logs failures and local state is never
// affected by the outcome.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/fitlog/internal/domain"
)

// Topic carries all record lifecycle events, keyed by user id so one user's
// events stay ordered.
const Topic = "exercise_record_events"

// RecordLogged is emitted when a record is accepted (remotely persisted).
type RecordLogged struct {
	RecordID  string    `json:"record_id"`
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"`
	Type      string    `json:"type"`
	Minutes   int       `json:"minutes"`
	Intensity int       `json:"intensity"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordUpdated is emitted after a successful remote update.
type RecordUpdated struct {
	RecordID string `json:"record_id"`
	UserID   string `json:"user_id"`
	Date     string `json:"date"`
	Minutes  int    `json:"minutes"`
}

// RecordDeleted is emitted after a successful remote delete.
type RecordDeleted struct {
	RecordID string `json:"record_id"`
	UserID   string `json:"user_id"`
}

// Publisher lazily manages a Kafka writer for the record events topic.
type Publisher struct {
	brokers []string

	mu     sync.Mutex
	writer *kafka.Writer
}

// NewPublisher creates a Publisher.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{brokers: brokers}
}

// RecordLogged publishes a record.logged event.
func (p *Publisher) RecordLogged(ctx context.Context, userID string, rec domain.Record) error {
	return p.publish(ctx, "record.logged", userID, RecordLogged{
		RecordID:  rec.ID,
		UserID:    userID,
		Date:      rec.Date,
		Type:      rec.Type,
		Minutes:   rec.Minutes,
		Intensity: int(rec.Intensity),
		CreatedAt: rec.CreatedAt,
	})
}

// RecordUpdated publishes a record.updated event.
func (p *Publisher) RecordUpdated(ctx context.Context, userID string, rec domain.Record) error {
	return p.publish(ctx, "record.updated", userID, RecordUpdated{
		RecordID: rec.ID,
		UserID:   userID,
		Date:     rec.Date,
		Minutes:  rec.Minutes,
	})
}

// RecordDeleted publishes a record.deleted event.
func (p *Publisher) RecordDeleted(ctx context.Context, userID, id string) error {
	return p.publish(ctx, "record.deleted", userID, RecordDeleted{
		RecordID: id,
		UserID:   userID,
	})
}

func (p *Publisher) publish(ctx context.Context, eventType, userID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(userID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	return p.getWriter().WriteMessages(ctx, msg)
}

func (p *Publisher) getWriter() *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(p.brokers...),
			Topic:        Topic,
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		}
	}
	return p.writer
}

// Close releases the writer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writer == nil {
		return nil
	}
	err := p.writer.Close()
	p.writer = nil
	return err
}
