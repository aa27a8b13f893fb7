package repository

import (
	"context"
	"time"

	authui "github.com/goliatone/go-authui"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityModel is the Bun model for auth activity records.
type ActivityModel struct {
	bun.BaseModel `bun:"table:auth_activity"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid"`
	EventType  string         `bun:"event_type,notnull"`
	UserID     string         `bun:"user_id"`
	Email      string         `bun:"email"`
	Metadata   map[string]any `bun:"metadata,type:jsonb"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
}

// ActivityStore persists auth events and implements authui.ActivitySink.
type ActivityStore struct {
	db *bun.DB
}

var _ authui.ActivitySink = (*ActivityStore)(nil)

func NewActivityStore(db *bun.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// CreateTable creates the activity table when missing.
func (s *ActivityStore) CreateTable(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*ActivityModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Record implements authui.ActivitySink.
func (s *ActivityStore) Record(ctx context.Context, event authui.ActivityEvent) error {
	model := fromActivityEvent(event)
	_, err := s.db.NewInsert().Model(model).Exec(ctx)
	return err
}

// ListByEmail returns the most recent events for email, newest first.
func (s *ActivityStore) ListByEmail(ctx context.Context, email string, limit int) ([]authui.ActivityEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var models []ActivityModel
	err := s.db.NewSelect().
		Model(&models).
		Where("email = ?", email).
		OrderExpr("occurred_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]authui.ActivityEvent, len(models))
	for i, m := range models {
		events[i] = toActivityEvent(&m)
	}
	return events, nil
}

func fromActivityEvent(e authui.ActivityEvent) *ActivityModel {
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	metadata := map[string]any{}
	for k, v := range e.Metadata {
		metadata[k] = v
	}

	return &ActivityModel{
		ID:         uuid.New(),
		EventType:  string(e.EventType),
		UserID:     e.UserID,
		Email:      e.Email,
		Metadata:   metadata,
		OccurredAt: occurred.UTC(),
	}
}

func toActivityEvent(m *ActivityModel) authui.ActivityEvent {
	return authui.ActivityEvent{
		EventType:  authui.ActivityEventType(m.EventType),
		UserID:     m.UserID,
		Email:      m.Email,
		Metadata:   m.Metadata,
		OccurredAt: m.OccurredAt,
	}
}
