// Package audit records who changed what through the admin panel.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Entry is one recorded admin action.
type Entry struct {
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id,omitempty"`
	Detail   map[string]any `json:"detail,omitempty"`
	At       time.Time      `json:"at"`
}

// Recorder persists audit entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

type entryModel struct {
	ID        uint   `gorm:"primaryKey"`
	Actor     string `gorm:"not null;index"`
	Action    string `gorm:"not null"`
	Entity    string `gorm:"not null;index"`
	EntityID  string
	Detail    datatypes.JSON
	CreatedAt time.Time `gorm:"not null;index"`
}

func (entryModel) TableName() string { return "panel_audit_log" }

// GormRecorder stores entries in Postgres.
type GormRecorder struct {
	db *gorm.DB
}

// NewGormRecorder connects and migrates the audit table.
func NewGormRecorder(databaseURL string) (*GormRecorder, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := db.AutoMigrate(&entryModel{}); err != nil {
		return nil, fmt.Errorf("migrate audit table: %w", err)
	}
	return &GormRecorder{db: db}, nil
}

func (r *GormRecorder) Record(ctx context.Context, e Entry) error {
	detail := datatypes.JSON(nil)
	if len(e.Detail) > 0 {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("encode audit detail: %w", err)
		}
		detail = datatypes.JSON(data)
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	model := entryModel{
		Actor:     e.Actor,
		Action:    e.Action,
		Entity:    e.Entity,
		EntityID:  e.EntityID,
		Detail:    detail,
		CreatedAt: at,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *GormRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []entryModel
	if err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(models))
	for _, m := range models {
		entry := Entry{
			Actor:    m.Actor,
			Action:   m.Action,
			Entity:   m.Entity,
			EntityID: m.EntityID,
			At:       m.CreatedAt,
		}
		if len(m.Detail) > 0 {
			_ = json.Unmarshal(m.Detail, &entry.Detail)
		}
		out = append(out, entry)
	}
	return out, nil
}

// MemoryRecorder keeps entries in-process, used in tests and when no audit
// database is configured.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *MemoryRecorder) Recent(_ context.Context, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 || limit > len(r.entries) {
		limit = len(r.entries)
	}
	out := make([]Entry, 0, limit)
	for i := len(r.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}
