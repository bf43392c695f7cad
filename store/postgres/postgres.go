// Package postgres persists conversation snapshots in PostgreSQL through
// GORM. Each conversation key maps to one row holding the snapshot as JSONB,
// so a save is a single upsert and stays atomic per key.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hupe1980/dialogmesh/core"
)

// conversationRow is the GORM model backing the store.
type conversationRow struct {
	Key   string `gorm:"type:varchar(255);primaryKey"`
	State []byte `gorm:"type:jsonb;not null"`
}

// TableName overrides the default naming so the table reads naturally.
func (conversationRow) TableName() string { return "conversations" }

// Store implements core.ConversationStore on PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New connects to PostgreSQL with the given DSN and migrates the schema.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB builds a store from an existing GORM handle, migrating the
// schema. Useful when the application manages the connection pool itself.
func NewFromDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&conversationRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

var _ core.ConversationStore = (*Store)(nil)

// Load implements core.ConversationStore.
func (s *Store) Load(ctx context.Context, key string) (*core.ConversationState, error) {
	var row conversationRow

	err := s.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("load conversation %q: %w", key, err)
	}

	var state core.ConversationState
	if err := json.Unmarshal(row.State, &state); err != nil {
		return nil, fmt.Errorf("decode conversation %q: %w", key, err)
	}

	return &state, nil
}

// Save implements core.ConversationStore.
func (s *Store) Save(ctx context.Context, key string, state *core.ConversationState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode conversation %q: %w", key, err)
	}

	row := conversationRow{Key: key, State: raw}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save conversation %q: %w", key, err)
	}

	return nil
}

// Delete implements core.ConversationStore.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&conversationRow{}).Error
	if err != nil {
		return fmt.Errorf("delete conversation %q: %w", key, err)
	}

	return nil
}
