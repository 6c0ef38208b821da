// Package localstore is the durable device-local key-value store backing the
// offline cache and the pending-operation queue. It must survive process
// restarts and never touch the network, so it lives in a single SQLite file.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Well-known namespaces
const (
	KeyCachedProducts  = "cachedProducts"
	KeyCachedClients   = "cachedClients"
	KeyCachedSales     = "cachedSales"
	KeyCachedSettings  = "cachedSettings"
	KeyOfflineQueue    = "offlineQueue"
	KeySuspendedSales  = "localSuspendedSales"
	KeyDeadLetterQueue = "deadLetterQueue"
)

type record struct {
	Key       string `gorm:"primaryKey;type:varchar(64)"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (record) TableName() string {
	return "kv"
}

// Store is a JSON blob store over a local SQLite file. All methods are safe
// for concurrent use; multi-key mutations go through Update so the cache
// write and the queue append land in one durable transaction.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the store at path. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	return &Store{db: db}, nil
}

// Get unmarshals the value stored under key into out. It returns false with
// a nil error when the key has never been written, so callers can fall back
// to their zero/default value.
func (s *Store) Get(key string, out interface{}) (bool, error) {
	var rec record
	err := s.db.First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %q: %w", key, err)
	}
	if err := json.Unmarshal(rec.Value, out); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

// Set marshals v and writes it under key, replacing any previous value
func (s *Store) Set(key string, v interface{}) error {
	return set(s.db, key, v)
}

// Delete removes key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	return s.db.Delete(&record{}, "key = ?", key).Error
}

// Update runs fn inside a single SQLite transaction. Every Set performed
// through the passed Tx is atomic with the rest, which keeps the optimistic
// cache mutation and the queue append from ever diverging after a crash.
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.db.Transaction(func(txdb *gorm.DB) error {
		return fn(&Tx{db: txdb})
	})
}

// Tx is the transactional view handed to Update callbacks
type Tx struct {
	db *gorm.DB
}

func (t *Tx) Get(key string, out interface{}) (bool, error) {
	var rec record
	err := t.db.First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %q: %w", key, err)
	}
	if err := json.Unmarshal(rec.Value, out); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (t *Tx) Set(key string, v interface{}) error {
	return set(t.db, key, v)
}

func set(db *gorm.DB, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	rec := record{Key: key, Value: data, UpdatedAt: time.Now()}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}
