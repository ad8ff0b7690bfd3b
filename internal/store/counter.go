package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"formazing-backend/internal/model"
)

// GormCounter is a durable sequence counter stored in one row of sequence_counters.
//
// Next increments the row with a single UPDATE inside a transaction, so two
// processes sharing the database never observe the same value; the mutex only
// keeps concurrent callers of this process from contending on the row lock.
type GormCounter struct {
	db   *gorm.DB
	name string
	mu   sync.Mutex
}

// NewGormCounter creates a counter backed by the row with the given name.
func NewGormCounter(db *gorm.DB, name string) *GormCounter {
	return &GormCounter{db: db, name: name}
}

// Peek returns the value the next call to Next would return, without incrementing.
func (c *GormCounter) Peek(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var row model.SequenceCounter
	err := c.db.WithContext(ctx).Where("name = ?", c.name).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %q: %w", c.name, err)
	}
	return row.Value + 1, nil
}

// Next increments the counter and returns the new value.
func (c *GormCounter) Next(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var row model.SequenceCounter
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&model.SequenceCounter{Name: c.name, Value: 0}).Error; err != nil {
			return fmt.Errorf("failed to initialise counter: %w", err)
		}

		if err := tx.Model(&model.SequenceCounter{}).
			Where("name = ?", c.name).
			Update("value", gorm.Expr("value + ?", 1)).Error; err != nil {
			return fmt.Errorf("failed to increment counter: %w", err)
		}

		return tx.Where("name = ?", c.name).First(&row).Error
	})
	if err != nil {
		return 0, fmt.Errorf("counter %q: %w", c.name, err)
	}
	return row.Value, nil
}

// MemoryCounter is a process-local counter for tests and dry runs.
type MemoryCounter struct {
	mu    sync.Mutex
	value int64
}

// NewMemoryCounter creates a counter whose next value is start+1.
func NewMemoryCounter(start int64) *MemoryCounter {
	return &MemoryCounter{value: start}
}

// Peek returns the next value without incrementing.
func (c *MemoryCounter) Peek(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value + 1, nil
}

// Next increments the counter and returns the new value.
func (c *MemoryCounter) Next(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value++
	return c.value, nil
}

// Value returns the last value handed out.
func (c *MemoryCounter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}
