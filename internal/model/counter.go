package model

import "time"

// SequenceCounter is a named, monotonically increasing counter row.
type SequenceCounter struct {
	Name      string `gorm:"primaryKey;size:64"`
	Value     int64  `gorm:"not null"`
	UpdatedAt time.Time
}
