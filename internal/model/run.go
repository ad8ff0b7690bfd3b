package model

import "time"

// RunKind identifies which workflow produced a run.
type RunKind string

const (
	RunNotification RunKind = "notification"
	RunFeedback     RunKind = "feedback"
)

// RunOutcome is the final state of a workflow run.
type RunOutcome string

const (
	OutcomeSucceeded RunOutcome = "succeeded"
	OutcomeFailed    RunOutcome = "failed"
	// OutcomeInconsistent marks a calendar event that exists while the store write failed.
	OutcomeInconsistent RunOutcome = "inconsistent"
)

// WorkflowRun is the journal entry of one real workflow execution.
type WorkflowRun struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	TrainingID string          `gorm:"index;size:64;not null" json:"training_id"`
	Kind       RunKind         `gorm:"size:32;not null" json:"kind"`
	Outcome    RunOutcome      `gorm:"size:32;not null" json:"outcome"`
	Code       string          `gorm:"size:255" json:"code,omitempty"`
	EventID    string          `gorm:"size:255" json:"event_id,omitempty"`
	Results    map[string]bool `gorm:"serializer:json" json:"results,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `gorm:"not null" json:"started_at"`
	FinishedAt time.Time       `gorm:"not null;index" json:"finished_at"`
}
