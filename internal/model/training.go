package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrTrainingNotFound is returned by the record store when a training does not exist
// or cannot be translated into a Training.
var ErrTrainingNotFound = errors.New("training not found")

// Status is the lifecycle state of a training record.
type Status string

const (
	StatusScheduled    Status = "Programmata"
	StatusCalendarized Status = "Calendarizzata"
	StatusConcluded    Status = "Conclusa"
)

// ParseStatus maps a store status name, or its English alias, to a Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "programmata", "scheduled":
		return StatusScheduled, nil
	case "calendarizzata", "calendarized":
		return StatusCalendarized, nil
	case "conclusa", "concluded":
		return StatusConcluded, nil
	}
	return "", fmt.Errorf("unknown training status %q", s)
}

// Next returns the only status a record may move to from s.
func (s Status) Next() (Status, bool) {
	switch s {
	case StatusScheduled:
		return StatusCalendarized, true
	case StatusCalendarized:
		return StatusConcluded, true
	}
	return "", false
}

const (
	// AreaAll targets every standard area group.
	AreaAll = "All"
	// PeriodOut marks trainings delivered outside the company; they are never announced.
	PeriodOut = "OUT"
	// MainGroup is the key of the broadcast messaging group.
	MainGroup = "main_group"
)

// Training is a normalized training record.
type Training struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Areas       []string  `json:"areas"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Status      Status    `json:"status"`
	Code        string    `json:"code"`
	MeetingLink string    `json:"meeting_link"`
	Period      string    `json:"period"`
}

// PrimaryArea is the first area tag, used as the code prefix.
func (t *Training) PrimaryArea() string {
	if len(t.Areas) == 0 {
		return "IT"
	}
	return t.Areas[0]
}

// NormalizeAreas trims, de-duplicates and canonicalizes the All sentinel,
// preserving the first-seen order. Empty tags are dropped.
func NormalizeAreas(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if strings.EqualFold(a, AreaAll) {
			a = AreaAll
		}
		if seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}

// TrainingUpdate is a partial write. Nil fields are left untouched.
type TrainingUpdate struct {
	Status      *Status
	Code        *string
	MeetingLink *string
}

// Apply returns a copy of t with the update applied.
func (u TrainingUpdate) Apply(t Training) Training {
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Code != nil {
		t.Code = *u.Code
	}
	if u.MeetingLink != nil {
		t.MeetingLink = *u.MeetingLink
	}
	return t
}

// Target is a resolved messaging destination.
type Target struct {
	Key     string `json:"key"`
	ChatID  string `json:"chat_id"`
	TopicID int64  `json:"topic_id,omitempty"`
}

// CalendarEvent is the outcome of a calendar event creation.
type CalendarEvent struct {
	ID             string   `json:"event_id"`
	MeetingLink    string   `json:"meeting_link"`
	CalendarLink   string   `json:"calendar_link"`
	NotifiedEmails []string `json:"notified_emails"`
}
