package training

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"formazing-backend/internal/model"
	"formazing-backend/internal/parse"
)

// Range is an agenda window relative to today.
type Range string

const (
	RangeToday    Range = "today"
	RangeTomorrow Range = "tomorrow"
	RangeWeek     Range = "week"
)

// ParseRange accepts the English names and the Italian bot commands.
func ParseRange(s string) (Range, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "/")) {
	case "", "today", "oggi":
		return RangeToday, nil
	case "tomorrow", "domani":
		return RangeTomorrow, nil
	case "week", "settimana":
		return RangeWeek, nil
	}
	return "", fmt.Errorf("unknown agenda range %q", s)
}

// Window returns the half-open interval [from, to) covered by r on the day of now.
// A week runs Monday to Sunday.
func (r Range) Window(now time.Time) (from, to time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch r {
	case RangeTomorrow:
		from = today.AddDate(0, 0, 1)
		return from, from.AddDate(0, 0, 1)
	case RangeWeek:
		offset := (int(today.Weekday()) + 6) % 7
		from = today.AddDate(0, 0, -offset)
		return from, from.AddDate(0, 0, 7)
	default:
		return today, today.AddDate(0, 0, 1)
	}
}

// AgendaDay groups the trainings of one calendar day.
type AgendaDay struct {
	Date      string           `json:"date"`
	Weekday   string           `json:"weekday"`
	Trainings []model.Training `json:"trainings"`
}

// Agenda lists the Calendarized trainings in the window, grouped by day.
func (s *Service) Agenda(ctx context.Context, r Range) ([]AgendaDay, error) {
	from, to := r.Window(s.now().In(s.loc))

	trainings, err := s.List(ctx, model.StatusCalendarized)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(trainings, func(i, j int) bool {
		return trainings[i].ScheduledAt.Before(trainings[j].ScheduledAt)
	})

	days := []AgendaDay{}
	for _, t := range trainings {
		at := t.ScheduledAt.In(s.loc)
		if at.Before(from) || !at.Before(to) {
			continue
		}
		date := parse.ShortDate(at)
		if n := len(days); n == 0 || days[n-1].Date != date {
			days = append(days, AgendaDay{Date: date, Weekday: parse.Weekday(at)})
		}
		days[len(days)-1].Trainings = append(days[len(days)-1].Trainings, t)
	}
	return days, nil
}
