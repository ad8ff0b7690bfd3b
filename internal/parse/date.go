package parse

import (
	"fmt"
	"strings"
	"time"
)

// Notion sends date-only values for all-day entries; those start at this hour.
const defaultStartHour = 9

const (
	dateOnlyLayout  = "2006-01-02"
	localISOLayout  = "2006-01-02T15:04:05"
	shortLayout     = "02/01/2006 15:04"
	shortDateLayout = "02/01/2006"
)

var (
	weekdays = [...]string{"Domenica", "Lunedì", "Martedì", "Mercoledì", "Giovedì", "Venerdì", "Sabato"}
	months   = [...]string{"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
		"Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre"}
)

// NotionDate parses the start of a Notion date property into loc, truncated to the minute.
func NotionDate(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if loc == nil {
		loc = time.UTC
	}

	if !strings.Contains(s, "T") {
		d, err := time.ParseInLocation(dateOnlyLayout, s, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("unable to parse date %q: %w", raw, err)
		}
		return time.Date(d.Year(), d.Month(), d.Day(), defaultStartHour, 0, 0, 0, loc), nil
	}

	// Offset-carrying timestamps first, then naive local ones.
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc).Truncate(time.Minute), nil
	}
	t, err := time.ParseInLocation(localISOLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse datetime %q: %w", raw, err)
	}
	return t.Truncate(time.Minute), nil
}

// Short formats t as dd/mm/yyyy HH:MM, or "" for the zero time.
func Short(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(shortLayout)
}

// ShortDate formats t as dd/mm/yyyy.
func ShortDate(t time.Time) string {
	return t.Format(shortDateLayout)
}

// Weekday returns the Italian weekday name.
func Weekday(t time.Time) string {
	return weekdays[t.Weekday()]
}

// Long formats t the way calendar invitations show it, e.g. "Lunedì 15 Gennaio 2024 - 14:30".
func Long(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s %d %s %d - %s", Weekday(t), t.Day(), months[t.Month()-1], t.Year(), t.Format("15:04"))
}
