package training

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formazing-backend/internal/model"
)

func TestParseRange(t *testing.T) {
	for in, want := range map[string]Range{
		"":           RangeToday,
		"today":      RangeToday,
		"/oggi":      RangeToday,
		"Tomorrow":   RangeTomorrow,
		"domani":     RangeTomorrow,
		"week":       RangeWeek,
		"/settimana": RangeWeek,
	} {
		got, err := ParseRange(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseRange("month")
	assert.Error(t, err)
}

func TestRangeWindow(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	// Thursday.
	now := time.Date(2024, 10, 17, 18, 45, 0, 0, loc)

	from, to := RangeToday.Window(now)
	assert.Equal(t, time.Date(2024, 10, 17, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2024, 10, 18, 0, 0, 0, 0, loc), to)

	from, to = RangeTomorrow.Window(now)
	assert.Equal(t, time.Date(2024, 10, 18, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2024, 10, 19, 0, 0, 0, 0, loc), to)

	from, to = RangeWeek.Window(now)
	assert.Equal(t, time.Date(2024, 10, 14, 0, 0, 0, 0, loc), from)
	assert.Equal(t, time.Date(2024, 10, 21, 0, 0, 0, 0, loc), to)

	// Sunday still belongs to the week that started on Monday.
	from, _ = RangeWeek.Window(time.Date(2024, 10, 20, 9, 0, 0, 0, loc))
	assert.Equal(t, time.Date(2024, 10, 14, 0, 0, 0, 0, loc), from)
}

func TestAgenda(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	at := func(day, hour int) time.Time { return time.Date(2024, 10, day, hour, 0, 0, 0, loc) }

	a := calendarized("a", []string{"IT"}, "IT-A-2024-ONCE-01")
	a.ScheduledAt = at(16, 14)
	b := calendarized("b", []string{"HR"}, "HR-B-2024-ONCE-02")
	b.ScheduledAt = at(14, 9)
	c := calendarized("c", []string{"IT"}, "IT-C-2024-ONCE-03")
	c.ScheduledAt = at(16, 10)
	nextWeek := calendarized("d", []string{"IT"}, "IT-D-2024-ONCE-04")
	nextWeek.ScheduledAt = at(22, 10)
	pending := scheduled("e", "Pending", []string{"IT"}, "")
	pending.ScheduledAt = at(14, 11)

	// The harness clock is Monday 14 October 2024.
	h := newHarness(t, a, b, c, nextWeek, pending)
	ctx := context.Background()

	days, err := h.svc.Agenda(ctx, RangeWeek)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "14/10/2024", days[0].Date)
	assert.Equal(t, "Lunedì", days[0].Weekday)
	assert.Equal(t, []string{"b"}, ids(days[0].Trainings))
	assert.Equal(t, "16/10/2024", days[1].Date)
	assert.Equal(t, []string{"c", "a"}, ids(days[1].Trainings))

	days, err = h.svc.Agenda(ctx, RangeTomorrow)
	require.NoError(t, err)
	assert.Empty(t, days)

	days, err = h.svc.Agenda(ctx, RangeToday)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, []string{"b"}, ids(days[0].Trainings))
}

func ids(ts []model.Training) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}
