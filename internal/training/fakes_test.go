package training

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"formazing-backend/config"
	"formazing-backend/internal/model"
	"formazing-backend/internal/notify"
	"formazing-backend/internal/store"
)

type fakeStore struct {
	mu        sync.Mutex
	records   map[string]model.Training
	updates   []model.TrainingUpdate
	updateErr error
	// getErrAfter makes every Get after the first n calls fail.
	getErrAfter int
	getCalls    int
}

func newFakeStore(ts ...model.Training) *fakeStore {
	s := &fakeStore{records: map[string]model.Training{}, getErrAfter: -1}
	for _, t := range ts {
		s.records[t.ID] = t
	}
	return s
}

func (s *fakeStore) ListByStatus(_ context.Context, status model.Status) ([]model.Training, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Training
	for _, t := range s.records {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*model.Training, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErrAfter >= 0 && s.getCalls > s.getErrAfter {
		return nil, errors.New("store unavailable")
	}
	t, ok := s.records[id]
	if !ok {
		return nil, model.ErrTrainingNotFound
	}
	return &t, nil
}

func (s *fakeStore) Update(_ context.Context, id string, u model.TrainingUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, u)
	s.records[id] = u.Apply(s.records[id])
	return nil
}

func (s *fakeStore) record(id string) model.Training {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

func (s *fakeStore) updateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

type fakeCalendar struct {
	mu    sync.Mutex
	err   error
	calls int
	codes []string
}

func (c *fakeCalendar) CreateEvent(_ context.Context, t *model.Training) (*model.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	c.codes = append(c.codes, t.Code)
	return &model.CalendarEvent{
		ID:             "evt-" + t.ID,
		MeetingLink:    "https://teams.example/join/" + t.ID,
		CalendarLink:   "https://outlook.example/" + t.ID,
		NotifiedEmails: c.Attendees(t.Areas),
	}, nil
}

func (c *fakeCalendar) Attendees(areas []string) []string {
	out := make([]string, 0, len(areas))
	for _, a := range areas {
		out = append(out, a+"@example.org")
	}
	return out
}

func (c *fakeCalendar) Subject(t *model.Training) (string, error) { return "Formazione: " + t.Name, nil }
func (c *fakeCalendar) Body(t *model.Training) (string, error)    { return "Codice: " + t.Code, nil }

func (c *fakeCalendar) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeMessenger struct {
	mu   sync.Mutex
	fail map[string]bool
	sent map[string]string
}

func newFakeMessenger(failing ...string) *fakeMessenger {
	m := &fakeMessenger{fail: map[string]bool{}, sent: map[string]string{}}
	for _, k := range failing {
		m.fail[k] = true
	}
	return m
}

func (m *fakeMessenger) Send(_ context.Context, target model.Target, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[target.Key] {
		return errors.New("chat not found")
	}
	m.sent[target.Key] = text
	return nil
}

func (m *fakeMessenger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeJournal struct {
	mu   sync.Mutex
	runs []model.WorkflowRun
}

func (j *fakeJournal) Record(_ context.Context, run *model.WorkflowRun) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs = append(j.runs, *run)
	return nil
}

func (j *fakeJournal) last() model.WorkflowRun {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs[len(j.runs)-1]
}

var standardAreas = []string{"IT", "R&D", "HR", "Legale", "Commerciale", "Marketing"}

type harness struct {
	svc       *Service
	store     *fakeStore
	calendar  *fakeCalendar
	messenger *fakeMessenger
	counter   *store.MemoryCounter
	journal   *fakeJournal
	logs      *logtest.Hook
}

func newHarness(t *testing.T, records ...model.Training) *harness {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	h := &harness{
		store:     newFakeStore(records...),
		calendar:  &fakeCalendar{},
		messenger: newFakeMessenger(),
		counter:   store.NewMemoryCounter(0),
		journal:   &fakeJournal{},
		logs:      hook,
	}
	groups := map[string]model.Target{
		model.MainGroup: {ChatID: "-100"},
		"IT":            {ChatID: "-101"},
		"R&D":           {ChatID: "-102"},
		"HR":            {ChatID: "-103", TopicID: 7},
	}
	cfg := &config.TrainingConfig{
		Timezone:          "Europe/Rome",
		StandardAreas:     standardAreas,
		FeedbackLink:      "https://forms.example/feedback",
		FanoutConcurrency: 4,
	}
	h.svc = New(Deps{
		Store:     h.store,
		Calendar:  h.calendar,
		Messenger: h.messenger,
		Counter:   h.counter,
		Journal:   h.journal,
		Resolver:  notify.NewResolver(groups, standardAreas, logger),
		Formatter: notify.NewFormatter(notify.DefaultTemplates, logger),
	}, cfg, logger, WithClock(func() time.Time {
		return time.Date(2024, 10, 14, 8, 0, 0, 0, time.UTC)
	}))
	return h
}

func scheduled(id, name string, areas []string, period string) model.Training {
	return model.Training{
		ID:          id,
		Name:        name,
		Areas:       areas,
		ScheduledAt: time.Date(2024, 10, 15, 14, 30, 0, 0, time.UTC),
		Status:      model.StatusScheduled,
		Period:      period,
	}
}

func (s *Service) heldLocks() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}
