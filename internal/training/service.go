package training

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"formazing-backend/config"
	"formazing-backend/internal/model"
	"formazing-backend/internal/notify"
)

// RecordStore is the system of record for trainings.
type RecordStore interface {
	ListByStatus(ctx context.Context, status model.Status) ([]model.Training, error)
	Get(ctx context.Context, id string) (*model.Training, error)
	Update(ctx context.Context, id string, u model.TrainingUpdate) error
}

// Calendar creates meetings and renders their invitation for previews.
type Calendar interface {
	CreateEvent(ctx context.Context, t *model.Training) (*model.CalendarEvent, error)
	Attendees(areas []string) []string
	Subject(t *model.Training) (string, error)
	Body(t *model.Training) (string, error)
}

// Messenger delivers one message to one target.
type Messenger interface {
	Send(ctx context.Context, target model.Target, text string) error
}

// Counter hands out code sequence numbers.
type Counter interface {
	Peek(ctx context.Context) (int64, error)
	Next(ctx context.Context) (int64, error)
}

// Journal records finished workflow runs.
type Journal interface {
	Record(ctx context.Context, run *model.WorkflowRun) error
}

// Deps are the collaborators of a Service.
type Deps struct {
	Store     RecordStore
	Calendar  Calendar
	Messenger Messenger
	Counter   Counter
	Journal   Journal
	Resolver  *notify.Resolver
	Formatter *notify.Formatter
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock, used for the code year and run timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs the two training workflows and their previews.
type Service struct {
	store     RecordStore
	calendar  Calendar
	messenger Messenger
	counter   Counter
	journal   Journal
	resolver  *notify.Resolver
	formatter *notify.Formatter

	feedbackLink string
	concurrency  int
	loc          *time.Location
	now          func() time.Time
	log          logrus.FieldLogger

	// One mutex per training id; runs on the same record never interleave.
	// An entry lives only while a run holds or waits for it.
	locksMu sync.Mutex
	locks   map[string]*recordLock
}

type recordLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a Service.
func New(deps Deps, cfg *config.TrainingConfig, log logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		store:        deps.Store,
		calendar:     deps.Calendar,
		messenger:    deps.Messenger,
		counter:      deps.Counter,
		journal:      deps.Journal,
		resolver:     deps.Resolver,
		formatter:    deps.Formatter,
		feedbackLink: cfg.FeedbackLink,
		concurrency:  cfg.FanoutConcurrency,
		loc:          cfg.Location(),
		now:          time.Now,
		log:          log,
		locks:        make(map[string]*recordLock),
	}
	if s.concurrency <= 0 {
		s.concurrency = 1
	}
	if s.journal == nil {
		s.journal = nopJournal{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type nopJournal struct{}

func (nopJournal) Record(context.Context, *model.WorkflowRun) error { return nil }

// Message is a rendered message for one target.
type Message struct {
	Target string `json:"target"`
	Text   string `json:"text"`
}

// EmailPreview is the invitation the calendar would send.
type EmailPreview struct {
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
}

// NotificationPreview is the outcome of a dry run of the notify workflow.
type NotificationPreview struct {
	Training model.Training `json:"training"`
	Code     string         `json:"code"`
	Messages []Message      `json:"messages"`
	Email    EmailPreview   `json:"email"`
}

// NotificationResult is the outcome of the notify workflow.
type NotificationResult struct {
	RunID    string              `json:"run_id"`
	Training model.Training      `json:"training"`
	Code     string              `json:"code"`
	Event    model.CalendarEvent `json:"event"`
	Results  map[string]bool     `json:"results"`
}

// FeedbackPreview is the outcome of a dry run of the feedback workflow.
type FeedbackPreview struct {
	Training     model.Training `json:"training"`
	FeedbackLink string         `json:"feedback_link"`
	Messages     []Message      `json:"messages"`
}

// FeedbackResult is the outcome of the feedback workflow.
type FeedbackResult struct {
	RunID        string          `json:"run_id"`
	Training     model.Training  `json:"training"`
	FeedbackLink string          `json:"feedback_link"`
	Results      map[string]bool `json:"results"`
}

// List returns the trainings in the given status.
func (s *Service) List(ctx context.Context, status model.Status) ([]model.Training, error) {
	ts, err := s.store.ListByStatus(ctx, status)
	if err != nil {
		return nil, gatewayErr("store", "list", err)
	}
	return ts, nil
}

// PreviewNotification renders what SendNotification would do, without side effects.
// The counter is read but not incremented.
func (s *Service) PreviewNotification(ctx context.Context, id string) (*NotificationPreview, error) {
	t, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(t, model.StatusScheduled); err != nil {
		return nil, err
	}

	seq, err := s.counter.Peek(ctx)
	if err != nil {
		return nil, gatewayErr("counter", "peek", err)
	}
	projected := *t
	projected.Code = GenerateCode(t, seq, s.now().In(s.loc).Year())

	p := &NotificationPreview{
		Training: projected,
		Code:     projected.Code,
		Messages: []Message{},
		Email:    EmailPreview{Recipients: s.calendar.Attendees(t.Areas)},
	}
	for _, target := range s.resolver.Targets(&projected) {
		p.Messages = append(p.Messages, Message{Target: target.Key, Text: s.formatter.FormatTraining(&projected, target.Key)})
	}

	if p.Email.Subject, err = s.calendar.Subject(&projected); err != nil {
		s.log.WithError(err).WithField("training_id", id).Warn("failed to render invitation subject")
		p.Email.Subject = "Errore generazione preview"
	}
	if p.Email.Body, err = s.calendar.Body(&projected); err != nil {
		s.log.WithError(err).WithField("training_id", id).Warn("failed to render invitation body")
		p.Email.Body = "Errore generazione preview"
	}
	return p, nil
}

// SendNotification calendarizes a Scheduled training and announces it.
//
// The calendar event is created before anything is written: if it fails the
// record stays Scheduled and nothing is sent. The single store write of code,
// link and status is the commit point; send failures after it only show up as
// false entries in the result map.
func (s *Service) SendNotification(ctx context.Context, id string) (*NotificationResult, error) {
	unlock := s.lock(id)
	defer unlock()

	run := s.startRun(id, model.RunNotification)
	log := s.log.WithFields(logrus.Fields{"training_id": id, "run_id": run.ID})

	t, err := s.fetch(ctx, id)
	if err != nil {
		s.finish(ctx, run, model.OutcomeFailed, err)
		return nil, err
	}
	if err := requireStatus(t, model.StatusScheduled); err != nil {
		s.finish(ctx, run, model.OutcomeFailed, err)
		return nil, err
	}

	seq, err := s.counter.Next(ctx)
	if err != nil {
		err = gatewayErr("counter", "next", err)
		s.finish(ctx, run, model.OutcomeFailed, err)
		return nil, err
	}
	code := GenerateCode(t, seq, s.now().In(s.loc).Year())
	run.Code = code

	withCode := *t
	withCode.Code = code
	event, err := s.calendar.CreateEvent(ctx, &withCode)
	if err != nil {
		log.WithError(err).Error("calendar event creation failed; training left untouched")
		err = gatewayErr("calendar", "create_event", err)
		s.finish(ctx, run, model.OutcomeFailed, err)
		return nil, err
	}
	run.EventID = event.ID

	// The event exists from here on; a cancelled request must not abandon the run.
	ctx = context.WithoutCancel(ctx)

	status, _ := t.Status.Next()
	update := model.TrainingUpdate{Status: &status, Code: &code, MeetingLink: &event.MeetingLink}
	if err := s.store.Update(ctx, id, update); err != nil {
		log.WithError(err).WithField("event_id", event.ID).
			Error("calendar event created but training was not updated; reconcile manually")
		err = gatewayErr("store", "update", err)
		s.finish(ctx, run, model.OutcomeInconsistent, err)
		return nil, err
	}

	updated, err := s.store.Get(ctx, id)
	if err != nil || updated.Status != model.StatusCalendarized {
		log.WithError(err).Warn("re-fetch after update failed or is stale; using the committed values")
		applied := update.Apply(withCode)
		updated = &applied
	}

	results := s.fanOut(ctx, updated.ID, s.resolver.Targets(updated), func(target model.Target) string {
		return s.formatter.FormatTraining(updated, target.Key)
	})
	run.Results = results
	s.finish(ctx, run, model.OutcomeSucceeded, nil)

	log.WithFields(logrus.Fields{"code": code, "event_id": event.ID, "sent": countTrue(results), "targets": len(results)}).
		Info("training calendarized and notified")

	return &NotificationResult{
		RunID:    run.ID,
		Training: *updated,
		Code:     code,
		Event:    *event,
		Results:  results,
	}, nil
}

// PreviewFeedback renders the feedback requests without sending them.
func (s *Service) PreviewFeedback(ctx context.Context, id string) (*FeedbackPreview, error) {
	t, err := s.fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireFeedbackReady(t); err != nil {
		return nil, err
	}

	p := &FeedbackPreview{Training: *t, FeedbackLink: s.feedbackLink, Messages: []Message{}}
	for _, target := range s.resolver.FeedbackTargets(t) {
		p.Messages = append(p.Messages, Message{Target: target.Key, Text: s.formatter.FormatFeedback(t, s.feedbackLink, target.Key)})
	}
	return p, nil
}

// SendFeedback asks the area groups for feedback and concludes the training.
// The status moves to Concluded after sending, whatever the send outcome. When
// that write fails the result is returned together with the error.
func (s *Service) SendFeedback(ctx context.Context, id string) (*FeedbackResult, error) {
	unlock := s.lock(id)
	defer unlock()

	run := s.startRun(id, model.RunFeedback)
	log := s.log.WithFields(logrus.Fields{"training_id": id, "run_id": run.ID})

	t, err := s.fetch(ctx, id)
	if err != nil {
		s.finish(ctx, run, model.OutcomeFailed, err)
		return nil, err
	}
	if err := requireFeedbackReady(t); err != nil {
		s.finish(ctx, run, model.OutcomeFailed, err)
		return nil, err
	}
	run.Code = t.Code

	ctx = context.WithoutCancel(ctx)

	results := s.fanOut(ctx, t.ID, s.resolver.FeedbackTargets(t), func(target model.Target) string {
		return s.formatter.FormatFeedback(t, s.feedbackLink, target.Key)
	})
	run.Results = results
	res := &FeedbackResult{RunID: run.ID, Training: *t, FeedbackLink: s.feedbackLink, Results: results}

	status, _ := t.Status.Next()
	if err := s.store.Update(ctx, id, model.TrainingUpdate{Status: &status}); err != nil {
		log.WithError(err).Error("feedback sent but training could not be concluded")
		err = gatewayErr("store", "update", err)
		s.finish(ctx, run, model.OutcomeFailed, err)
		return res, err
	}
	res.Training.Status = status
	s.finish(ctx, run, model.OutcomeSucceeded, nil)

	log.WithFields(logrus.Fields{"sent": countTrue(results), "targets": len(results)}).Info("feedback requested and training concluded")
	return res, nil
}

func (s *Service) fetch(ctx context.Context, id string) (*model.Training, error) {
	t, err := s.store.Get(ctx, id)
	if errors.Is(err, model.ErrTrainingNotFound) {
		return nil, fmt.Errorf("training %s: %w", id, model.ErrTrainingNotFound)
	}
	if err != nil {
		return nil, gatewayErr("store", "get", err)
	}
	return t, nil
}

func requireStatus(t *model.Training, want model.Status) error {
	if t.Status != want {
		return &PreconditionError{TrainingID: t.ID, Expected: want, Actual: t.Status}
	}
	return nil
}

func requireFeedbackReady(t *model.Training) error {
	if err := requireStatus(t, model.StatusCalendarized); err != nil {
		return err
	}
	if t.Code == "" {
		return &PreconditionError{
			TrainingID: t.ID,
			Expected:   model.StatusCalendarized,
			Actual:     t.Status,
			Reason:     "no training code was generated",
		}
	}
	return nil
}

// fanOut sends one message per target with bounded concurrency. A failed send
// is recorded as false and never stops the others.
func (s *Service) fanOut(ctx context.Context, trainingID string, targets []model.Target, render func(model.Target) string) map[string]bool {
	results := make(map[string]bool, len(targets))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, target := range targets {
		target := target
		g.Go(func() error {
			err := s.messenger.Send(ctx, target, render(target))
			if err != nil {
				s.log.WithError(err).WithFields(logrus.Fields{
					"training_id": trainingID,
					"target":      target.Key,
				}).Warn("failed to send message")
			}
			mu.Lock()
			results[target.Key] = err == nil
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &recordLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

func (s *Service) startRun(id string, kind model.RunKind) *model.WorkflowRun {
	return &model.WorkflowRun{
		ID:         uuid.NewString(),
		TrainingID: id,
		Kind:       kind,
		StartedAt:  s.now(),
	}
}

func (s *Service) finish(ctx context.Context, run *model.WorkflowRun, outcome model.RunOutcome, err error) {
	run.Outcome = outcome
	run.FinishedAt = s.now()
	if err != nil {
		run.Error = err.Error()
	}
	if jerr := s.journal.Record(context.WithoutCancel(ctx), run); jerr != nil {
		s.log.WithError(jerr).WithField("run_id", run.ID).Error("failed to record workflow run")
	}
}

func countTrue(m map[string]bool) int {
	n := 0
	for _, ok := range m {
		if ok {
			n++
		}
	}
	return n
}
