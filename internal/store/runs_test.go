package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formazing-backend/internal/model"
)

func TestRunStore_RecordAndList(t *testing.T) {
	ctx := context.Background()
	s := NewRunStore(newSQLiteDB(t))
	base := time.Date(2024, 10, 15, 10, 0, 0, 0, time.UTC)

	runs := []model.WorkflowRun{
		{ID: "r1", TrainingID: "page-1", Kind: model.RunNotification, Outcome: model.OutcomeSucceeded,
			Code: "IT-X-2024-SPRING-01", Results: map[string]bool{"main_group": true, "IT": false},
			StartedAt: base, FinishedAt: base.Add(time.Second)},
		{ID: "r2", TrainingID: "page-2", Kind: model.RunNotification, Outcome: model.OutcomeInconsistent,
			EventID: "evt-2", Error: "store unavailable",
			StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute + time.Second)},
		{ID: "r3", TrainingID: "page-1", Kind: model.RunFeedback, Outcome: model.OutcomeSucceeded,
			StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Second)},
	}
	for i := range runs {
		require.NoError(t, s.Record(ctx, &runs[i]))
	}

	all, err := s.List(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{all[0].ID, all[1].ID, all[2].ID})

	forPage, err := s.List(ctx, "page-1", 10)
	require.NoError(t, err)
	require.Len(t, forPage, 2)
	assert.Equal(t, "r3", forPage[0].ID)
	assert.Equal(t, map[string]bool{"main_group": true, "IT": false}, forPage[1].Results)

	limited, err := s.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRunStore_DuplicateIDFails(t *testing.T) {
	ctx := context.Background()
	s := NewRunStore(newSQLiteDB(t))
	now := time.Now()

	run := model.WorkflowRun{ID: "dup", TrainingID: "p", Kind: model.RunFeedback, Outcome: model.OutcomeFailed, StartedAt: now, FinishedAt: now}
	require.NoError(t, s.Record(ctx, &run))
	again := run
	assert.Error(t, s.Record(ctx, &again))
}
