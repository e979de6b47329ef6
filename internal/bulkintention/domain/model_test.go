package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusLevel(t *testing.T) {
	cases := []struct {
		name string
		bulk BulkIntention
		want StatusLevel
	}{
		{"completed", BulkIntention{TotalCount: 5, CurrentCount: 0, CompletedCount: 5}, StatusCompleted},
		{"paused", BulkIntention{TotalCount: 50, CurrentCount: 3, IsPaused: true}, StatusPaused},
		{"critical", BulkIntention{TotalCount: 50, CurrentCount: 5}, StatusCritical},
		{"warning", BulkIntention{TotalCount: 50, CurrentCount: 10}, StatusWarning},
		{"normal", BulkIntention{TotalCount: 50, CurrentCount: 11}, StatusNormal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.bulk.StatusLevel(10, 5))
		})
	}
}

func TestProgressPercentage(t *testing.T) {
	assert.Equal(t, 0.0, (&BulkIntention{}).ProgressPercentage())
	assert.Equal(t, 33.33, (&BulkIntention{TotalCount: 3, CompletedCount: 1}).ProgressPercentage())
	assert.Equal(t, 100.0, (&BulkIntention{TotalCount: 4, CompletedCount: 4}).ProgressPercentage())
}

func TestEstimatedCompletionDate(t *testing.T) {
	today := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)

	done := &BulkIntention{TotalCount: 2, CompletedCount: 2, ActualEndDate: &end}
	assert.Equal(t, &end, done.EstimatedCompletionDate(today, 1))

	paused := &BulkIntention{TotalCount: 5, CurrentCount: 3, IsPaused: true}
	assert.Nil(t, paused.EstimatedCompletionDate(today, 1))

	active := &BulkIntention{TotalCount: 5, CurrentCount: 3}
	got := active.EstimatedCompletionDate(today, 2)
	if assert.NotNil(t, got) {
		assert.Equal(t, today.AddDate(0, 0, 2), *got)
	}
}

func TestStateChecks(t *testing.T) {
	active := &BulkIntention{TotalCount: 3, CurrentCount: 3}
	assert.NoError(t, active.CanCelebrate())
	assert.NoError(t, active.CanPause())
	assert.ErrorIs(t, active.CanResume(), ErrNotPaused)

	paused := &BulkIntention{TotalCount: 3, CurrentCount: 2, IsPaused: true}
	assert.ErrorIs(t, paused.CanCelebrate(), ErrAlreadyPaused)
	assert.ErrorIs(t, paused.CanPause(), ErrAlreadyPaused)
	assert.NoError(t, paused.CanResume())

	done := &BulkIntention{TotalCount: 3, CompletedCount: 3}
	assert.True(t, done.IsCompleted())
	assert.ErrorIs(t, done.CanCelebrate(), ErrAlreadyCompleted)
	assert.ErrorIs(t, done.CanPause(), ErrAlreadyCompleted)
}

func TestInitialEstimatedEnd(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC), InitialEstimatedEnd(start, 30))
}
