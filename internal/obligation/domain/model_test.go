package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var rules = StatusRules{OnTrackRatio: 0.67, UrgentDayOfMonth: 24}

func TestStatus(t *testing.T) {
	mid := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	late := time.Date(2024, 3, 27, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		o     MonthlyObligation
		today time.Time
		want  Status
	}{
		{"completed", MonthlyObligation{Year: 2024, Month: 2, CompletedCount: 3, TargetCount: 3}, mid, StatusCompleted},
		{"overdue", MonthlyObligation{Year: 2024, Month: 2, CompletedCount: 1, TargetCount: 3}, mid, StatusOverdue},
		{"on track", MonthlyObligation{Year: 2024, Month: 3, CompletedCount: 3, TargetCount: 4}, late, StatusOnTrack},
		{"two of three late", MonthlyObligation{Year: 2024, Month: 3, CompletedCount: 2, TargetCount: 3}, late, StatusUrgent},
		{"behind", MonthlyObligation{Year: 2024, Month: 3, CompletedCount: 1, TargetCount: 3}, mid, StatusBehind},
		{"urgent", MonthlyObligation{Year: 2024, Month: 3, CompletedCount: 1, TargetCount: 3}, late, StatusUrgent},
		{"future", MonthlyObligation{Year: 2024, Month: 4, CompletedCount: 0, TargetCount: 3}, mid, StatusFuture},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.o.Status(tc.today, rules))
		})
	}
}

func TestPercentAndRemaining(t *testing.T) {
	o := MonthlyObligation{CompletedCount: 1, TargetCount: 3}
	assert.Equal(t, 33.3, o.CompletionPercentage())
	assert.Equal(t, 2, o.Remaining())

	zero := MonthlyObligation{TargetCount: 0, CompletedCount: 0}
	assert.Equal(t, 100.0, zero.CompletionPercentage())
	assert.Equal(t, 0, zero.Remaining())

	over := MonthlyObligation{CompletedCount: 5, TargetCount: 3}
	assert.Equal(t, 0, over.Remaining())
}

func TestSummarize(t *testing.T) {
	got := Summarize(2024, []MonthlyObligation{
		{Month: 1, CompletedCount: 3, TargetCount: 3},
		{Month: 2, CompletedCount: 0, TargetCount: 3},
	})
	assert.Equal(t, 2, got.TotalMonths)
	assert.Equal(t, 3, got.TotalCompleted)
	assert.Equal(t, 6, got.TotalTarget)
	assert.Equal(t, 1, got.CompletedMonths)
	assert.Equal(t, 50.0, got.AvgCompletionPercentage)

	assert.Equal(t, YearlySummary{Year: 2023}, Summarize(2023, nil))
}

func TestDaysLeftInMonth(t *testing.T) {
	assert.Equal(t, 0, DaysLeftInMonth(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 6, DaysLeftInMonth(time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)))
}
