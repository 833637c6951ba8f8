package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewFunnelProgressStartsAtAttract(t *testing.T) {
	now := time.Now().UTC()
	f := NewFunnelProgress(now)

	assert.True(t, f.Stages[StageAttract].Reached)
	assert.Equal(t, &now, f.Stages[StageAttract].EnteredAt)
	for _, stage := range FunnelStages[1:] {
		assert.False(t, f.Stages[stage].Reached, "stage %s", stage)
	}
	assert.Equal(t, 1, f.ReachedCount())
	assert.InDelta(t, 0.125, f.OverallProgress, 1e-9)
}

func TestFunnelProgressRegresses(t *testing.T) {
	now := time.Now().UTC()
	current := NewFunnelProgress(now)
	current.Stages[StageEngage] = StageProgress{Reached: true}

	forward := NewFunnelProgress(now)
	forward.Stages[StageEngage] = StageProgress{Reached: true}
	forward.Stages[StageCustomize] = StageProgress{Reached: true}
	assert.False(t, current.Regresses(forward))

	backward := NewFunnelProgress(now)
	assert.True(t, current.Regresses(backward), "un-reaching engage is a regression")
}

func TestSessionStatusTerminal(t *testing.T) {
	assert.False(t, SessionStarted.Terminal())
	assert.False(t, SessionInProgress.Terminal())

	for _, s := range []SessionStatus{
		SessionCompleted, SessionAbandoned, SessionTimeout, SessionPaymentFailed, SessionError,
	} {
		assert.True(t, s.Terminal(), "status %s", s)
	}
}

func TestNewTimeDimension(t *testing.T) {
	// 2025-03-09 is a Sunday in Q1, ISO week 10.
	ts := time.Date(2025, 3, 9, 14, 30, 0, 0, time.UTC)
	td := NewTimeDimension(ts)

	assert.Equal(t, 2025, td.Year)
	assert.Equal(t, 3, td.Month)
	assert.Equal(t, 10, td.Week)
	assert.Equal(t, 0, td.DayOfWeek)
	assert.Equal(t, 14, td.Hour)
	assert.Equal(t, 1, td.Quarter)

	assert.Equal(t, 4, NewTimeDimension(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)).Quarter)
}
