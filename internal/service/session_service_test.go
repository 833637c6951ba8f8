package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

func validSessionInput() CreateSessionInput {
	return CreateSessionInput{
		SessionID:   "sess-001",
		KioskID:     "kiosk-1",
		StoreID:     "store-1",
		GroupID:     "group-1",
		CountryCode: "KOR",
		StartedAt:   "2025-06-15T10:00:00Z",
	}
}

func TestCreateSessionStartsAtAttract(t *testing.T) {
	svc := NewSessionService(newFakeSessionRepo())

	session, err := svc.Create(context.Background(), validSessionInput())
	require.NoError(t, err)

	assert.Equal(t, domain.SessionStarted, session.Status)
	assert.True(t, session.Funnel.Stages[domain.StageAttract].Reached)
	assert.InDelta(t, 0.125, session.Funnel.OverallProgress, 1e-9)
	assert.NotNil(t, session.ScreenDurations)
}

func TestCreateSessionRejectsBadTimestamp(t *testing.T) {
	svc := NewSessionService(newFakeSessionRepo())

	in := validSessionInput()
	in.StartedAt = "yesterday"
	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateSessionRecomputesProgress(t *testing.T) {
	svc := NewSessionService(newFakeSessionRepo())

	session, err := svc.Create(context.Background(), validSessionInput())
	require.NoError(t, err)

	funnel := session.Funnel
	funnel.Stages[domain.StageEngage] = domain.StageProgress{Reached: true}
	funnel.Stages[domain.StageCustomize] = domain.StageProgress{Reached: true}
	// A stale client-side progress value must be recomputed server-side.
	funnel.OverallProgress = 0.9

	status := domain.SessionInProgress
	updated, err := svc.Update(context.Background(), session.SessionID, UpdateSessionInput{
		Status: &status,
		Funnel: &funnel,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.SessionInProgress, updated.Status)
	assert.InDelta(t, 0.375, updated.Funnel.OverallProgress, 1e-9)
}

func TestUpdateSessionRejectsFunnelRegression(t *testing.T) {
	svc := NewSessionService(newFakeSessionRepo())

	session, err := svc.Create(context.Background(), validSessionInput())
	require.NoError(t, err)

	funnel := session.Funnel
	funnel.Stages[domain.StageEngage] = domain.StageProgress{Reached: true}
	_, err = svc.Update(context.Background(), session.SessionID, UpdateSessionInput{Funnel: &funnel})
	require.NoError(t, err)

	// A payload that un-reaches engage must be rejected.
	regressed := domain.NewFunnelProgress(time.Now().UTC())
	_, err = svc.Update(context.Background(), session.SessionID, UpdateSessionInput{Funnel: &regressed})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestUpdateSessionFrozenAfterTerminalStatus(t *testing.T) {
	svc := NewSessionService(newFakeSessionRepo())

	session, err := svc.Create(context.Background(), validSessionInput())
	require.NoError(t, err)

	status := domain.SessionCompleted
	endedAt := "2025-06-15T10:05:00Z"
	duration := int64(300000)
	_, err = svc.Update(context.Background(), session.SessionID, UpdateSessionInput{
		Status:     &status,
		EndedAt:    &endedAt,
		DurationMs: &duration,
	})
	require.NoError(t, err)

	next := domain.SessionInProgress
	_, err = svc.Update(context.Background(), session.SessionID, UpdateSessionInput{Status: &next})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestUpdateSessionPartialFields(t *testing.T) {
	svc := NewSessionService(newFakeSessionRepo())

	session, err := svc.Create(context.Background(), validSessionInput())
	require.NoError(t, err)

	behavior := domain.BehaviorSummary{TotalTaps: 42, RetakeCount: 2}
	updated, err := svc.Update(context.Background(), session.SessionID, UpdateSessionInput{
		Behavior:        &behavior,
		ScreenDurations: map[string]int64{"capture": 12000},
	})
	require.NoError(t, err)

	assert.Equal(t, 42, updated.Behavior.TotalTaps)
	assert.Equal(t, int64(12000), updated.ScreenDurations["capture"])
	// Untouched fields survive the partial update.
	assert.Equal(t, domain.SessionStarted, updated.Status)
	assert.True(t, updated.Funnel.Stages[domain.StageAttract].Reached)
}

func TestUpdateUnknownSession(t *testing.T) {
	svc := NewSessionService(newFakeSessionRepo())

	status := domain.SessionCompleted
	_, err := svc.Update(context.Background(), "missing", UpdateSessionInput{Status: &status})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListSessionsFilters(t *testing.T) {
	svc := NewSessionService(newFakeSessionRepo())

	for _, id := range []string{"sess-a", "sess-b", "sess-c"} {
		in := validSessionInput()
		in.SessionID = id
		if id == "sess-c" {
			in.KioskID = "kiosk-2"
		}
		_, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
	}

	sessions, total, err := svc.List(context.Background(), domain.SessionFilter{KioskID: "kiosk-1"}, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, sessions, 2)
}
