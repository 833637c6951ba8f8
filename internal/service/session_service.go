package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/snapframe/kiosk-analytics/internal/domain"
	"github.com/snapframe/kiosk-analytics/internal/repository"
)

// SessionService tracks kiosk customer sessions through the interaction
// funnel. Sessions accumulate telemetry until they reach a terminal status,
// after which they are frozen.
type SessionService struct {
	sessions repository.SessionRepository
}

func NewSessionService(sessions repository.SessionRepository) *SessionService {
	return &SessionService{sessions: sessions}
}

type CreateSessionInput struct {
	SessionID       string                 `json:"sessionId" binding:"required"`
	KioskID         string                 `json:"kioskId" binding:"required"`
	StoreID         string                 `json:"storeId" binding:"required"`
	GroupID         string                 `json:"groupId"`
	CountryCode     string                 `json:"countryCode"`
	KioskVersion    string                 `json:"kioskVersion"`
	LauncherVersion string                 `json:"launcherVersion"`
	StartedAt       string                 `json:"startedAt" binding:"required"`
	Experiments     map[string]string      `json:"experiments"`
	Metadata        domain.SessionMetadata `json:"metadata"`
}

// Create opens a session in status started, with the attract stage already
// reached: a session only exists because someone touched the attract screen.
func (s *SessionService) Create(ctx context.Context, in CreateSessionInput) (*domain.Session, error) {
	startedAt, err := time.Parse(time.RFC3339, in.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed startedAt %q", domain.ErrInvalidInput, in.StartedAt)
	}

	now := time.Now().UTC()
	session := &domain.Session{
		SessionID:       in.SessionID,
		KioskID:         in.KioskID,
		StoreID:         in.StoreID,
		GroupID:         in.GroupID,
		CountryCode:     in.CountryCode,
		KioskVersion:    in.KioskVersion,
		LauncherVersion: in.LauncherVersion,
		StartedAt:       startedAt.UTC(),
		Status:          domain.SessionStarted,
		Funnel:          domain.NewFunnelProgress(startedAt.UTC()),
		ScreenDurations: map[string]int64{},
		Experiments:     in.Experiments,
		Metadata:        in.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	log.Debug().Str("session_id", session.SessionID).Str("kiosk_id", session.KioskID).Msg("session created")
	return session, nil
}

type UpdateSessionInput struct {
	Status          *domain.SessionStatus     `json:"status"`
	EndedAt         *string                   `json:"endedAt"`
	DurationMs      *int64                    `json:"durationMs"`
	Funnel          *domain.FunnelProgress    `json:"funnel"`
	ExitContext     *domain.ExitContext       `json:"exitContext"`
	Selections      *domain.SessionSelections `json:"selections"`
	Payment         *domain.PaymentSummary    `json:"payment"`
	Behavior        *domain.BehaviorSummary   `json:"behaviorSummary"`
	ScreenDurations map[string]int64          `json:"screenDurations"`
	Experiments     map[string]string         `json:"experiments"`
}

// Update applies a partial session update. Absent fields are left untouched;
// present fields replace the stored value wholesale. Updates against a
// session already in a terminal status are rejected, as are funnel payloads
// that un-reach a previously reached stage.
func (s *SessionService) Update(ctx context.Context, sessionID string, in UpdateSessionInput) (*domain.Session, error) {
	session, err := s.sessions.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status.Terminal() {
		return nil, fmt.Errorf("%w: session %s is already %s", domain.ErrInvalidState, sessionID, session.Status)
	}

	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: unsupported session status %q", domain.ErrInvalidInput, *in.Status)
		}
		session.Status = *in.Status
	}
	if in.EndedAt != nil {
		endedAt, err := time.Parse(time.RFC3339, *in.EndedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed endedAt %q", domain.ErrInvalidInput, *in.EndedAt)
		}
		t := endedAt.UTC()
		session.EndedAt = &t
	}
	if in.DurationMs != nil {
		session.DurationMs = in.DurationMs
	}
	if in.Funnel != nil {
		if session.Funnel.Regresses(*in.Funnel) {
			return nil, fmt.Errorf("%w: funnel update for session %s un-reaches a completed stage",
				domain.ErrInvalidState, sessionID)
		}
		session.Funnel = *in.Funnel
		session.Funnel.OverallProgress = session.Funnel.ComputeProgress()
	}
	if in.ExitContext != nil {
		session.ExitContext = in.ExitContext
	}
	if in.Selections != nil {
		session.Selections = *in.Selections
	}
	if in.Payment != nil {
		session.Payment = in.Payment
	}
	if in.Behavior != nil {
		session.Behavior = *in.Behavior
	}
	if in.ScreenDurations != nil {
		session.ScreenDurations = in.ScreenDurations
	}
	if in.Experiments != nil {
		session.Experiments = in.Experiments
	}

	session.UpdatedAt = time.Now().UTC()

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.sessions.FindBySessionID(ctx, sessionID)
}

func (s *SessionService) List(ctx context.Context, filter domain.SessionFilter, limit, offset int) ([]domain.Session, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.sessions.List(ctx, filter, limit, offset)
}

func (s *SessionService) LatestByKiosk(ctx context.Context, kioskID string) (*domain.Session, error) {
	return s.sessions.LatestByKiosk(ctx, kioskID)
}
