package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

type sessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *sessionRepository {
	return &sessionRepository{db: db}
}

type sessionRow struct {
	SessionID       string     `db:"session_id"`
	KioskID         string     `db:"kiosk_id"`
	StoreID         string     `db:"store_id"`
	GroupID         string     `db:"group_id"`
	CountryCode     string     `db:"country_code"`
	KioskVersion    string     `db:"kiosk_version"`
	LauncherVersion string     `db:"launcher_version"`
	StartedAt       time.Time  `db:"started_at"`
	EndedAt         *time.Time `db:"ended_at"`
	DurationMs      *int64     `db:"duration_ms"`
	Status          string     `db:"status"`
	Funnel          []byte     `db:"funnel"`
	ExitContext     []byte     `db:"exit_context"`
	Selections      []byte     `db:"selections"`
	Payment         []byte     `db:"payment"`
	Behavior        []byte     `db:"behavior"`
	ScreenDurations []byte     `db:"screen_durations"`
	Experiments     []byte     `db:"experiments"`
	Metadata        []byte     `db:"metadata"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func sessionToRow(s *domain.Session) (*sessionRow, error) {
	row := &sessionRow{
		SessionID:       s.SessionID,
		KioskID:         s.KioskID,
		StoreID:         s.StoreID,
		GroupID:         s.GroupID,
		CountryCode:     s.CountryCode,
		KioskVersion:    s.KioskVersion,
		LauncherVersion: s.LauncherVersion,
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		DurationMs:      s.DurationMs,
		Status:          string(s.Status),
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}

	marshal := func(name string, v any, dst *[]byte) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", name, err)
		}
		*dst = b
		return nil
	}

	if err := marshal("funnel", s.Funnel, &row.Funnel); err != nil {
		return nil, err
	}
	if err := marshal("selections", s.Selections, &row.Selections); err != nil {
		return nil, err
	}
	if err := marshal("behavior", s.Behavior, &row.Behavior); err != nil {
		return nil, err
	}
	if err := marshal("screen durations", s.ScreenDurations, &row.ScreenDurations); err != nil {
		return nil, err
	}
	if err := marshal("metadata", s.Metadata, &row.Metadata); err != nil {
		return nil, err
	}
	if s.ExitContext != nil {
		if err := marshal("exit context", s.ExitContext, &row.ExitContext); err != nil {
			return nil, err
		}
	}
	if s.Payment != nil {
		if err := marshal("payment", s.Payment, &row.Payment); err != nil {
			return nil, err
		}
	}
	if s.Experiments != nil {
		if err := marshal("experiments", s.Experiments, &row.Experiments); err != nil {
			return nil, err
		}
	}

	return row, nil
}

func sessionFromRow(row *sessionRow) (*domain.Session, error) {
	s := &domain.Session{
		SessionID:       row.SessionID,
		KioskID:         row.KioskID,
		StoreID:         row.StoreID,
		GroupID:         row.GroupID,
		CountryCode:     row.CountryCode,
		KioskVersion:    row.KioskVersion,
		LauncherVersion: row.LauncherVersion,
		StartedAt:       row.StartedAt,
		EndedAt:         row.EndedAt,
		DurationMs:      row.DurationMs,
		Status:          domain.SessionStatus(row.Status),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}

	if err := json.Unmarshal(row.Funnel, &s.Funnel); err != nil {
		return nil, fmt.Errorf("unmarshal funnel: %w", err)
	}
	if err := json.Unmarshal(row.Selections, &s.Selections); err != nil {
		return nil, fmt.Errorf("unmarshal selections: %w", err)
	}
	if err := json.Unmarshal(row.Behavior, &s.Behavior); err != nil {
		return nil, fmt.Errorf("unmarshal behavior: %w", err)
	}
	if err := json.Unmarshal(row.ScreenDurations, &s.ScreenDurations); err != nil {
		return nil, fmt.Errorf("unmarshal screen durations: %w", err)
	}
	if err := json.Unmarshal(row.Metadata, &s.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if len(row.ExitContext) > 0 {
		s.ExitContext = &domain.ExitContext{}
		if err := json.Unmarshal(row.ExitContext, s.ExitContext); err != nil {
			return nil, fmt.Errorf("unmarshal exit context: %w", err)
		}
	}
	if len(row.Payment) > 0 {
		s.Payment = &domain.PaymentSummary{}
		if err := json.Unmarshal(row.Payment, s.Payment); err != nil {
			return nil, fmt.Errorf("unmarshal payment: %w", err)
		}
	}
	if len(row.Experiments) > 0 {
		if err := json.Unmarshal(row.Experiments, &s.Experiments); err != nil {
			return nil, fmt.Errorf("unmarshal experiments: %w", err)
		}
	}

	return s, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	row, err := sessionToRow(session)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (
			session_id, kiosk_id, store_id, group_id, country_code,
			kiosk_version, launcher_version, started_at, ended_at, duration_ms,
			status, funnel, exit_context, selections, payment, behavior,
			screen_durations, experiments, metadata, created_at, updated_at
		) VALUES (
			:session_id, :kiosk_id, :store_id, :group_id, :country_code,
			:kiosk_version, :launcher_version, :started_at, :ended_at, :duration_ms,
			:status, :funnel, :exit_context, :selections, :payment, :behavior,
			:screen_durations, :experiments, :metadata, :created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *sessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM sessions WHERE session_id = $1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return sessionFromRow(&row)
}

func (r *sessionRepository) Update(ctx context.Context, session *domain.Session) error {
	row, err := sessionToRow(session)
	if err != nil {
		return err
	}

	query := `
		UPDATE sessions SET
			ended_at = :ended_at,
			duration_ms = :duration_ms,
			status = :status,
			funnel = :funnel,
			exit_context = :exit_context,
			selections = :selections,
			payment = :payment,
			behavior = :behavior,
			screen_durations = :screen_durations,
			experiments = :experiments,
			updated_at = :updated_at
		WHERE session_id = :session_id`

	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, session.SessionID)
	}
	return nil
}

func (r *sessionRepository) List(ctx context.Context, filter domain.SessionFilter, limit, offset int) ([]domain.Session, int, error) {
	where := `WHERE ($1 = '' OR kiosk_id = $1) AND ($2 = '' OR store_id = $2) AND ($3 = '' OR status = $3)`

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM sessions `+where,
		filter.KioskID, filter.StoreID, string(filter.Status)); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM sessions `+where+` ORDER BY started_at DESC LIMIT $4 OFFSET $5`,
		filter.KioskID, filter.StoreID, string(filter.Status), limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(rows))
	for i := range rows {
		s, err := sessionFromRow(&rows[i])
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, total, nil
}

func (r *sessionRepository) LatestByKiosk(ctx context.Context, kioskID string) (*domain.Session, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM sessions WHERE kiosk_id = $1 ORDER BY started_at DESC LIMIT 1`, kioskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no sessions for kiosk %s", domain.ErrNotFound, kioskID)
	}
	if err != nil {
		return nil, fmt.Errorf("latest session: %w", err)
	}
	return sessionFromRow(&row)
}

func (r *sessionRepository) ActiveKiosks(ctx context.Context, from, to time.Time, kioskID string) ([]string, error) {
	kiosks := []string{}
	err := r.db.SelectContext(ctx, &kiosks, `
		SELECT DISTINCT kiosk_id FROM sessions
		WHERE started_at >= $1 AND started_at <= $2
		  AND ($3 = '' OR kiosk_id = $3)
		ORDER BY kiosk_id`,
		from, to, kioskID)
	if err != nil {
		return nil, fmt.Errorf("active kiosks: %w", err)
	}
	return kiosks, nil
}

func (r *sessionRepository) KioskSessionStats(ctx context.Context, kioskID string, from, to time.Time) (*domain.SessionDayStats, error) {
	var stats domain.SessionDayStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'abandoned') AS abandoned,
			COUNT(*) FILTER (WHERE status = 'timeout') AS timeout,
			COALESCE(AVG(duration_ms), 0) AS avg_duration_ms
		FROM sessions
		WHERE kiosk_id = $1 AND started_at >= $2 AND started_at <= $3`,
		kioskID, from, to)
	if err != nil {
		return nil, fmt.Errorf("kiosk session stats: %w", err)
	}
	return &stats, nil
}

func (r *sessionRepository) KioskFunnelCounts(ctx context.Context, kioskID string, from, to time.Time) (*domain.FunnelDayCounts, error) {
	var counts domain.FunnelDayCounts
	err := r.db.GetContext(ctx, &counts, `
		SELECT
			COUNT(*) FILTER (WHERE (funnel->'stages'->'attract'->>'reached')::bool) AS attract,
			COUNT(*) FILTER (WHERE (funnel->'stages'->'engage'->>'reached')::bool) AS engage,
			COUNT(*) FILTER (WHERE (funnel->'stages'->'customize'->>'reached')::bool) AS customize,
			COUNT(*) FILTER (WHERE (funnel->'stages'->'capture'->>'reached')::bool) AS capture,
			COUNT(*) FILTER (WHERE (funnel->'stages'->'edit'->>'reached')::bool) AS edit,
			COUNT(*) FILTER (WHERE (funnel->'stages'->'checkout'->>'reached')::bool) AS checkout,
			COUNT(*) FILTER (WHERE (funnel->'stages'->'payment'->>'reached')::bool) AS payment,
			COUNT(*) FILTER (WHERE (funnel->'stages'->'fulfill'->>'reached')::bool) AS fulfill
		FROM sessions
		WHERE kiosk_id = $1 AND started_at >= $2 AND started_at <= $3`,
		kioskID, from, to)
	if err != nil {
		return nil, fmt.Errorf("kiosk funnel counts: %w", err)
	}
	return &counts, nil
}
