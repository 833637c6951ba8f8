package domain

import "time"

type SessionStatus string

const (
	SessionStarted       SessionStatus = "started"
	SessionInProgress    SessionStatus = "in_progress"
	SessionCompleted     SessionStatus = "completed"
	SessionAbandoned     SessionStatus = "abandoned"
	SessionTimeout       SessionStatus = "timeout"
	SessionPaymentFailed SessionStatus = "payment_failed"
	SessionError         SessionStatus = "error"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStarted, SessionInProgress, SessionCompleted, SessionAbandoned,
		SessionTimeout, SessionPaymentFailed, SessionError:
		return true
	}
	return false
}

// Terminal reports whether a session in this status accepts no further
// telemetry updates.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionCompleted, SessionAbandoned, SessionTimeout, SessionPaymentFailed, SessionError:
		return true
	}
	return false
}

type FunnelStage string

const (
	StageAttract   FunnelStage = "attract"
	StageEngage    FunnelStage = "engage"
	StageCustomize FunnelStage = "customize"
	StageCapture   FunnelStage = "capture"
	StageEdit      FunnelStage = "edit"
	StageCheckout  FunnelStage = "checkout"
	StagePayment   FunnelStage = "payment"
	StageFulfill   FunnelStage = "fulfill"
)

// FunnelStages is the fixed stage order a session is expected to progress
// through.
var FunnelStages = []FunnelStage{
	StageAttract, StageEngage, StageCustomize, StageCapture,
	StageEdit, StageCheckout, StagePayment, StageFulfill,
}

func (f FunnelStage) Valid() bool {
	for _, s := range FunnelStages {
		if s == f {
			return true
		}
	}
	return false
}

type StageProgress struct {
	Reached    bool       `json:"reached"`
	EnteredAt  *time.Time `json:"enteredAt,omitempty"`
	ExitedAt   *time.Time `json:"exitedAt,omitempty"`
	DurationMs *int64     `json:"durationMs,omitempty"`
}

type FunnelProgress struct {
	Stages             map[FunnelStage]StageProgress `json:"stages"`
	LastCompletedStage *FunnelStage                  `json:"lastCompletedStage"`
	ExitStage          *FunnelStage                  `json:"exitStage"`
	OverallProgress    float64                       `json:"overallProgress"`
}

// NewFunnelProgress is the initial funnel state: attract pre-marked reached
// at session creation, everything else unreached.
func NewFunnelProgress(now time.Time) FunnelProgress {
	stages := make(map[FunnelStage]StageProgress, len(FunnelStages))
	for _, s := range FunnelStages {
		stages[s] = StageProgress{Reached: false}
	}
	stages[StageAttract] = StageProgress{Reached: true, EnteredAt: &now}

	f := FunnelProgress{Stages: stages}
	f.OverallProgress = f.ComputeProgress()
	return f
}

// ReachedCount counts the stages marked reached.
func (f FunnelProgress) ReachedCount() int {
	n := 0
	for _, sp := range f.Stages {
		if sp.Reached {
			n++
		}
	}
	return n
}

// ComputeProgress recomputes overall progress from the stage set. The stored
// value must always agree with this.
func (f FunnelProgress) ComputeProgress() float64 {
	return float64(f.ReachedCount()) / float64(len(FunnelStages))
}

// Regresses reports whether next un-reaches any stage that this funnel has
// already reached. Stage progression is monotonic.
func (f FunnelProgress) Regresses(next FunnelProgress) bool {
	for stage, sp := range f.Stages {
		if sp.Reached && !next.Stages[stage].Reached {
			return true
		}
	}
	return false
}

type ExitContext struct {
	Reason          string `json:"reason"`
	LastScreen      string `json:"lastScreen"`
	IdleBeforeExit  int64  `json:"idleBeforeExitMs"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
}

type SessionSelections struct {
	FrameType  *string `json:"frameType"`
	CutCount   int     `json:"cutCount"`
	Background *string `json:"background"`
	Character  *string `json:"character"`
	Filter     *string `json:"filter"`
	QREnabled  bool    `json:"qrEnabled"`
}

type PaymentSummary struct {
	Completed bool         `json:"completed"`
	Method    *PaymentType `json:"method"`
	Amount    float64      `json:"amount"`
	Currency  Currency     `json:"currency"`
}

type SelectionChanges struct {
	Frame      int `json:"frame"`
	Background int `json:"background"`
	Character  int `json:"character"`
	Filter     int `json:"filter"`
}

// BehaviorSummary accumulates kiosk-side interaction counters. It is
// computed by the caller and replaced wholesale on every write.
type BehaviorSummary struct {
	TotalTaps        int              `json:"totalTaps"`
	TotalScrolls     int              `json:"totalScrolls"`
	BackPressCount   int              `json:"backPressCount"`
	RetakeCount      int              `json:"retakeCount"`
	SelectionChanges SelectionChanges `json:"selectionChanges"`
	LongestIdleMs    int64            `json:"longestIdleMs"`
}

type SessionMetadata struct {
	OSVersion        string `json:"osVersion"`
	ScreenResolution string `json:"screenResolution"`
}

type Session struct {
	SessionID       string            `json:"sessionId"`
	KioskID         string            `json:"kioskId"`
	StoreID         string            `json:"storeId"`
	GroupID         string            `json:"groupId"`
	CountryCode     string            `json:"countryCode"`
	KioskVersion    string            `json:"kioskVersion"`
	LauncherVersion string            `json:"launcherVersion"`
	StartedAt       time.Time         `json:"startedAt"`
	EndedAt         *time.Time        `json:"endedAt"`
	DurationMs      *int64            `json:"durationMs"`
	Status          SessionStatus     `json:"status"`
	Funnel          FunnelProgress    `json:"funnel"`
	ExitContext     *ExitContext      `json:"exitContext,omitempty"`
	Selections      SessionSelections `json:"selections"`
	Payment         *PaymentSummary   `json:"payment,omitempty"`
	Behavior        BehaviorSummary   `json:"behaviorSummary"`
	ScreenDurations map[string]int64  `json:"screenDurations"`
	Experiments     map[string]string `json:"experiments,omitempty"`
	Metadata        SessionMetadata   `json:"metadata"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}
