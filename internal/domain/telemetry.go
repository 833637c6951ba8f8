package domain

import "time"

type MetricType string

const (
	MetricAppStart   MetricType = "app_start"
	MetricCapture    MetricType = "capture"
	MetricRender     MetricType = "render"
	MetricPrint      MetricType = "print"
	MetricPayment    MetricType = "payment"
	MetricAPICall    MetricType = "api_call"
	MetricScreenLoad MetricType = "screen_load"
)

func (m MetricType) Valid() bool {
	switch m {
	case MetricAppStart, MetricCapture, MetricRender, MetricPrint,
		MetricPayment, MetricAPICall, MetricScreenLoad:
		return true
	}
	return false
}

// SummaryMetricTypes are the metric types rolled into the daily summary
// percentile block.
var SummaryMetricTypes = []MetricType{
	MetricAppStart, MetricCapture, MetricRender, MetricPrint, MetricPayment,
}

type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "critical"
	SeverityError    ErrorSeverity = "error"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityInfo     ErrorSeverity = "info"
)

func (s ErrorSeverity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityError, SeverityWarning, SeverityInfo:
		return true
	}
	return false
}

type ErrorCategory string

const (
	CategoryHardware ErrorCategory = "hardware"
	CategorySoftware ErrorCategory = "software"
	CategoryNetwork  ErrorCategory = "network"
	CategoryPayment  ErrorCategory = "payment"
	CategoryUnknown  ErrorCategory = "unknown"
)

func (c ErrorCategory) Valid() bool {
	switch c {
	case CategoryHardware, CategorySoftware, CategoryNetwork, CategoryPayment, CategoryUnknown:
		return true
	}
	return false
}

type MetricContext struct {
	MemoryUsage *float64 `json:"memoryUsage,omitempty"`
	CPUUsage    *float64 `json:"cpuUsage,omitempty"`
	NetworkType string   `json:"networkType,omitempty"`
}

type PerformanceMetric struct {
	ID           int64              `json:"-"`
	Timestamp    time.Time          `json:"timestamp"`
	KioskID      string             `json:"kioskId"`
	SessionID    string             `json:"sessionId,omitempty"`
	MetricType   MetricType         `json:"metricType"`
	DurationMs   int64              `json:"durationMs"`
	Breakdown    map[string]float64 `json:"breakdown,omitempty"`
	Context      *MetricContext     `json:"context,omitempty"`
	Success      bool               `json:"success"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
}

type DeviceState struct {
	MemoryUsage      *float64 `json:"memoryUsage,omitempty"`
	CPUUsage         *float64 `json:"cpuUsage,omitempty"`
	DiskSpace        *float64 `json:"diskSpace,omitempty"`
	BatteryLevel     *float64 `json:"batteryLevel,omitempty"`
	NetworkConnected *bool    `json:"networkConnected,omitempty"`
}

type ErrorReport struct {
	ID           int64         `json:"-"`
	Timestamp    time.Time     `json:"timestamp"`
	KioskID      string        `json:"kioskId"`
	SessionID    string        `json:"sessionId,omitempty"`
	Severity     ErrorSeverity `json:"severity"`
	Category     ErrorCategory `json:"category"`
	ErrorCode    string        `json:"errorCode"`
	ErrorMessage string        `json:"errorMessage"`
	StackTrace   string        `json:"stackTrace,omitempty"`
	DeviceState  *DeviceState  `json:"deviceState,omitempty"`
	AppVersion   string        `json:"appVersion"`
	Resolved     bool          `json:"resolved"`
	ResolvedAt   *time.Time    `json:"resolvedAt,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}
