package domain

type Reading struct {
	ID        int64     `json:"id"`
	Device    string    `json:"device"`
	Timestamp Timestamp `json:"timestamp"`
	Current   float64   `json:"current"`
	Voltage   float64   `json:"voltage"`
}

// Device is the anomaly configuration of one metered appliance.
type Device struct {
	ID        string  `json:"id"`
	Threshold float64 `json:"threshold"`
}

type ThresholdUpdate struct {
	Threshold float64 `json:"threshold"`
}

type DeviceStats struct {
	Device      string  `json:"device"`
	TotalEnergy float64 `json:"total_energy"`
	AvgVoltage  float64 `json:"avg_voltage"`
	AvgCurrent  float64 `json:"avg_current"`
}

type DailySummary struct {
	Date            string        `json:"date"`
	TotalEnergy     float64       `json:"total_energy"`
	PowerTrend      float64       `json:"power_trend"`
	DeviceBreakdown []DeviceStats `json:"device_breakdown"`
}

// HighestConsumer is either a winner for the day or a message saying there
// was no data.
type HighestConsumer struct {
	Date            string       `json:"date,omitempty"`
	HighestConsumer *DeviceStats `json:"highest_consumer,omitempty"`
	Message         string       `json:"message,omitempty"`
}

type AnomalyResponse struct {
	DeviceID  string    `json:"device_id"`
	Threshold float64   `json:"threshold"`
	Anomalies []Reading `json:"anomalies"`
}

type ForecastItem struct {
	Date            string  `json:"date"`
	PredictedEnergy float64 `json:"predicted_energy"`
}

type ForecastResponse struct {
	Forecast []ForecastItem `json:"forecast"`
	Outlook  string         `json:"outlook"`
	Tip      string         `json:"tip"`
}

type ChatQuery struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type ChatAnswer struct {
	Answer string `json:"answer"`
}

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

type ChatMessage struct {
	Role    ChatRole `json:"role"`
	Content string   `json:"content"`
}

// RelayStates maps a relay id to its on/off state.
type RelayStates map[string]bool

type RelayUpdate struct {
	State bool `json:"state"`
}

type RelayUpdateResult struct {
	RelayID string `json:"relay_id"`
	State   bool   `json:"state"`
}
