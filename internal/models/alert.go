package models

// Report and alert statuses.
const (
	StatusSafe     = "SAFE"
	StatusWarning  = "WARNING"
	StatusCritical = "CRITICAL"

	SeverityCritical = "CRITICAL"
)

// AlertEntry is a forecast for one record that is about to run out.
// Wire names follow the mobile client (sisa = remaining, habis_dalam = runs out in).
type AlertEntry struct {
	Name          string  `json:"name"`
	RemainingQty  float64 `json:"sisa"`
	DaysRemaining int     `json:"habis_dalam"`
	Severity      string  `json:"severity,omitempty"`
}

// HealthReport is the response of the pull-based health report.
type HealthReport struct {
	Status       string       `json:"status"`
	AgentMessage string       `json:"agent_message"`
	Alerts       []AlertEntry `json:"alerts"`
}

// AnalysisResult is the response of the event-driven analysis.
type AnalysisResult struct {
	Message       string        `json:"message"`
	Status        string        `json:"status,omitempty"`
	Duplicate     bool          `json:"duplicate,omitempty"`
	Notification  *Notification `json:"notification,omitempty"`
	Delivered     *bool         `json:"delivered,omitempty"`
	DeliveryError string        `json:"delivery_error,omitempty"`
}

// Notification is the title/body pair shown on the device.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
