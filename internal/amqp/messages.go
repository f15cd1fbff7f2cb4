package amqp

import (
	"encoding/json"
	"time"
)

// ReportReadyMessage announces that a fresh analysis report exists.
// It carries the headline numbers only; consumers fetch the full report
// over the API when they need it.
type ReportReadyMessage struct {
	WindowStart    string    `json:"window_start"`
	WindowEnd      string    `json:"window_end"`
	GeneratedAt    time.Time `json:"generated_at"`
	HealthScore    int       `json:"health_score"`
	AnomalyCount   int       `json:"anomaly_count"`
	RecurringCount int       `json:"recurring_count"`
}

// NewReportReadyMessage creates a report notification stamped now.
func NewReportReadyMessage(windowStart, windowEnd string, healthScore, anomalies, recurring int) *ReportReadyMessage {
	return &ReportReadyMessage{
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
		GeneratedAt:    time.Now(),
		HealthScore:    healthScore,
		AnomalyCount:   anomalies,
		RecurringCount: recurring,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportReadyMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportReadyMessageFromJSON creates a message from JSON bytes
func ReportReadyMessageFromJSON(data []byte) (*ReportReadyMessage, error) {
	var msg ReportReadyMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
