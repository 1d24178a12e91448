package domain

import "time"

// MaxActivityLogEntries caps the activity log; older entries are dropped.
const MaxActivityLogEntries = 20

// GenerationStatus is the outcome of one generation attempt.
type GenerationStatus string

const (
	GenerationSuccess GenerationStatus = "success"
	GenerationFailure GenerationStatus = "failure"
)

// MonthlyCount is one bucket of the generation history.
type MonthlyCount struct {
	Month     string `json:"month"`
	Generated int    `json:"generated"`
}

// Analytics aggregates generation counters across all users.
type Analytics struct {
	PayloadsGenerated     int            `json:"payloadsGenerated"`
	SuccessfulGenerations int            `json:"successfulGenerations"`
	FailedGenerations     int            `json:"failedGenerations"`
	GenerationHistory     []MonthlyCount `json:"generationHistory"`
	LanguageCounts        map[string]int `json:"languageCounts"`
	PayloadTypeCounts     map[string]int `json:"payloadTypeCounts"`
}

// NewAnalytics returns zeroed counters with one history bucket per calendar month.
func NewAnalytics() Analytics {
	history := make([]MonthlyCount, 12)
	for i := range history {
		history[i] = MonthlyCount{Month: time.Month(i + 1).String()[:3]}
	}
	return Analytics{
		GenerationHistory: history,
		LanguageCounts:    map[string]int{},
		PayloadTypeCounts: map[string]int{},
	}
}

// ActivityEntry is one line of the recent-activity log.
type ActivityEntry struct {
	Timestamp   time.Time        `json:"timestamp"`
	Status      GenerationStatus `json:"status"`
	Language    string           `json:"language"`
	PayloadType string           `json:"payloadType"`
}
