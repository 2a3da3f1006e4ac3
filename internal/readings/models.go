package readings

import "time"

// Outcome classifies how a read attempt ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeAborted Outcome = "aborted"
)

// Reading is the persistent record of one chip read attempt. Document
// numbers are stored masked, never in the clear.
type Reading struct {
	ID              string    `json:"id" bson:"_id,omitempty"`
	DeviceID        string    `json:"deviceId" bson:"deviceId"`
	DocumentMasked  string    `json:"documentMasked" bson:"documentMasked"`
	Format          string    `json:"format" bson:"format"`
	Protocol        string    `json:"protocol" bson:"protocol"`
	Outcome         Outcome   `json:"outcome" bson:"outcome"`
	FailureCategory string    `json:"failureCategory,omitempty" bson:"failureCategory,omitempty"`
	DurationMs      int64     `json:"durationMs" bson:"durationMs"`
	ArtifactKey     string    `json:"artifactKey,omitempty" bson:"artifactKey,omitempty"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	DeviceID        string
	Outcome         Outcome
	FailureCategory string
	Protocol        string
	Since           time.Time
	Limit           int64
}

// Stats aggregates read outcomes for the troubleshooting endpoints.
type Stats struct {
	Total       int64            `json:"total"`
	Successes   int64            `json:"successes"`
	Failures    int64            `json:"failures"`
	SuccessRate float64          `json:"successRate"`
	ByCategory  map[string]int64 `json:"byCategory"`
	ByProtocol  map[string]int64 `json:"byProtocol"`
}
