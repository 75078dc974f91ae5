package models

import "time"

// CheckInOutcome is how a check-in submission ended
type CheckInOutcome string

const (
	OutcomeSuccess        CheckInOutcome = "success"
	OutcomeRejected       CheckInOutcome = "rejected"
	OutcomeTransportError CheckInOutcome = "transport_error"
)

// CheckInReceipt describes one submitted batch of check-ins
type CheckInReceipt struct {
	ID        string         `json:"id"`
	At        time.Time      `json:"at"`
	Criteria  SearchCriteria `json:"criteria"`
	Term      string         `json:"term"`
	UniqueIDs []string       `json:"unique_ids"`
	Names     []string       `json:"names,omitempty"`
	Outcome   CheckInOutcome `json:"outcome"`
	Message   string         `json:"message,omitempty"`
}
