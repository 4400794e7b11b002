package domain

// Outcome is the terminal state of one candidate within a send batch.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSkipped Outcome = "skipped"
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
)

// SendError records a failed delivery.
type SendError struct {
	CandidateID int64  `json:"user_id"`
	Error       string `json:"error"`
}

// SendStats summarises one send batch.
type SendStats struct {
	BatchID string      `json:"batch_id"`
	Total   int         `json:"total"`
	Sent    int         `json:"sent"`
	Failed  int         `json:"failed"`
	Skipped int         `json:"skipped"`
	Errors  []SendError `json:"errors,omitempty"`
}

// Attempted returns the number of candidates that reached a terminal state.
func (s SendStats) Attempted() int {
	return s.Sent + s.Failed + s.Skipped
}
