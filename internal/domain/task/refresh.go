package task

import "time"

// RefreshTask asks a worker to refetch the category listing and store a snapshot.
type RefreshTask struct {
	Reason      string    `json:"reason"`       // "api", "schedule"
	RequestedAt time.Time `json:"requested_at"` // When the refresh was requested
	RetryCount  int       `json:"retry_count"`  // Number of failed attempts so far
}

func (t *RefreshTask) TaskType() string {
	return "RefreshTask"
}

func (t *RefreshTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
