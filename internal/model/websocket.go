package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage is sent after every status check of a job's task
type WSProgressMessage struct {
	Type         string    `json:"type"`
	JobID        string    `json:"jobId"`
	TaskID       string    `json:"taskId,omitempty"`
	Status       JobStatus `json:"status"`
	RemoteStatus string    `json:"remoteStatus,omitempty"`
	Attempts     int       `json:"attempts"`
	ElapsedMs    int64     `json:"elapsedMs"`
	Progress     Progress  `json:"progress"`
	// Partial carries tracks already playable before the task completes
	Partial interface{} `json:"partial,omitempty"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type   string      `json:"type"`
	JobID  string      `json:"jobId"`
	Result interface{} `json:"result"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string   `json:"type"`
	JobID string   `json:"jobId"`
	Error JobError `json:"error"`
}
