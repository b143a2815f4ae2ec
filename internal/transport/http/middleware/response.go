package middleware

// failure mirrors the handlers envelope for responses written before a
// handler runs.
type failure struct {
	Success bool          `json:"success"`
	Error   failureDetail `json:"error"`
}

type failureDetail struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
	TraceID    string `json:"traceId,omitempty"`
}
