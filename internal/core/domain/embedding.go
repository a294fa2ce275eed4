package domain

// EmbeddingStats holds call counters of an embedding provider.
// Values are read atomically and may lag in-flight calls.
type EmbeddingStats struct {
	// Calls is the number of Embed calls that reached the backend.
	Calls int64 `json:"calls"`

	// Failures is the number of those calls that returned an error.
	Failures int64 `json:"failures"`
}

// FailureRate returns Failures / Calls, 0 when no calls were made.
func (s EmbeddingStats) FailureRate() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Calls)
}
