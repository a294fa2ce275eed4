package driven

// ConfigStore is a flat key/value view over persisted settings.
// Keys are dot-separated ("retrieval.top_k", "embedding.provider").
type ConfigStore interface {
	// Get returns the raw value and whether the key is set.
	Get(key string) (any, bool)

	// GetString returns "" for missing or non-string values.
	GetString(key string) string

	// GetInt returns 0 for missing or non-numeric values.
	GetInt(key string) int

	// GetFloat returns 0 for missing or non-numeric values.
	GetFloat(key string) float64

	// GetBool returns false for missing or non-bool values.
	GetBool(key string) bool

	// Set updates a value. File-backed stores persist it immediately.
	Set(key string, value any) error

	Save() error
	Load() error

	// Path is where the settings are persisted.
	Path() string
}
