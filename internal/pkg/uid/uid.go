package uid

// NumberID generates numeric identifiers suitable for database primary keys.
type NumberID interface {
	// Generate returns a new unique int64 identifier.
	Generate() int64
}

// StringID generates opaque string identifiers (correlation IDs, tokens).
type StringID interface {
	// Generate returns a new unique string identifier.
	Generate() string
}
