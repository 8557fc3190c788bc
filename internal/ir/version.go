package ir

// Version constants for the IR schema and generator.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// GeneratorVersion is stamped into every generated file header.
	GeneratorVersion = "0.1.0"
)
