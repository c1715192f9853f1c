package ir

// Version constants stamped into generated artifacts.
const (
	// GeneratorVersion is the rulegen code generator version.
	GeneratorVersion = "0.1.0"

	// ArtifactSchemaVersion is bumped whenever the shape of emitted artifacts changes.
	ArtifactSchemaVersion = "1"
)
