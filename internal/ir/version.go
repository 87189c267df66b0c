package ir

// Version constants recorded with every logged action.
const (
	// LogVersion is the action log encoding version.
	LogVersion = "1"

	// EngineVersion is the entcache engine version.
	EngineVersion = "0.1.0"
)
