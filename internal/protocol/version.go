package protocol

// Version constants for the operation protocol and engine.
const (
	// ProtocolVersion is the operation encoding version.
	ProtocolVersion = "1"

	// EngineVersion is the mergeviz engine version.
	EngineVersion = "0.1.0"
)
