package ir

// Version constants for IR schema and kernel.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// KernelVersion is the workflow kernel version.
	KernelVersion = "0.1.0"
)
