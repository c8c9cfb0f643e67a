package quantum

// State is the session state.
type State int32

const (
	// Uninitialized has no buffers and no engine; callbacks output silence.
	Uninitialized State = iota
	// Configured has buffers and an engine but has not seen a callback yet.
	Configured
	// Streaming has processed at least one callback.
	Streaming
	// Closed follows Teardown; callbacks return false.
	Closed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Configured:
		return "configured"
	case Streaming:
		return "streaming"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}
