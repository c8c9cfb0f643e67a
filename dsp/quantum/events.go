package quantum

import (
	"fmt"

	"github.com/cwbudde/algo-blockstream/dsp/engine"
)

// ControlEvent is one of ModuleReady, Initialize, SetParameter or Teardown.
type ControlEvent interface {
	controlEvent()
}

// ModuleReady selects the engine by registry name. It plays the role of
// loading the engine module.
type ModuleReady struct {
	Engine string
}

// Initialize sizes the buffers and creates the engine handle. Zero fields
// take the processor defaults.
type Initialize struct {
	SampleRate float64
	BlockSize  int
	// MaxQuantum is the largest callback the session accepts.
	MaxQuantum int
	// Params holds initial engine parameters.
	Params map[engine.Parameter]float64
	// ReportLevels enables levels notifications from effect engines.
	ReportLevels bool
}

// SetParameter changes one live engine parameter.
type SetParameter struct {
	Param engine.Parameter
	Value float64
}

// Teardown ends the session. The next callback returns false.
type Teardown struct{}

func (ModuleReady) controlEvent()  {}
func (Initialize) controlEvent()   {}
func (SetParameter) controlEvent() {}
func (Teardown) controlEvent()     {}

// NotificationKind tags a Notification.
type NotificationKind uint8

const (
	// ModuleLoaded acknowledges a successful ModuleReady.
	ModuleLoaded NotificationKind = iota + 1
	// PitchDetected carries a non-zero frequency in Value.
	PitchDetected
	// Levels carries input and output RMS in Input and Output.
	Levels
	// EngineLoadFailed carries the failure in Reason.
	EngineLoadFailed
)

// String returns the wire name of the kind.
func (k NotificationKind) String() string {
	switch k {
	case ModuleLoaded:
		return "module-loaded"
	case PitchDetected:
		return "pitch-detected"
	case Levels:
		return "levels"
	case EngineLoadFailed:
		return "engine-load-failed"
	default:
		return fmt.Sprintf("notification(%d)", uint8(k))
	}
}

// Notification is an outbound event. It is a plain value so that the
// callback can queue it without allocating.
type Notification struct {
	Kind   NotificationKind
	Value  float32
	Input  float32
	Output float32
	Engine string
	Reason string
}
