// Package bridge carries control events and notifications between a
// quantum.Controller and remote clients over JSON websocket messages.
package bridge

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-blockstream/dsp/engine"
	"github.com/cwbudde/algo-blockstream/dsp/quantum"
)

// Inbound message types.
const (
	TypeModuleReady  = "module-ready"
	TypeInitialize   = "initialize"
	TypeSetParameter = "set-parameter"
	TypeTeardown     = "teardown"
)

// Outbound message types not covered by quantum.NotificationKind.
const (
	TypeError = "error"
)

// ErrUnknownType is returned for an inbound message type the codec does not
// know.
var ErrUnknownType = errors.New("bridge: unknown message type")

// Inbound is a client message. Only the fields of the given Type are read.
type Inbound struct {
	Type string `json:"type"`

	// module-ready
	Engine string `json:"engine,omitempty"`

	// initialize
	SampleRate   float64            `json:"sampleRate,omitempty"`
	BlockSize    int                `json:"blockSize,omitempty"`
	MaxQuantum   int                `json:"maxQuantum,omitempty"`
	ReportLevels bool               `json:"reportLevels,omitempty"`
	Params       map[string]float64 `json:"params,omitempty"`

	// initialize fields of the older init-processor and init-detector
	// messages
	DelayLength       *float64 `json:"delayLength,omitempty"`
	WetAmount         *float64 `json:"wetAmount,omitempty"`
	Feedback          *float64 `json:"feedback,omitempty"`
	SamplesPerAnalyze int      `json:"numAudioSamplesPerAnalysis,omitempty"`

	// set-parameter, and the value of set-wet-amount and friends
	Name  string   `json:"name,omitempty"`
	Value *float64 `json:"value,omitempty"`
}

// Outbound is a server message.
type Outbound struct {
	Type   string   `json:"type"`
	Value  float32  `json:"value,omitempty"`
	Input  *float32 `json:"input,omitempty"`
	Output *float32 `json:"output,omitempty"`
	Engine string   `json:"engine,omitempty"`
	Reason string   `json:"reason,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// Decode converts msg into a control event. fallbackEngine names the engine
// for module-ready messages that do not carry one.
func Decode(msg Inbound, fallbackEngine string) (quantum.ControlEvent, error) {
	switch msg.Type {
	case TypeModuleReady, "send-wasm-module":
		name := msg.Engine
		if name == "" {
			name = fallbackEngine
		}
		if name == "" {
			return nil, fmt.Errorf("bridge: %s without engine", msg.Type)
		}
		return quantum.ModuleReady{Engine: name}, nil

	case TypeInitialize, "init-processor", "init-detector":
		return decodeInitialize(msg)

	case TypeSetParameter:
		return decodeParameter(msg.Name, msg.Value)

	case TypeTeardown:
		return quantum.Teardown{}, nil
	}

	// set-wet-amount, set-feedback-amount and set-delay-length are
	// parameter aliases.
	if _, err := engine.ParseParameter(msg.Type); err == nil {
		return decodeParameter(msg.Type, msg.Value)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, msg.Type)
}

func decodeInitialize(msg Inbound) (quantum.ControlEvent, error) {
	ev := quantum.Initialize{
		SampleRate:   msg.SampleRate,
		BlockSize:    msg.BlockSize,
		MaxQuantum:   msg.MaxQuantum,
		ReportLevels: msg.ReportLevels,
	}
	if ev.BlockSize == 0 {
		ev.BlockSize = msg.SamplesPerAnalyze
	}

	params := make(map[engine.Parameter]float64, len(msg.Params)+3)
	for name, v := range msg.Params {
		p, err := engine.ParseParameter(name)
		if err != nil {
			return nil, fmt.Errorf("bridge: %w", err)
		}
		params[p] = v
	}
	for p, v := range map[engine.Parameter]*float64{
		engine.ParamDelayLength: msg.DelayLength,
		engine.ParamWetAmount:   msg.WetAmount,
		engine.ParamFeedback:    msg.Feedback,
	} {
		if v != nil {
			params[p] = *v
		}
	}
	if len(params) > 0 {
		ev.Params = params
	}
	return ev, nil
}

func decodeParameter(name string, value *float64) (quantum.ControlEvent, error) {
	p, err := engine.ParseParameter(name)
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}
	if value == nil {
		return nil, fmt.Errorf("bridge: %s without value", p)
	}
	return quantum.SetParameter{Param: p, Value: *value}, nil
}

// Encode converts a notification into its wire message.
func Encode(n quantum.Notification) Outbound {
	out := Outbound{Type: n.Kind.String()}
	switch n.Kind {
	case quantum.PitchDetected:
		out.Value = n.Value
	case quantum.Levels:
		in, o := n.Input, n.Output
		out.Input, out.Output = &in, &o
	case quantum.ModuleLoaded:
		out.Engine = n.Engine
	case quantum.EngineLoadFailed:
		out.Engine = n.Engine
		out.Reason = n.Reason
	}
	return out
}

// EncodeError returns the message reporting a rejected inbound message.
func EncodeError(err error) Outbound {
	return Outbound{Type: TypeError, Error: err.Error()}
}
