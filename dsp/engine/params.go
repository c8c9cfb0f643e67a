package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/cwbudde/algo-blockstream/dsp/effects"
)

// Parameter identifies a live engine parameter.
type Parameter int

const (
	// ParamWetAmount is the delay wet mix in [0, 1].
	ParamWetAmount Parameter = iota
	// ParamFeedback is the delay feedback in [0, 0.99].
	ParamFeedback
	// ParamDelayLength is the delay time in seconds.
	ParamDelayLength
	// ParamPowerThreshold is the pitch power gate.
	ParamPowerThreshold
	// ParamClarityThreshold is the pitch clarity gate in [0, 1].
	ParamClarityThreshold

	numParameters
)

type parameterInfo struct {
	name    string
	aliases []string
	kind    Kind
	min     float64
	max     float64
}

var parameters = [numParameters]parameterInfo{
	ParamWetAmount: {
		name:    "wet-amount",
		aliases: []string{"set-wet-amount", "wet", "mix"},
		kind:    KindEffect,
		min:     0,
		max:     1,
	},
	ParamFeedback: {
		name:    "feedback",
		aliases: []string{"set-feedback-amount", "feedback-amount"},
		kind:    KindEffect,
		min:     0,
		max:     effects.MaxDelayFeedback,
	},
	ParamDelayLength: {
		name:    "delay-length",
		aliases: []string{"set-delay-length", "delay"},
		kind:    KindEffect,
		min:     effects.MinDelayTimeSeconds,
		max:     effects.MaxDelayTimeSeconds,
	},
	ParamPowerThreshold: {
		name: "power-threshold",
		kind: KindPitch,
		min:  0,
		max:  math.MaxFloat64,
	},
	ParamClarityThreshold: {
		name: "clarity-threshold",
		kind: KindPitch,
		min:  0,
		max:  1,
	},
}

// Parameters returns every known parameter.
func Parameters() []Parameter {
	out := make([]Parameter, numParameters)
	for i := range out {
		out[i] = Parameter(i)
	}
	return out
}

// ParseParameter resolves a canonical parameter name or one of its aliases.
// Matching ignores case and surrounding space.
func ParseParameter(name string) (Parameter, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, info := range parameters {
		if info.name == key {
			return Parameter(i), nil
		}
		for _, alias := range info.aliases {
			if alias == key {
				return Parameter(i), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedParameter, name)
}

func (p Parameter) valid() bool {
	return p >= 0 && p < numParameters
}

// String returns the canonical parameter name.
func (p Parameter) String() string {
	if !p.valid() {
		return fmt.Sprintf("parameter(%d)", int(p))
	}
	return parameters[p].name
}

// Kind returns the adapter kind the parameter belongs to.
func (p Parameter) Kind() Kind {
	if !p.valid() {
		return -1
	}
	return parameters[p].kind
}

// Validate checks that value is acceptable for p on an adapter of kind k.
// It does not touch any engine, so it is safe to call on the control side
// before a change is queued for the audio side.
func Validate(k Kind, p Parameter, value float64) error {
	if !p.valid() || parameters[p].kind != k {
		return fmt.Errorf("%w: %s for %s engine", ErrUnsupportedParameter, p, k)
	}
	info := parameters[p]
	if math.IsNaN(value) || math.IsInf(value, 0) || value < info.min || value > info.max {
		return fmt.Errorf("engine: %s must be in [%g, %g]: %g", info.name, info.min, info.max, value)
	}
	return nil
}
