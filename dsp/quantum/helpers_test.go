package quantum

import (
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/cwbudde/algo-blockstream/dsp/engine"
	"github.com/cwbudde/algo-blockstream/internal/testutil"
)

const recordEngine = "record"

// recorder is a pass-through engine that remembers every block it ran on
// and the wet amount in effect at the time.
type recorder struct {
	kind engine.Kind

	mu         sync.Mutex
	blocks     [][]float32
	wetSeen    []float64
	wet        float64
	pitch      float32
	configured bool
	closed     int
	configErr  error
}

func (r *recorder) Kind() engine.Kind { return r.kind }

func (r *recorder) Configure(cfg engine.Config) error {
	if r.configErr != nil {
		return r.configErr
	}
	r.configured = true
	r.wet = cfg.Param(engine.ParamWetAmount, 0.5)
	return nil
}

func (r *recorder) Run(block []float32, side *engine.SideChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = append(r.blocks, append([]float32(nil), block...))
	r.wetSeen = append(r.wetSeen, r.wet)
	side.Pitch = r.pitch
	side.Levels = [2]float32{1, 2}
	side.HasLevels = r.kind == engine.KindEffect
}

func (r *recorder) SetParameter(p engine.Parameter, value float64) error {
	if err := engine.Validate(r.kind, p, value); err != nil {
		return err
	}
	if p == engine.ParamWetAmount {
		r.wet = value
	}
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func (r *recorder) snapshot() ([][]float32, []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]float32(nil), r.blocks...), append([]float64(nil), r.wetSeen...)
}

func (r *recorder) closeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// newRecorded returns a processor whose "record" engine hands out rec, and
// which is already past ModuleReady.
func newRecorded(t *testing.T, rec *recorder, opts ...Option) *Processor {
	t.Helper()

	reg := engine.DefaultRegistry()
	reg.MustRegister(recordEngine, func() (engine.Adapter, error) { return rec, nil })

	all := append([]Option{WithLogger(zaptest.NewLogger(t)), WithRegistry(reg)}, opts...)
	p, err := New(all...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := p.OnControlEvent(ModuleReady{Engine: recordEngine}); err != nil {
		t.Fatalf("ModuleReady: %v", err)
	}
	return p
}

func mustInit(t *testing.T, p *Processor, ev Initialize) {
	t.Helper()
	if err := p.OnControlEvent(ev); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
}

// stream feeds signal through p in quanta of the given sizes, cycling
// through sizes, and returns the concatenated output.
func stream(t *testing.T, p *Processor, signal []float32, sizes []int) []float32 {
	t.Helper()
	out := make([]float32, 0, len(signal))
	for i := 0; len(signal) > 0; i++ {
		n := min(sizes[i%len(sizes)], len(signal))
		q := make([]float32, n)
		if !p.OnAudioCallback(signal[:n], q) {
			t.Fatalf("callback %d returned false", i)
		}
		out = append(out, q...)
		signal = signal[n:]
	}
	return out
}

func ramp(n int) []float32 {
	return testutil.Ramp[float32](1, n)
}

type noteLog struct {
	mu    sync.Mutex
	notes []Notification
}

func (l *noteLog) add(n Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notes = append(l.notes, n)
}

func (l *noteLog) kinds() []NotificationKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]NotificationKind, len(l.notes))
	for i, n := range l.notes {
		out[i] = n.Kind
	}
	return out
}

func (l *noteLog) count(k NotificationKind) int {
	n := 0
	for _, got := range l.kinds() {
		if got == k {
			n++
		}
	}
	return n
}
