package quantum

import (
	"errors"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-blockstream/dsp/buffer"
	"github.com/cwbudde/algo-blockstream/dsp/core"
	"github.com/cwbudde/algo-blockstream/dsp/engine"
	"github.com/cwbudde/algo-blockstream/internal/spsc"
)

type opcode uint8

const (
	opInstall opcode = iota + 1
	opSetParameter
	opTeardown
)

// command is a control event after preparation, in the form the callback
// applies it.
type command struct {
	op    opcode
	next  *session
	param engine.Parameter
	value float64
}

// Processor adapts host callbacks to block engines.
type Processor struct {
	logger   *zap.Logger
	registry *engine.Registry
	notify   func(Notification)
	defaults core.ProcessorConfig
	pool     *buffer.Pool
	mailbox  int

	// Explicit WithDefaults values; zero leaves the choice to the engine
	// kind and the request.
	blockSize  int
	quantumMin int

	// Control side.
	engineName string
	active     bool
	activeKind engine.Kind

	// Callback side.
	cur    *session
	closed bool

	threaded bool
	inbox    *spsc.Ring[command]
	retired  *spsc.Ring[*session]
	outbox   *spsc.Ring[Notification]

	state   atomic.Int32
	latency atomic.Int64
	blocks  atomic.Uint64
	dropped atomic.Uint64
	leaked  atomic.Uint64
}

// New returns a processor in the Uninitialized state.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		logger:   zap.NewNop(),
		registry: engine.DefaultRegistry(),
		defaults: core.DefaultProcessorConfig(),
		pool:     buffer.NewPool(),
		mailbox:  defaultMailboxSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	var err error
	if p.inbox, err = spsc.New[command](p.mailbox); err != nil {
		return nil, fmt.Errorf("quantum: control ring: %w", err)
	}
	if p.retired, err = spsc.New[*session](p.mailbox); err != nil {
		return nil, fmt.Errorf("quantum: retire ring: %w", err)
	}
	if p.outbox, err = spsc.New[Notification](p.mailbox); err != nil {
		return nil, fmt.Errorf("quantum: notification ring: %w", err)
	}
	return p, nil
}

// State returns the current session state.
func (p *Processor) State() State {
	return State(p.state.Load())
}

// Latency returns the constant input-to-output delay of the installed
// session in samples, or 0 without a session.
func (p *Processor) Latency() int {
	return int(p.latency.Load())
}

// Blocks returns how many blocks have been dispatched to engines.
func (p *Processor) Blocks() uint64 {
	return p.blocks.Load()
}

// DroppedNotifications returns how many notifications were discarded
// because nobody drained them in time.
func (p *Processor) DroppedNotifications() uint64 {
	return p.dropped.Load()
}

// OnControlEvent applies ev immediately. It must not run concurrently with
// OnAudioCallback; threaded hosts use a Controller instead.
func (p *Processor) OnControlEvent(ev ControlEvent) error {
	if p.threaded {
		return ErrControllerAttached
	}
	return p.handle(ev, p.applyNow)
}

func (p *Processor) applyNow(cmd command) error {
	return p.apply(cmd)
}

func (p *Processor) enqueue(cmd command) error {
	if !p.inbox.Push(cmd) {
		return ErrMailboxFull
	}
	return nil
}

// handle prepares ev on the control side and passes the resulting command
// to send.
func (p *Processor) handle(ev ControlEvent, send func(command) error) error {
	switch ev := ev.(type) {
	case ModuleReady:
		return p.loadModule(ev)
	case Initialize:
		return p.initialize(ev, send)
	case SetParameter:
		return p.setParameter(ev, send)
	case Teardown:
		return p.teardown(send)
	case nil:
		return errors.New("quantum: nil control event")
	default:
		return fmt.Errorf("quantum: unsupported control event %T", ev)
	}
}

func (p *Processor) loadModule(ev ModuleReady) error {
	if p.registry.Lookup(ev.Engine) == nil {
		err := fmt.Errorf("%w: %q", engine.ErrUnknownEngine, ev.Engine)
		p.logger.Warn("engine module load failed", zap.String("engine", ev.Engine), zap.Error(err))
		p.emitControl(Notification{Kind: EngineLoadFailed, Engine: ev.Engine, Reason: err.Error()})
		return err
	}
	p.engineName = ev.Engine
	p.logger.Info("engine module loaded", zap.String("engine", ev.Engine))
	p.emitControl(Notification{Kind: ModuleLoaded, Engine: ev.Engine})
	return nil
}

// resolve fills zero Initialize fields. A zero BlockSize stays zero unless
// WithDefaults named one; blockSizeFor settles it once the engine kind is
// known. A positive MaxQuantum below the host bound is raised to it.
func (p *Processor) resolve(ev Initialize) Initialize {
	if ev.SampleRate == 0 {
		ev.SampleRate = p.defaults.SampleRate
	}
	if ev.BlockSize == 0 {
		ev.BlockSize = p.blockSize
	}
	if ev.MaxQuantum == 0 {
		ev.MaxQuantum = p.defaults.MaxQuantum
	}
	if ev.MaxQuantum > 0 && ev.MaxQuantum < p.quantumMin {
		ev.MaxQuantum = p.quantumMin
	}
	return ev
}

func blockSizeFor(ev Initialize, kind engine.Kind) Initialize {
	if ev.BlockSize == 0 {
		ev.BlockSize = engine.DefaultBlockSize(kind)
	}
	return ev
}

func checkInitialize(ev Initialize) error {
	if ev.SampleRate <= 0 || !core.IsFinite(ev.SampleRate) {
		return fmt.Errorf("quantum: sample rate must be > 0: %f", ev.SampleRate)
	}
	if ev.BlockSize < 0 {
		return fmt.Errorf("quantum: block size must not be negative: %d", ev.BlockSize)
	}
	if ev.MaxQuantum <= 0 {
		return fmt.Errorf("quantum: max quantum must be > 0: %d", ev.MaxQuantum)
	}
	return nil
}

func (p *Processor) initialize(ev Initialize, send func(command) error) error {
	ev = p.resolve(ev)
	if err := checkInitialize(ev); err != nil {
		return p.failInitialize(err, send)
	}
	if p.engineName == "" {
		return p.failInitialize(ErrNoEngine, send)
	}

	adapter, err := p.registry.New(p.engineName)
	if err != nil {
		return p.failInitialize(err, send)
	}
	ev = blockSizeFor(ev, adapter.Kind())
	err = adapter.Configure(engine.Config{
		SampleRate: ev.SampleRate,
		BlockSize:  ev.BlockSize,
		Params:     ev.Params,
	})
	if err != nil {
		_ = adapter.Close()
		return p.failInitialize(err, send)
	}

	s, err := newSession(p.pool, p.engineName, adapter, ev)
	if err != nil {
		_ = adapter.Close()
		return p.failInitialize(err, send)
	}
	if err := send(command{op: opInstall, next: s}); err != nil {
		_ = s.release(p.pool)
		return err
	}

	p.active = true
	p.activeKind = adapter.Kind()
	p.logger.Info("session initialized",
		zap.String("engine", p.engineName),
		zap.Float64("sample_rate", ev.SampleRate),
		zap.Int("block_size", ev.BlockSize),
		zap.Int("max_quantum", ev.MaxQuantum),
		zap.Int("latency", s.latency),
		zap.Bool("report_levels", ev.ReportLevels))
	return nil
}

// failInitialize reports err once and drops any installed session.
func (p *Processor) failInitialize(err error, send func(command) error) error {
	p.logger.Warn("engine initialization failed", zap.String("engine", p.engineName), zap.Error(err))
	p.emitControl(Notification{Kind: EngineLoadFailed, Engine: p.engineName, Reason: err.Error()})
	if p.active {
		if sendErr := send(command{op: opInstall}); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		p.active = false
	}
	return err
}

func (p *Processor) setParameter(ev SetParameter, send func(command) error) error {
	if !p.active {
		return ErrNotConfigured
	}
	if err := engine.Validate(p.activeKind, ev.Param, ev.Value); err != nil {
		p.logger.Debug("parameter rejected", zap.Stringer("param", ev.Param), zap.Float64("value", ev.Value), zap.Error(err))
		return err
	}
	if err := send(command{op: opSetParameter, param: ev.Param, value: ev.Value}); err != nil {
		return err
	}
	p.logger.Debug("parameter set", zap.Stringer("param", ev.Param), zap.Float64("value", ev.Value))
	return nil
}

func (p *Processor) teardown(send func(command) error) error {
	if err := send(command{op: opTeardown}); err != nil {
		return err
	}
	p.active = false
	p.logger.Info("session torn down", zap.String("engine", p.engineName))
	return nil
}

// apply executes cmd on the callback side. It does not allocate.
func (p *Processor) apply(cmd command) error {
	switch cmd.op {
	case opInstall:
		old := p.cur
		p.cur = cmd.next
		p.closed = false
		if p.cur != nil {
			p.latency.Store(int64(p.cur.latency))
			p.state.Store(int32(Configured))
		} else {
			p.latency.Store(0)
			p.state.Store(int32(Uninitialized))
		}
		p.retire(old)
	case opSetParameter:
		if p.cur == nil {
			return ErrNotConfigured
		}
		return p.cur.adapter.SetParameter(cmd.param, cmd.value)
	case opTeardown:
		old := p.cur
		p.cur = nil
		p.closed = true
		p.latency.Store(0)
		p.state.Store(int32(Closed))
		p.retire(old)
	}
	return nil
}

func (p *Processor) retire(s *session) {
	if s == nil {
		return
	}
	if !p.threaded {
		if err := s.release(p.pool); err != nil {
			p.logger.Warn("engine close failed", zap.String("engine", s.engineName), zap.Error(err))
		}
		return
	}
	if !p.retired.Push(s) {
		p.leaked.Add(1)
	}
}

// collectRetired releases sessions the callback has swapped out. Only one
// goroutine may call it.
func (p *Processor) collectRetired() int {
	n := 0
	for {
		s, ok := p.retired.Pop()
		if !ok {
			return n
		}
		if err := s.release(p.pool); err != nil {
			p.logger.Warn("engine close failed", zap.String("engine", s.engineName), zap.Error(err))
		}
		n++
	}
}

// OnAudioCallback consumes one quantum from in and writes one quantum of
// delayed output to out. in and out must have the same length, at most the
// session's MaxQuantum. It returns false once the session was torn down.
//
// Without a session the output is silence and the input is discarded.
func (p *Processor) OnAudioCallback(in, out []float32) bool {
	if p.threaded {
		for {
			cmd, ok := p.inbox.Pop()
			if !ok {
				break
			}
			_ = p.apply(cmd)
		}
	}

	if p.closed {
		core.Zero(out)
		return false
	}

	s := p.cur
	if s == nil {
		core.Zero(out)
		return true
	}

	if len(in) != len(out) {
		panic(fmt.Sprintf("quantum: input length %d differs from output length %d", len(in), len(out)))
	}
	if len(in) > s.maxQuantum {
		panic(fmt.Sprintf("quantum: callback of %d samples exceeds max quantum %d", len(in), s.maxQuantum))
	}

	s.queue.Drain(out)

	for len(in) > 0 {
		n := min(s.acc.Free(), len(in))
		s.acc.Append(in[:n])
		in = in[n:]
		if s.acc.Full() {
			p.dispatch(s)
		}
	}

	if p.state.Load() != int32(Streaming) {
		p.state.Store(int32(Streaming))
	}
	return true
}

// dispatch runs the engine once on the full accumulator, queues the result
// and compacts the accumulator.
func (p *Processor) dispatch(s *session) {
	block := s.acc.Block()

	s.side.Reset()
	s.adapter.Run(block, &s.side)

	if s.side.Pitch != 0 {
		p.emit(Notification{Kind: PitchDetected, Value: s.side.Pitch})
	}
	if s.reportLevels && s.side.HasLevels {
		p.emit(Notification{Kind: Levels, Input: s.side.Levels[0], Output: s.side.Levels[1]})
	}

	s.queue.PushBlock(block)
	s.acc.Consume(s.blockSize)
	p.blocks.Add(1)
}

func (p *Processor) emit(n Notification) {
	if !p.outbox.Push(n) {
		p.dropped.Add(1)
	}
}

func (p *Processor) emitControl(n Notification) {
	if p.notify != nil {
		p.notify(n)
	}
}

// Poll delivers queued callback notifications to fn, or to the configured
// notifier when fn is nil, and returns how many were delivered. Only one
// goroutine may call Poll.
func (p *Processor) Poll(fn func(Notification)) int {
	if fn == nil {
		fn = p.notify
	}
	n := 0
	for {
		note, ok := p.outbox.Pop()
		if !ok {
			return n
		}
		if fn != nil {
			fn(note)
		}
		n++
	}
}
