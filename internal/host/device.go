package host

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"
)

// DeviceConfig selects the live stream format. The stream is always mono
// 32-bit float.
type DeviceConfig struct {
	SampleRate uint32
	// PeriodFrames is the requested callback size. The backend may deliver
	// other sizes.
	PeriodFrames uint32
}

// Device runs a Processor from the default duplex device.
type Device struct {
	cfg    DeviceConfig
	p      Processor
	logger *zap.Logger

	ended     atomic.Bool
	done      chan struct{}
	periods   atomic.Uint64
	maxPeriod atomic.Uint32
}

// NewDevice returns a device host for p. A nil logger disables logging.
func NewDevice(p Processor, cfg DeviceConfig, logger *zap.Logger) (*Device, error) {
	if p == nil {
		return nil, errors.New("host: nil processor")
	}
	if cfg.SampleRate == 0 {
		return nil, errors.New("host: sample rate must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Device{
		cfg:    cfg,
		p:      p,
		logger: logger,
		done:   make(chan struct{}),
	}, nil
}

// Periods returns how many device callbacks have run.
func (d *Device) Periods() uint64 {
	return d.periods.Load()
}

// MaxPeriod returns the largest callback size the backend has delivered.
func (d *Device) MaxPeriod() uint32 {
	return d.maxPeriod.Load()
}

// Run opens the device, streams until ctx is done or the processor ends the
// session, and closes the device again.
func (d *Device) Run(ctx context.Context) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("host: failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Duplex)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = d.cfg.SampleRate
	deviceConfig.PeriodSizeInFrames = d.cfg.PeriodFrames

	callbacks := malgo.DeviceCallbacks{Data: d.onData}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("host: failed to initialize device: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("host: failed to start device: %w", err)
	}
	d.logger.Info("device started",
		zap.Uint32("sample_rate", d.cfg.SampleRate),
		zap.Uint32("period_frames", d.cfg.PeriodFrames))

	select {
	case <-ctx.Done():
	case <-d.done:
		d.logger.Info("session ended by processor")
	}

	if err := device.Stop(); err != nil {
		return fmt.Errorf("host: failed to stop device: %w", err)
	}
	d.logger.Info("device stopped",
		zap.Uint64("periods", d.periods.Load()),
		zap.Uint32("max_period_frames", d.maxPeriod.Load()))
	return nil
}

// onData runs on the backend's audio thread, inside a cgo callback. A
// panic from the processor (a period larger than the session's max
// quantum) cannot be recovered there and aborts the process, so the
// processor's max quantum must cover the largest period the backend may
// deliver, not just PeriodFrames.
func (d *Device) onData(output, input []byte, frames uint32) {
	out := float32s(output)
	in := float32s(input)
	n := min(int(frames), len(out), len(in))

	if d.ended.Load() {
		clear(out)
		return
	}
	d.periods.Add(1)
	for m := d.maxPeriod.Load(); uint32(n) > m; m = d.maxPeriod.Load() {
		if d.maxPeriod.CompareAndSwap(m, uint32(n)) {
			d.logger.Debug("device period grew", zap.Int("frames", n))
			break
		}
	}

	if !d.p.OnAudioCallback(in[:n], out[:n]) {
		if d.ended.CompareAndSwap(false, true) {
			close(d.done)
		}
	}
	clear(out[n:])
}

// float32s reinterprets a native-endian F32 device buffer.
func float32s(b []byte) []float32 {
	if len(b) < 4 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), len(b)/4)
}

// DeviceInfo describes one playback or capture endpoint.
type DeviceInfo struct {
	Name      string
	Capture   bool
	IsDefault bool
}

// String returns a human-readable representation of the device
func (d DeviceInfo) String() string {
	kind := "playback"
	if d.Capture {
		kind = "capture"
	}
	marker := ""
	if d.IsDefault {
		marker = " [DEFAULT]"
	}
	return fmt.Sprintf("%s: %s%s", kind, d.Name, marker)
}

// ListDevices returns every capture and playback device of the default
// backend.
func ListDevices() ([]DeviceInfo, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("host: failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	var devices []DeviceInfo
	for _, kind := range []malgo.DeviceType{malgo.Capture, malgo.Playback} {
		infos, err := ctx.Devices(kind)
		if err != nil {
			return nil, fmt.Errorf("host: failed to enumerate devices: %w", err)
		}
		for _, info := range infos {
			devices = append(devices, DeviceInfo{
				Name:      info.Name(),
				Capture:   kind == malgo.Capture,
				IsDefault: info.IsDefault > 0,
			})
		}
	}
	return devices, nil
}
