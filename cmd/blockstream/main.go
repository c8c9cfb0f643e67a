// Command blockstream runs a block engine behind the quantum adapter, either
// offline over WAV files or live on the default duplex audio device.
//
// Usage:
//
//	blockstream render [flags] input.wav [output.wav]
//	blockstream live [flags]
//	blockstream devices
//
// Settings are read from -config (default ~/.blockstream.yaml or
// /etc/blockstream/config.yaml), then .env and BLOCKSTREAM_* variables,
// then flags.
//
// Examples:
//
//	blockstream render -engine delay -delay-length 0.35 -wet 0.4 in.wav out.wav
//	blockstream render -keep-latency -quantum 441 in.wav out.wav
//	blockstream render -engine pitch -block-size 2048 voice.wav
//	blockstream live -engine pitch -bridge
//	blockstream devices
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-blockstream/dsp/core"
	"github.com/cwbudde/algo-blockstream/dsp/quantum"
	"github.com/cwbudde/algo-blockstream/internal/bridge"
	"github.com/cwbudde/algo-blockstream/internal/config"
	"github.com/cwbudde/algo-blockstream/internal/host"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "render":
		err = runRender(args)
	case "live":
		err = runLive(args)
	case "devices":
		err = runDevices()
	case "-h", "-help", "--help", "help":
		usage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage(os.Stderr)
		os.Exit(2)
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: blockstream <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  render   process a WAV file offline")
	fmt.Fprintln(w, "  live     process the default duplex device")
	fmt.Fprintln(w, "  devices  list audio devices")
}

// loadConfig resolves the configuration for a subcommand. The arguments are
// parsed twice: once to find -config, and once more on top of the loaded
// file and environment so that flags win.
func loadConfig(name string, args []string, extra func(*flag.FlagSet)) (*config.Config, *flag.FlagSet, error) {
	var path string

	probe := flag.NewFlagSet(name, flag.ContinueOnError)
	probe.SetOutput(io.Discard)
	probe.StringVar(&path, "config", "", "")
	config.DefaultConfig().RegisterFlags(probe)
	if extra != nil {
		extra(probe)
	}
	_ = probe.Parse(args)

	cfg, err := config.LoadWithFallback(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ApplyEnv(".env"); err != nil {
		return nil, nil, err
	}

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", path, "path to configuration file")
	cfg.RegisterFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return cfg, fs, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

func runRender(args []string) error {
	var keepLatency bool
	cfg, fs, err := loadConfig("render", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&keepLatency, "keep-latency", false, "write the output with the processing delay in front")
	})
	if err != nil {
		return err
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		return errors.New("render needs an input file and an optional output file")
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	input, sampleRate, err := host.ReadWAV(fs.Arg(0))
	if err != nil {
		return err
	}
	cfg.Audio.SampleRate = float64(sampleRate)
	if err := cfg.Validate(); err != nil {
		return err
	}

	var (
		pitches  int
		pitchSum float64
	)
	notify := func(n quantum.Notification) {
		switch n.Kind {
		case quantum.PitchDetected:
			pitches++
			pitchSum += float64(n.Value)
			logger.Debug("pitch detected", zap.Float32("hz", n.Value))
		case quantum.Levels:
			logger.Debug("levels",
				zap.Float64("input_db", core.LinearToDB(float64(n.Input))),
				zap.Float64("output_db", core.LinearToDB(float64(n.Output))))
		}
	}

	p, err := quantum.New(
		quantum.WithLogger(logger),
		quantum.WithNotifier(notify),
		quantum.WithDefaults(cfg.ProcessorDefaults()...),
	)
	if err != nil {
		return err
	}
	if err := p.OnControlEvent(quantum.ModuleReady{Engine: cfg.Engine}); err != nil {
		return err
	}
	if err := p.OnControlEvent(cfg.Initialize()); err != nil {
		return err
	}

	start := time.Now()
	render := host.RenderAligned
	if keepLatency {
		render = host.Render
	}
	output, err := render(p, input, cfg.Audio.Quantum)
	if err != nil {
		return err
	}
	logger.Info("rendered",
		zap.String("input", fs.Arg(0)),
		zap.Int("samples", len(input)),
		zap.Int("latency", p.Latency()),
		zap.Uint64("blocks", p.Blocks()),
		zap.Duration("elapsed", time.Since(start)))

	if pitches > 0 {
		fmt.Printf("%d pitched blocks, mean %.2f Hz\n", pitches, pitchSum/float64(pitches))
	}

	if fs.NArg() == 2 {
		if err := host.WriteWAV(fs.Arg(1), output, sampleRate, host.DefaultBitDepth); err != nil {
			return err
		}
		logger.Info("wrote output", zap.String("path", fs.Arg(1)))
	}
	return nil
}

func runLive(args []string) error {
	cfg, _, err := loadConfig("live", args, nil)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var srv *bridge.Server
	notify := func(n quantum.Notification) {
		if srv != nil {
			srv.Broadcast(n)
		}
		if n.Kind == quantum.PitchDetected {
			logger.Debug("pitch detected", zap.Float32("hz", n.Value))
		}
	}

	p, err := quantum.New(
		quantum.WithLogger(logger),
		quantum.WithNotifier(notify),
		quantum.WithDefaults(cfg.ProcessorDefaults()...),
	)
	if err != nil {
		return err
	}
	ctrl, err := quantum.NewController(p)
	if err != nil {
		return err
	}
	if cfg.Bridge.Enabled {
		srv, err = bridge.NewServer(ctrl,
			bridge.WithLogger(logger.Named("bridge")),
			bridge.WithFallbackEngine(cfg.Engine))
		if err != nil {
			return err
		}
	}

	if err := ctrl.Send(quantum.ModuleReady{Engine: cfg.Engine}); err != nil {
		return err
	}
	if err := ctrl.Send(cfg.Initialize()); err != nil {
		return err
	}

	dev, err := host.NewDevice(p, host.DeviceConfig{
		SampleRate:   uint32(cfg.Audio.SampleRate),
		PeriodFrames: uint32(cfg.Audio.Quantum),
	}, logger.Named("device"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return dev.Run(ctx)
	})

	if srv != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Bridge.Path, srv)
		httpSrv := &http.Server{Addr: cfg.Bridge.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			logger.Info("bridge listening", zap.String("addr", cfg.Bridge.Addr), zap.String("path", cfg.Bridge.Path))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("bridge: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			srv.Close()
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	logger.Info("streaming",
		zap.String("engine", cfg.Engine),
		zap.Float64("sample_rate", cfg.Audio.SampleRate),
		zap.Int("block_size", cfg.BlockSize()),
		zap.Int("quantum", cfg.Audio.Quantum))

	err = g.Wait()
	logger.Info("stopped",
		zap.Uint64("blocks", p.Blocks()),
		zap.Uint64("periods", dev.Periods()),
		zap.Uint64("dropped_notifications", p.DroppedNotifications()))
	return err
}

func runDevices() error {
	devices, err := host.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Println("no audio devices found")
		return nil
	}
	for _, d := range devices {
		fmt.Println(d)
	}
	return nil
}
