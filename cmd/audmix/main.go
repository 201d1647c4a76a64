// SPDX-License-Identifier: EPL-2.0

// Command audmix plays audio files simultaneously through the system audio
// device and exits when all of them have finished.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/audmix/engine"
	"github.com/ik5/audmix/internal/config"
	"github.com/ik5/audmix/internal/observe"
	"github.com/ik5/audmix/record"
	"github.com/ik5/audmix/voice"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	volume := flag.Float64("volume", 1, "initial volume of every file, 0 to 1")
	spread := flag.Bool("spread", false, "pan the files evenly from left to right")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: audmix [flags] <file>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "audmix: %v\n", err)
			return 1
		}
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := play(ctx, cfg, flag.Args(), float32(*volume), *spread); err != nil {
		slog.Error("audmix failed", "err", err)
		return 1
	}
	return 0
}

func play(ctx context.Context, cfg *config.Config, files []string, volume float32, spread bool) (err error) {
	opts := []engine.Option{
		engine.WithLogger(slog.Default()),
		engine.WithDevice(cfg.Device.Config),
	}

	if cfg.Metrics.Addr != "" {
		shutdown, perr := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
		if perr != nil {
			return fmt.Errorf("init metrics: %w", perr)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = errors.Join(err, shutdown(shutdownCtx))
		}()
		opts = append(opts, engine.WithMetrics(observe.DefaultMetrics()))
	}

	var rec *record.Recorder
	if cfg.Record.Path != "" {
		rec, err = record.New(cfg.Device.SampleRate, cfg.Device.Channels, cfg.Engine.RecordCapacity)
		if err != nil {
			return err
		}
		opts = append(opts, engine.WithRecorder(rec))
	}

	eng, err := engine.New(cfg.Engine, opts...)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, eng.Close()) }()

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	defer func() {
		cancel()
		if werr := g.Wait(); err == nil {
			err = werr
		}
	}()

	if rec != nil {
		f, cerr := os.Create(cfg.Record.Path)
		if cerr != nil {
			return cerr
		}
		g.Go(func() error {
			return errors.Join(rec.Run(gctx, f), f.Close())
		})
	}

	if cfg.Metrics.Addr != "" {
		serveMetrics(gctx, g, cfg.Metrics.Addr)
	}

	out, err := openOutput(cfg.Device, eng)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, out.Close()) }()

	if err := eng.Start(gctx); err != nil {
		return err
	}
	g.Go(func() error { return out.Run(gctx) })

	ids := make([]voice.ID, 0, len(files))
	for i, path := range files {
		id, err := openFile(eng, path, volume, panFor(i, len(files), spread))
		if err != nil {
			slog.Warn("skipping file", "path", path, "err", err)
			continue
		}
		slog.Info("playing", "path", path, "voice", id)
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return errors.New("nothing to play")
	}

	g.Go(func() error {
		defer cancel()
		return wait(gctx, eng, out, ids)
	})

	return g.Wait()
}

func openFile(eng *engine.Engine, path string, volume, pan float32) (voice.ID, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	id, err := eng.Open(format, f, engine.WithVolume(volume), engine.WithPan(pan))
	if err != nil {
		// The source already closed f if decoding succeeded.
		_ = f.Close()
		return 0, err
	}
	return id, nil
}

func panFor(i, n int, spread bool) float32 {
	if !spread || n < 2 {
		return 0
	}
	return -1 + 2*float32(i)/float32(n-1)
}

// wait returns once every voice has finished, or the device failed.
func wait(ctx context.Context, eng *engine.Engine, out output, ids []voice.ID) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := out.Err(); err != nil {
			eng.ReportDeviceError(err)
			return eng.Err()
		}

		done := 0
		for _, id := range ids {
			if s, ok := eng.State(id); !ok || s.Terminal() {
				done++
			}
		}
		if done == len(ids) {
			st := eng.Stats()
			slog.Info("all voices done",
				"finished", st.VoicesFinished,
				"failed", st.VoicesFailed,
				"underruns", st.Underruns)
			return nil
		}
	}
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
