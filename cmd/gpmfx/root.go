package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mohaanymo/gpmfx/internal/config"
	"github.com/mohaanymo/gpmfx/internal/engine"
	"github.com/mohaanymo/gpmfx/internal/logging"
	"github.com/mohaanymo/gpmfx/internal/metrics"
)

var (
	cfgFile string
	flags   = config.New()
)

var rootCmd = &cobra.Command{
	Use:   "gpmfx",
	Short: "Extract GPMF telemetry from MP4 camera recordings",
	Long: `gpmfx reads MP4 recordings and extracts the embedded telemetry track
(GPMF, sample entry "gpmd") together with its timing.

For every input it writes:

  <name>.gpmf          the raw payload of every sample, in order
  <name>.timing.json   sample times, video duration and capture start

Example:
  gpmfx extract GX010001.MP4 GX010002.MP4 -o telemetry/
  gpmfx tracks GX010001.MP4`,
	Version:       fmt.Sprintf("%s (%s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML config file")
	pf.StringVar(&flags.Codec, "codec", config.DefaultCodec, "sample entry code of the track to extract")
	pf.IntVar(&flags.ChunkSize, "chunk-size", config.DefaultChunkSize, "background read size in bytes")
	pf.IntVar(&flags.FallbackChunkSize, "fallback-chunk-size", config.DefaultFallbackChunkSize, "in-process read size in bytes")
	pf.Int64Var(&flags.MaxBandwidth, "max-bandwidth", 0, "read limit in bytes per second (0 = unlimited)")
	pf.DurationVar(&flags.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "how long to wait for a remote server to respond")
	pf.BoolVar(&flags.NoProgress, "no-progress", false, "disable the interactive UI")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose logging")
	pf.StringVar(&flags.LogFile, "log-file", "", "log to a daily rotated file instead of stderr")
	pf.StringVar(&flags.LogFormat, "log-format", config.DefaultLogFormat, "log format: text or json")
	pf.StringVar(&flags.LogLevel, "log-level", config.DefaultLogLevel, "log level")
	pf.StringVar(&flags.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	noBackground := false
	pf.BoolVar(&noBackground, "no-background", false, "read in the main goroutine")
	cobra.OnInitialize(func() { flags.UseBackground = !noBackground })
}

// loadConfig merges the config file, if any, with explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if cfgFile == "" {
		cfg := *flags
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
	set("codec", func() { cfg.Codec = flags.Codec })
	set("chunk-size", func() { cfg.ChunkSize = flags.ChunkSize })
	set("fallback-chunk-size", func() { cfg.FallbackChunkSize = flags.FallbackChunkSize })
	set("max-bandwidth", func() { cfg.MaxBandwidth = flags.MaxBandwidth })
	set("http-timeout", func() { cfg.HTTPTimeout = flags.HTTPTimeout })
	set("no-progress", func() { cfg.NoProgress = flags.NoProgress })
	set("verbose", func() { cfg.Verbose = flags.Verbose })
	set("log-file", func() { cfg.LogFile = flags.LogFile })
	set("log-format", func() { cfg.LogFormat = flags.LogFormat })
	set("log-level", func() { cfg.LogLevel = flags.LogLevel })
	set("metrics-addr", func() { cfg.MetricsAddr = flags.MetricsAddr })
	set("no-background", func() { cfg.UseBackground = flags.UseBackground })
	set("output", func() { cfg.OutputDir = flags.OutputDir })
	set("threads", func() { cfg.Threads = flags.Threads })

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds what every command needs.
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	metrics *metrics.Collector
	engine  *engine.Engine
	stop    func()
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	lc := logging.FromConfig(cfg)
	logger, err := lc.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{
		cfg:     cfg,
		log:     logger,
		metrics: metrics.New(),
		stop:    func() {},
	}
	a.engine = engine.New(cfg, engine.WithLogger(logger), engine.WithMetrics(a.metrics))

	if cfg.MetricsAddr != "" {
		a.stop = a.serveMetrics(cfg.MetricsAddr)
	}
	return a, nil
}

// serveMetrics exposes /metrics until the returned func is called.
func (a *app) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.WithError(err).Error("metrics server stopped")
		}
	}()
	a.log.WithField("addr", addr).Info("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}
