package main

import (
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"

	"pixelize/internal/logger"
	"pixelize/internal/preview"
	"pixelize/internal/util"
	"pixelize/pkg/config"
	"pixelize/pkg/engine"
	"pixelize/pkg/pixelize"
)

func init() {
	// GLFW requires the program to be running on the main thread
	runtime.LockOSThread()
}

type options struct {
	configPath  string
	in          string
	out         string
	window      bool
	preview     bool
	height      int
	strategy    string
	metricsAddr string
	logLevel    string
}

func parseFlags(args []string) (*options, map[string]bool, error) {
	opts := &options{}
	fs := flag.NewFlagSet("pixelize", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.in, "in", "", "Input image (PNG or JPEG); empty renders the procedural scene")
	fs.StringVar(&opts.out, "out", "", "Output PNG path")
	fs.BoolVar(&opts.window, "window", false, "Run the interactive OpenGL demo")
	fs.BoolVar(&opts.preview, "preview", false, "Show the result in the terminal")
	fs.IntVar(&opts.height, "height", 0, "Pixel grid height (overrides effect.pixel_height)")
	fs.StringVar(&opts.strategy, "strategy", "", "single-buffer or antialias-suppressing")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn, error or silent")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, set, nil
}

// applyFlags overrides cfg with the flags the user set and validates the
// result.
func applyFlags(cfg *config.Config, opts *options, set map[string]bool) error {
	if set["height"] {
		cfg.Effect.PixelHeight = opts.height
	}
	if set["strategy"] {
		s, err := pixelize.ParseStrategy(opts.strategy)
		if err != nil {
			return err
		}
		cfg.Effect.Strategy = s
	}
	if set["metrics-addr"] {
		cfg.Metrics.Enabled = opts.metricsAddr != ""
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if set["log-level"] {
		cfg.Logging.Level = opts.logLevel
	}
	return cfg.Validate()
}

// loadConfig reads the config file, applies the flags and validates the
// result once. A missing file leaves the defaults and sets missing.
func loadConfig(opts *options, set map[string]bool) (cfg *config.Config, missing bool, err error) {
	cfg, err = config.ReadConfig(opts.configPath)
	if err != nil {
		if util.FileExists(opts.configPath) {
			return nil, false, err
		}
		missing = true
	}
	if err := applyFlags(cfg, opts, set); err != nil {
		return nil, missing, err
	}
	return cfg, missing, nil
}

func newLogger(cfg config.LoggingConfig) (*logger.Logger, error) {
	if cfg.File != "" {
		return logger.NewMultiLogger(cfg.Level, cfg.File)
	}
	return logger.NewLogger(cfg.Level), nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "pixelize:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, set, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, missing, err := loadConfig(opts, set)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Close()
	if missing && set["config"] {
		log.Warnf("Config file %s not found, using defaults", opts.configPath)
	}

	metrics := pixelize.NewMetrics(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		srv := newMetricsServer(cfg.Metrics.Addr, cfg.Metrics.Path)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warnf("Metrics server exited: %v", err)
			}
		}()
		defer srv.Close()
		log.Infof("Serving metrics on %s%s", cfg.Metrics.Addr, cfg.Metrics.Path)
	}

	if opts.window {
		log.Info("Starting pixelize demo...")
		e, err := engine.NewEngine(cfg, log, metrics)
		if err != nil {
			return fmt.Errorf("failed to initialize engine: %w", err)
		}
		e.Run()
		return nil
	}

	img := generateScene(cfg)
	if opts.in != "" {
		if img, err = loadImage(opts.in); err != nil {
			return err
		}
	}

	if err := processImage(img, cfg.Effect, log, metrics); err != nil {
		return err
	}

	if opts.out != "" {
		if err := savePNG(opts.out, img); err != nil {
			return err
		}
		log.Infof("Wrote %s", opts.out)
	}

	if opts.preview {
		screen, err := tcell.NewScreen()
		if err != nil {
			return err
		}
		if err := screen.Init(); err != nil {
			return err
		}
		preview.Show(screen, img)
		screen.Fini()
	}
	return nil
}
