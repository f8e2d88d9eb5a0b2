package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mocklib/internal/buffer"
	"mocklib/internal/config"
	"mocklib/internal/observ"
	"mocklib/internal/prof"
	"mocklib/internal/trace"
)

// session carries what every subcommand needs once flags and config are
// resolved.
type session struct {
	cfg    config.Config
	tracer trace.Tracer
	alloc  *buffer.TrackingAllocator
	color  bool
	quiet  bool
	span   *trace.Span
	timer  *observ.Timer // nil unless --timings
	prof   *prof.Session
}

// active is set by startSession; commands run one at a time per process.
var active *session

func currentSession() *session {
	if active == nil {
		active = &session{
			cfg:    config.Default(),
			tracer: trace.Nop,
			alloc:  buffer.NewTrackingAllocator(0),
		}
	}
	return active
}

// startSession loads mocklib.toml, applies flag overrides and builds the
// tracer and the shared allocator.
func startSession(cmd *cobra.Command, _ []string) error {
	pf := cmd.Root().PersistentFlags()

	cfg, err := loadConfig(pf.Lookup("config").Value.String())
	if err != nil {
		return err
	}

	if f := pf.Lookup("max-bytes"); f.Changed {
		n, _ := pf.GetInt("max-bytes")
		cfg.Buffer.MaxBytes = n
	}
	for flag, dst := range map[string]*string{
		"trace":        &cfg.Trace.Output,
		"trace-level":  &cfg.Trace.Level,
		"trace-mode":   &cfg.Trace.Mode,
		"trace-format": &cfg.Trace.Format,
	} {
		if f := pf.Lookup(flag); f.Changed {
			*dst = f.Value.String()
		}
	}
	// --trace without a level means "trace the command and the parser"
	if pf.Lookup("trace").Changed && !pf.Lookup("trace-level").Changed && cfg.Trace.Level == "off" {
		cfg.Trace.Level = trace.LevelDetail.String()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	// the tracer may open the --trace file, so flags are checked first
	colorFlag, _ := pf.GetString("color")
	useColor, err := resolveColor(colorFlag)
	if err != nil {
		return err
	}
	quiet, _ := pf.GetBool("quiet")

	traceCfg, err := cfg.TraceConfig()
	if err != nil {
		return err
	}
	tracer, err := trace.New(traceCfg)
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	color.NoColor = !useColor

	profiling, err := setupProfiling(cmd)
	if err != nil {
		_ = tracer.Close()
		return err
	}

	s := &session{
		cfg:    cfg,
		tracer: tracer,
		alloc:  buffer.NewTrackingAllocator(cfg.Buffer.MaxBytes),
		color:  useColor,
		quiet:  quiet,
		prof:   profiling,
	}
	if timings, _ := pf.GetBool("timings"); timings {
		s.timer = observ.NewTimer()
	}
	s.span = trace.Begin(tracer, trace.ScopeCommand, "command:"+cmd.Name(), 0)
	active = s

	ctx := trace.WithSpan(trace.WithTracer(cmd.Context(), tracer), s.span)
	cmd.SetContext(ctx)
	return nil
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return config.Config{}, err
	}
	return config.Discover(wd)
}

// finishSession closes the command span, dumps the ring buffer when a
// command failed, and releases the tracer.
func finishSession(cmd *cobra.Command, cmdErr error) {
	s := active
	if s == nil {
		return
	}
	active = nil
	if cmdErr != nil {
		s.span.Fail()
	}
	s.span.End("")

	// ring-only tracing is a post-mortem tool: show it when the command failed
	if ring, ok := s.tracer.(*trace.RingTracer); ok && cmdErr != nil {
		_ = ring.Dump(cmd.ErrOrStderr(), trace.FormatText)
	}
	if err := s.tracer.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
	}
	if err := s.prof.Stop(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
	}
	if err := s.timer.Report().WriteText(cmd.ErrOrStderr()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "timings: %v\n", err)
	}
}

// setupProfiling starts the profilers named by the persistent profiling
// flags; the returned session is nil when none are set.
func setupProfiling(cmd *cobra.Command) (*prof.Session, error) {
	pf := cmd.Root().PersistentFlags()
	var opts prof.Options
	for flag, dst := range map[string]*string{
		"cpu-profile":   &opts.CPUProfile,
		"mem-profile":   &opts.MemProfile,
		"runtime-trace": &opts.RuntimeTrace,
	} {
		v, err := pf.GetString(flag)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s flag: %w", flag, err)
		}
		*dst = v
	}
	if !opts.Enabled() {
		return nil, nil
	}
	s, err := prof.Start(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start profiling: %w", err)
	}
	return s, nil
}

func resolveColor(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return isTerminal(os.Stdout), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

// notef prints a non-essential message unless --quiet is set.
func notef(cmd *cobra.Command, format string, args ...any) {
	if currentSession().quiet {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
}
