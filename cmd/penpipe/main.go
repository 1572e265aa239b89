// Package main provides the CLI entrypoint for penpipe.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/penpipe/internal/capture"
	"github.com/verte-zerg/penpipe/internal/config"
	"github.com/verte-zerg/penpipe/internal/gate"
	"github.com/verte-zerg/penpipe/internal/logging"
	"github.com/verte-zerg/penpipe/internal/model"
	"github.com/verte-zerg/penpipe/internal/pipeline"
	"github.com/verte-zerg/penpipe/internal/runsui"
	"github.com/verte-zerg/penpipe/internal/stats"
	"github.com/verte-zerg/penpipe/internal/store"
	"github.com/verte-zerg/penpipe/internal/synth"
)

const (
	defaultJobs   = 4
	defaultWindow = 20
)

var version = "dev"

var (
	verbose bool

	gateThresholds  string
	gateArtifactDir string
	gateBaseline    string
	gateDevice      string
	gateJobs        int
	gateNoFail      bool
	gateNoStore     bool
	gateDocVersions map[string]string

	replayOut string

	synthSeed    int64
	synthOut     string
	synthCfg     = synth.DefaultConfig()
	synthNoHover bool

	runsSource string
	runsSince  string
	runsLast   int
	runsWindow int

	thresholdsForce bool
)

// pipelineFlags holds the pipeline settings shared by gate and replay.
type pipelineFlags struct {
	pressure    bool
	deviceTime  bool
	maxSpeed    float64
	smoothing   int
	spacing     float64
	maxInterval float64
}

var (
	gatePipeline   pipelineFlags
	replayPipeline pipelineFlags
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "penpipe",
		Short:         "Pen input pipeline replay and release gate",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline and gate details to stderr")

	rootCmd.AddCommand(newGateCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newSynthCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newThresholdsCmd())

	return rootCmd
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	def := model.DefaultPipelineConfig()
	cmd.Flags().BoolVar(&f.pressure, "pressure", def.PressureEnabled, "use pen pressure (false paints at full pressure)")
	cmd.Flags().BoolVar(&f.deviceTime, "device-time", def.UseDeviceTimeForSpeed, "derive speed from device timestamps when present")
	cmd.Flags().Float64Var(&f.maxSpeed, "max-speed", def.MaxAllowedSpeedPxPerMs, "speed in px/ms mapped to drawing speed 1.0")
	cmd.Flags().IntVar(&f.smoothing, "smoothing", def.SpeedSmoothingSamples, "speed smoothing window in samples")
	cmd.Flags().Float64Var(&f.spacing, "spacing", def.SpacingPx, "distance between emitted points in px")
	cmd.Flags().Float64Var(&f.maxInterval, "max-interval", def.MaxIntervalUs, "time between emitted points in us")
}

// resolve merges the config file into flags the user did not set and returns
// the resulting pipeline configuration.
func (f *pipelineFlags) resolve(cmd *cobra.Command, section config.PipelineSection) (model.PipelineConfig, error) {
	applyBoolConfig(cmd, "pressure", &f.pressure, section.Pressure)
	applyBoolConfig(cmd, "device-time", &f.deviceTime, section.DeviceTime)
	applyFloatConfig(cmd, "max-speed", &f.maxSpeed, section.MaxSpeed)
	applyIntConfig(cmd, "smoothing", &f.smoothing, section.Smoothing)
	applyFloatConfig(cmd, "spacing", &f.spacing, section.Spacing)
	applyFloatConfig(cmd, "max-interval", &f.maxInterval, section.MaxInterval)

	if f.maxSpeed <= 0 {
		return model.PipelineConfig{}, fmt.Errorf("--max-speed must be > 0")
	}
	if f.smoothing <= 0 {
		return model.PipelineConfig{}, fmt.Errorf("--smoothing must be > 0")
	}
	if f.spacing <= 0 {
		return model.PipelineConfig{}, fmt.Errorf("--spacing must be > 0")
	}
	if f.maxInterval <= 0 {
		return model.PipelineConfig{}, fmt.Errorf("--max-interval must be > 0")
	}

	patch, err := section.Patch()
	if err != nil {
		return model.PipelineConfig{}, err
	}
	patch.PressureEnabled = &f.pressure
	patch.UseDeviceTimeForSpeed = &f.deviceTime
	patch.MaxAllowedSpeedPxPerMs = &f.maxSpeed
	patch.SpeedSmoothingSamples = &f.smoothing
	patch.SpacingPx = &f.spacing
	patch.MaxIntervalUs = &f.maxInterval
	return model.DefaultPipelineConfig().Apply(patch), nil
}

func newGateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gate <capture>...",
		Short: "Replay captures and record gate verdicts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGateCmd,
	}
	cmd.Flags().StringVar(&gateThresholds, "thresholds", "", "thresholds YAML file (default: XDG config thresholds.yaml when present)")
	cmd.Flags().StringVar(&gateArtifactDir, "artifact-dir", "", "directory for JSON artifacts (default: XDG data dir)")
	cmd.Flags().StringVar(&gateBaseline, "baseline", gate.DefaultBaselineVersion, "baseline version recorded in artifacts")
	cmd.Flags().StringVar(&gateDevice, "device", "", "input device recorded in artifacts")
	cmd.Flags().IntVar(&gateJobs, "jobs", defaultJobs, "captures evaluated in parallel")
	cmd.Flags().BoolVar(&gateNoFail, "no-fail", false, "exit 0 even when a run fails")
	cmd.Flags().BoolVar(&gateNoStore, "no-store", false, "do not record runs in the database")
	cmd.Flags().StringToStringVar(&gateDocVersions, "doc-version", nil, "document versions recorded in artifacts (name=version)")
	gatePipeline.register(cmd)
	return cmd
}

type gateOutcome struct {
	source       string
	artifact     gate.Artifact
	artifactPath string
}

func runGateCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	pipelineCfg, err := gatePipeline.resolve(cmd, fileCfg.Pipeline)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "thresholds", &gateThresholds, fileCfg.Gate.Thresholds)
	applyStringConfig(cmd, "artifact-dir", &gateArtifactDir, fileCfg.Gate.ArtifactDir)
	applyStringConfig(cmd, "baseline", &gateBaseline, fileCfg.Gate.Baseline)
	applyStringConfig(cmd, "device", &gateDevice, fileCfg.Gate.Device)
	applyIntConfig(cmd, "jobs", &gateJobs, fileCfg.Gate.Jobs)
	if gateJobs <= 0 {
		return fmt.Errorf("--jobs must be > 0")
	}

	thresholds, err := config.LoadThresholds(resolveThresholdsPath(gateThresholds))
	if err != nil {
		return err
	}
	artifactDir := config.ExpandHome(gateArtifactDir)
	if artifactDir == "" {
		artifactDir = config.DefaultArtifactDir()
	}

	outcomes := make([]gateOutcome, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(gateJobs)
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stroke, err := capture.LoadStroke(path)
			if err != nil {
				return err
			}
			opts := gate.DefaultOptions()
			opts.Config = pipelineCfg
			opts.Thresholds = thresholds
			opts.BaselineVersion = gateBaseline
			opts.DocVersions = gateDocVersions
			opts.Env = gate.RunEnv{AppVersion: version, InputDevice: gateDevice, OS: runtime.GOOS}
			a := gate.Run(stroke, opts)

			out := filepath.Join(artifactDir, a.RunMeta.ID+".json")
			if err := capture.WriteJSON(out, a); err != nil {
				return fmt.Errorf("failed to write artifact for %s: %w", path, err)
			}
			outcomes[i] = gateOutcome{source: filepath.Base(path), artifact: a, artifactPath: out}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if !gateNoStore {
		st, err := store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		for _, o := range outcomes {
			if _, err := st.InsertRun(cmd.Context(), o.artifact, o.source); err != nil {
				return fmt.Errorf("failed to save run %s: %w", o.artifact.RunMeta.ID, err)
			}
		}
	}

	summaries := make([]model.RunSummary, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		summaries = append(summaries, o.artifact.Summarize(o.source))
		if !o.artifact.Passed() {
			failed++
			logErrf("%s: %s\n", o.source, strings.Join(o.artifact.BlockingFailures, ", "))
			for _, name := range o.artifact.FailedChecks() {
				logErrf("  check failed: %s\n", name)
			}
		}
		logErrf("Wrote %s\n", o.artifactPath)
	}
	if err := stats.RenderRunTable(cmd.OutOrStdout(), summaries); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if failed > 0 && !gateNoFail {
		return fmt.Errorf("%d of %d runs failed", failed, len(outcomes))
	}
	return nil
}

func resolveThresholdsPath(path string) string {
	if path != "" {
		return config.ExpandHome(path)
	}
	def := config.DefaultThresholdsPath()
	if _, err := os.Stat(def); err == nil {
		return def
	}
	return ""
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <capture>",
		Short: "Replay a capture and print the emitted points",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplayCmd,
	}
	cmd.Flags().StringVar(&replayOut, "out", "", "also write the emitted points as JSON to this file")
	replayPipeline.register(cmd)
	return cmd
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg, err := replayPipeline.resolve(cmd, fileCfg.Pipeline)
	if err != nil {
		return err
	}
	stroke, err := capture.LoadStroke(args[0])
	if err != nil {
		return err
	}

	strokes := pipeline.Replay(cfg, stroke.Samples)
	points := pipeline.Flatten(strokes)
	logErrf("%s: %d samples, %d strokes, %d points\n", stroke.ID, len(stroke.Samples), len(strokes), len(points))

	if replayOut != "" {
		if err := capture.WriteJSON(replayOut, points); err != nil {
			return err
		}
		logErrf("Wrote %s\n", replayOut)
	}
	out := cmd.OutOrStdout()
	if err := stats.RenderStream(out, points, stats.TerminalWidth(out)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newSynthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate a synthetic capture",
		Args:  cobra.NoArgs,
		RunE:  runSynthCmd,
	}
	cmd.Flags().Int64Var(&synthSeed, "seed", 1, "random seed")
	cmd.Flags().StringVar(&synthOut, "out", "", "output file (default: stdout)")
	cmd.Flags().IntVar(&synthCfg.Strokes, "strokes", synthCfg.Strokes, "number of strokes")
	cmd.Flags().IntVar(&synthCfg.SamplesPerStroke, "samples", synthCfg.SamplesPerStroke, "samples per stroke")
	cmd.Flags().Float64Var(&synthCfg.RateHz, "rate", synthCfg.RateHz, "sample rate in Hz")
	cmd.Flags().Float64Var(&synthCfg.LengthPx, "length", synthCfg.LengthPx, "stroke length in px")
	cmd.Flags().Float64Var(&synthCfg.PeakPressure, "peak-pressure", synthCfg.PeakPressure, "peak pressure (0-1)")
	cmd.Flags().Float64Var(&synthCfg.JitterPx, "jitter", synthCfg.JitterPx, "positional noise in px")
	cmd.Flags().Float64Var(&synthCfg.ClockSkewUs, "clock-skew", synthCfg.ClockSkewUs, "device clock offset in us (0 omits device time)")
	cmd.Flags().StringVar(&synthCfg.Source, "source", synthCfg.Source, "input source alias recorded on samples")
	cmd.Flags().BoolVar(&synthNoHover, "no-hover", false, "omit the hover sample before each stroke")
	return cmd
}

func runSynthCmd(cmd *cobra.Command, _ []string) error {
	cfg := synthCfg
	cfg.Hover = !synthNoHover
	stroke, err := synth.New(synthSeed).Generate(cfg)
	if err != nil {
		return err
	}
	if synthOut == "" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(stroke); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := capture.WriteStroke(synthOut, stroke); err != nil {
		return err
	}
	logErrf("Wrote %s (%d samples)\n", synthOut, len(stroke.Samples))
	return nil
}

func registerRunFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runsSource, "source", "", "capture file name filter")
	cmd.Flags().StringVar(&runsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&runsLast, "last", 0, "limit to last N runs")
	cmd.Flags().IntVar(&runsWindow, "window", defaultWindow, "recent runs used for check rankings and the moving average")
}

func runFilterFromFlags() (model.RunFilter, error) {
	filter := model.RunFilter{Source: runsSource, Limit: runsLast}
	if runsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", runsSince, time.Local)
		if err != nil {
			return model.RunFilter{}, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	if runsLast < 0 {
		return model.RunFilter{}, fmt.Errorf("--last must be >= 0")
	}
	if runsWindow <= 0 {
		return model.RunFilter{}, fmt.Errorf("--window must be > 0")
	}
	return filter, nil
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse recorded gate runs",
		Args:  cobra.NoArgs,
		RunE:  runRunsCmd,
	}
	registerRunFilterFlags(cmd)
	return cmd
}

func runRunsCmd(_ *cobra.Command, _ []string) error {
	filter, err := runFilterFromFlags()
	if err != nil {
		return err
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	program := tea.NewProgram(runsui.NewModel(st, filter, runsWindow), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run runs TUI: %w", err)
	}
	return nil
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print pass rates and failing checks",
		Args:  cobra.NoArgs,
		RunE:  runReportCmd,
	}
	registerRunFilterFlags(cmd)
	return cmd
}

func runReportCmd(cmd *cobra.Command, _ []string) error {
	filter, err := runFilterFromFlags()
	if err != nil {
		return err
	}
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	report, err := stats.BuildReport(cmd.Context(), st, stats.ReportConfig{Filter: filter, Window: runsWindow})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := report.Render(out, stats.TerminalWidth(out)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(config.Template), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newThresholdsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Write the default thresholds file",
		Args:  cobra.NoArgs,
		RunE:  runThresholdsCmd,
	}
	cmd.Flags().BoolVar(&thresholdsForce, "force", false, "overwrite an existing file")
	return cmd
}

func runThresholdsCmd(cmd *cobra.Command, _ []string) error {
	path := config.DefaultThresholdsPath()
	if !thresholdsForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("thresholds file already exists: %s (use --force to overwrite)", path)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat thresholds: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.WriteThresholds(path, gate.DefaultThresholds()); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
