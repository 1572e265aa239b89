package gate

import (
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/penpipe/internal/logging"
	"github.com/verte-zerg/penpipe/internal/model"
	"github.com/verte-zerg/penpipe/internal/pipeline"
)

// DefaultBaselineVersion is recorded when no baseline version is supplied.
const DefaultBaselineVersion = "baseline-v1"

// Options configures a gate run. Start from DefaultOptions; the zero
// PipelineConfig has pressure disabled.
type Options struct {
	// RunID is used as run_meta.id; a random UUID is generated when empty.
	RunID string
	// Now supplies the run timestamp. Defaults to time.Now.
	Now             func() time.Time
	Env             RunEnv
	DocVersions     map[string]string
	BaselineVersion string
	Thresholds      Thresholds
	Config          model.PipelineConfig
	Comparer        FinalComparer
}

// DefaultOptions returns options with the stock pipeline configuration and
// thresholds.
func DefaultOptions() Options {
	return Options{
		BaselineVersion: DefaultBaselineVersion,
		Thresholds:      DefaultThresholds(),
		Config:          model.DefaultPipelineConfig(),
		Comparer:        StubComparer{},
	}
}

func (o Options) withDefaults() Options {
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.BaselineVersion == "" {
		o.BaselineVersion = DefaultBaselineVersion
	}
	if o.Thresholds == (Thresholds{}) {
		o.Thresholds = DefaultThresholds()
	}
	if o.Comparer == nil {
		o.Comparer = StubComparer{}
	}
	return o
}

type evaluation struct {
	stage    StageMetrics
	final    FinalMetrics
	fast     FastWindowsMetrics
	checks   map[string]Verdict
	results  []Result
	overall  Verdict
	blocking []string
}

func evaluate(samples []model.RawInputSample, cfg model.PipelineConfig, th Thresholds, cmp FinalComparer) evaluation {
	strokes := pipeline.Replay(cfg, samples)

	ev := evaluation{
		stage:  stageMetrics(samples, cfg, strokes),
		final:  cmp.Compare(pipeline.Flatten(strokes)),
		fast:   fastWindowsMetrics(strokes, th),
		checks: runChecks(checkInput{cfg: cfg, samples: samples, strokes: strokes}),
	}

	stageReasons := ev.stage.Violations()
	for _, name := range CheckNames() {
		if ev.checks[name] != Pass {
			stageReasons = append(stageReasons, "check failed: "+name)
		}
	}
	ev.results = []Result{
		newResult(StageGate, stageReasons),
		newResult(FinalGate, ev.final.Violations(th.FinalTolerance)),
		newResult(FastGate, ev.fast.Violations()),
	}
	ev.overall, ev.blocking = Reduce(ev.results...)
	return ev
}

func (ev evaluation) gate(name Name) Verdict {
	for _, r := range ev.results {
		if r.Gate == name {
			return r.Verdict
		}
	}
	return Fail
}

func (ev evaluation) subResult(name string) SubResult {
	return SubResult{
		Name:               name,
		StageMetrics:       ev.stage,
		FinalMetrics:       ev.final,
		FastWindowsMetrics: ev.fast,
		SemanticChecks:     ev.checks,
		StageGate:          ev.gate(StageGate),
		FinalGate:          ev.gate(FinalGate),
		FastGate:           ev.gate(FastGate),
		Overall:            ev.overall,
		BlockingFailures:   ev.blocking,
	}
}

// Run replays a captured stroke under the run configuration, every case
// variant and every brush preset, and assembles the artifact. It never
// fails: malformed samples surface as metrics and failing verdicts. Apart
// from run_meta the artifact is a pure function of stroke and opts.
func Run(stroke model.CapturedStroke, opts Options) Artifact {
	opts = opts.withDefaults()
	log := logging.Logger().With("run_id", opts.RunID, "stroke_id", stroke.ID)

	samples := make([]model.RawInputSample, len(stroke.Samples))
	copy(samples, stroke.Samples)

	top := evaluate(samples, opts.Config, opts.Thresholds, opts.Comparer)

	summary := Summary{GateReasons: map[string][]string{}}
	for _, r := range top.results {
		if len(r.Reasons) > 0 {
			summary.GateReasons[string(r.Gate)] = r.Reasons
		}
	}

	var caseResults []SubResult
	for _, c := range Cases() {
		caseSamples := samples
		if c.Transform != nil {
			caseSamples = c.Transform(samples)
		}
		ev := evaluate(caseSamples, c.Configure(opts.Config), opts.Thresholds, opts.Comparer)
		caseResults = append(caseResults, ev.subResult(c.Name))
		if ev.overall == Pass {
			summary.CasesPassed++
		}
		log.Debug("case evaluated", "case", c.Name, "overall", ev.overall)
	}

	var presetResults []SubResult
	for _, p := range Presets() {
		ev := evaluate(samples, p.Config, opts.Thresholds, opts.Comparer)
		presetResults = append(presetResults, ev.subResult(p.Name))
		if ev.overall == Pass {
			summary.PresetsPassed++
		}
		log.Debug("preset evaluated", "preset", p.Name, "overall", ev.overall)
	}
	summary.CaseCount = len(caseResults)
	summary.PresetCount = len(presetResults)

	docVersions := make(map[string]string, len(opts.DocVersions))
	for k, v := range opts.DocVersions {
		docVersions[k] = v
	}

	artifact := Artifact{
		RunMeta: RunMeta{
			ID:          opts.RunID,
			Timestamp:   opts.Now().UTC().Format(time.RFC3339Nano),
			DocVersions: docVersions,
			Env:         opts.Env,
		},
		InputHash:          HashStroke(stroke),
		BaselineVersion:    opts.BaselineVersion,
		ThresholdVersion:   opts.Thresholds.Version,
		StageMetrics:       top.stage,
		FinalMetrics:       top.final,
		FastWindowsMetrics: top.fast,
		SemanticChecks:     top.checks,
		StageGate:          top.gate(StageGate),
		FinalGate:          top.gate(FinalGate),
		FastGate:           top.gate(FastGate),
		Overall:            top.overall,
		BlockingFailures:   top.blocking,
		CaseResults:        caseResults,
		PresetResults:      presetResults,
		Summary:            summary,
	}
	log.Info("gate run complete", "overall", artifact.Overall, "blocking", artifact.BlockingFailures)
	return artifact
}
