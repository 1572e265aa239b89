package gate

// Verdict is the outcome of a check or gate.
type Verdict string

// Verdict values.
const (
	Pass Verdict = "pass"
	Fail Verdict = "fail"
)

// verdictOf maps a boolean outcome to a Verdict.
func verdictOf(ok bool) Verdict {
	if ok {
		return Pass
	}
	return Fail
}

// Name identifies one of the three sub-gates.
type Name string

// Sub-gate names, in reporting order.
const (
	StageGate Name = "stage_gate"
	FinalGate Name = "final_gate"
	FastGate  Name = "fast_gate"
)

// Result is the tagged outcome of one sub-gate.
type Result struct {
	Gate    Name
	Verdict Verdict
	Reasons []string
}

// newResult builds a Result that fails exactly when reasons is non-empty.
func newResult(gate Name, reasons []string) Result {
	return Result{Gate: gate, Verdict: verdictOf(len(reasons) == 0), Reasons: reasons}
}

// Reduce folds sub-gate results into the overall verdict and the ordered
// list of blocking failures. The overall verdict passes only when every
// result passes.
func Reduce(results ...Result) (Verdict, []string) {
	blocking := []string{}
	for _, r := range results {
		if r.Verdict != Pass {
			blocking = append(blocking, string(r.Gate))
		}
	}
	return verdictOf(len(blocking) == 0), blocking
}
