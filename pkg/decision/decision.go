package decision

// Verdict is the ternary recommendation.
type Verdict string

// Verdicts.
const (
	Yes   Verdict = "YES"
	Maybe Verdict = "MAYBE"
	No    Verdict = "NO"
)

// Confidence thresholds, inclusive lower bounds.
const (
	YesThreshold   = 60.0
	MaybeThreshold = 40.0
)

// Result is the outcome of one evaluation.
type Result struct {
	Decision   Verdict
	Confidence float64 // 0-100
	Mode       Mode
	Score      float64
	MaxScore   float64
	Metrics    Metrics
	Factors    []Factor
	Reasoning  []string // mode banner first, then one line per factor
}

// Classify maps a confidence percentage to a verdict.
// This is the only place a verdict is assigned.
func Classify(confidence float64) Verdict {
	switch {
	case confidence >= YesThreshold:
		return Yes
	case confidence >= MaybeThreshold:
		return Maybe
	default:
		return No
	}
}

// Calculate evaluates whether the optimization described by p is worth it.
// It is pure: no I/O, no shared state, and identical inputs give identical results.
// Inputs are not validated; see Validate.
func Calculate(p Params) Result {
	m := DeriveMetrics(p)
	card := Score(m, p.OptimizationPreference)
	confidence := card.Score / card.MaxScore * 100

	return Result{
		Decision:   Classify(confidence),
		Confidence: confidence,
		Mode:       card.Mode,
		Score:      card.Score,
		MaxScore:   card.MaxScore,
		Metrics:    m,
		Factors:    card.Factors,
		Reasoning:  card.Reasoning,
	}
}
