package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalPasses        int
	FailedPasses       int
	TotalFirings       int
	MeanFiringsPerPass float64
	MaxFiringsPerPass  int
	UniqueRules        int
	RuleDistribution   map[string]int // rule name → number of firings
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		RuleDistribution: make(map[string]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalPasses = len(st.Passes)
	total := 0
	for _, p := range st.Passes {
		if p.Err != "" {
			summary.FailedPasses++
		}
		total += p.Firings
		if p.Firings > summary.MaxFiringsPerPass {
			summary.MaxFiringsPerPass = p.Firings
		}
	}
	if len(st.Passes) > 0 {
		summary.MeanFiringsPerPass = float64(total) / float64(len(st.Passes))
	}

	summary.TotalFirings = len(st.Firings)
	for _, f := range st.Firings {
		summary.RuleDistribution[f.Rule]++
	}
	summary.UniqueRules = len(summary.RuleDistribution)

	return summary
}
