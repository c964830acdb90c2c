package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures every rule pass and firing of every controller.
	TraceLevelDecisions TraceLevel = "decisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
}

// SimulationTrace collects decision records during a run.
type SimulationTrace struct {
	Config  TraceConfig
	Passes  []PassRecord
	Firings []FiringRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:  config,
		Passes:  make([]PassRecord, 0),
		Firings: make([]FiringRecord, 0),
	}
}

// Enabled reports whether records should be collected. Safe on a nil trace.
func (st *SimulationTrace) Enabled() bool {
	return st != nil && st.Config.Level == TraceLevelDecisions
}

// RecordPass appends a pass record.
func (st *SimulationTrace) RecordPass(record PassRecord) {
	st.Passes = append(st.Passes, record)
}

// RecordFiring appends a firing record.
func (st *SimulationTrace) RecordFiring(record FiringRecord) {
	st.Firings = append(st.Firings, record)
}
