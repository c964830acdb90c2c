package trace

import (
	"testing"
)

func TestSimulationTrace_RecordFiring_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN a firing record is recorded
	st.RecordFiring(FiringRecord{
		Entity:   "control_0",
		Clock:    10,
		Rule:     "low_temp",
		Salience: 5,
		Facts:    []int{1},
	})

	// THEN the trace contains one firing record with correct data
	if len(st.Firings) != 1 {
		t.Fatalf("expected 1 firing, got %d", len(st.Firings))
	}
	if st.Firings[0].Rule != "low_temp" {
		t.Errorf("expected rule low_temp, got %s", st.Firings[0].Rule)
	}
	if st.Firings[0].Salience != 5 {
		t.Errorf("expected salience 5, got %d", st.Firings[0].Salience)
	}
}

func TestSimulationTrace_RecordPass_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN a pass record is recorded
	st.RecordPass(PassRecord{
		Entity:  "control_0",
		Clock:   5,
		Firings: 4,
		Outputs: map[string]string{"heating": "true"},
	})

	// THEN the trace contains one pass record with correct data
	if len(st.Passes) != 1 {
		t.Fatalf("expected 1 pass, got %d", len(st.Passes))
	}
	if st.Passes[0].Outputs["heating"] != "true" {
		t.Errorf("expected heating=true, got %q", st.Passes[0].Outputs["heating"])
	}
}

func TestSimulationTrace_MultipleRecords_PreservesOrder(t *testing.T) {
	// GIVEN a trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN multiple records are added
	st.RecordFiring(FiringRecord{Entity: "c", Clock: 0, Rule: "a"})
	st.RecordFiring(FiringRecord{Entity: "c", Clock: 0, Rule: "b"})
	st.RecordFiring(FiringRecord{Entity: "c", Clock: 5, Rule: "c"})

	// THEN order is preserved
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if st.Firings[i].Rule != w {
			t.Errorf("firing %d: expected rule %s, got %s", i, w, st.Firings[i].Rule)
		}
	}
}

func TestSimulationTrace_Enabled(t *testing.T) {
	var nilTrace *SimulationTrace
	if nilTrace.Enabled() {
		t.Error("nil trace must report disabled")
	}
	if NewSimulationTrace(TraceConfig{Level: TraceLevelNone}).Enabled() {
		t.Error("level none must report disabled")
	}
	if !NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions}).Enabled() {
		t.Error("level decisions must report enabled")
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"", true},
		{"none", true},
		{"decisions", true},
		{"verbose", false},
		{"DECISIONS", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.valid {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
		}
	}
}
