// Package trace provides decision-trace recording for rule-engine analysis.
// It stores pure data types and does not import sim/ or sim/rules/.
package trace

// FiringRecord captures a single rule activation that fired.
type FiringRecord struct {
	Entity   string
	Clock    int64
	Rule     string
	Salience int
	Facts    []int    // ids of the matched facts, one per positive pattern
	Declared []string // facts the action declared, rendered as text
}

// PassRecord captures the outcome of one full evaluation pass of a controller.
type PassRecord struct {
	Entity  string
	Clock   int64
	Firings int
	Outputs map[string]string // collected outputs rendered as text
	Err     string            // empty on success
}
