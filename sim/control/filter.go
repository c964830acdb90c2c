package control

import "fmt"

// LowPass is a first-order low-pass filter on an actuation setpoint:
// value ← rate*target + (1-rate)*value.
type LowPass struct {
	Rate  float64
	Value float64
}

// NewLowPass returns a filter starting at initial. rate must be in (0, 1].
func NewLowPass(rate, initial float64) (*LowPass, error) {
	if !(rate > 0 && rate <= 1) {
		return nil, fmt.Errorf("setpoint change rate must be in (0, 1], got %v", rate)
	}
	return &LowPass{Rate: rate, Value: initial}, nil
}

// Update moves the filtered value toward target and returns it.
func (f *LowPass) Update(target float64) float64 {
	f.Value = f.Rate*target + (1-f.Rate)*f.Value
	return f.Value
}
