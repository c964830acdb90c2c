package devices

import "github.com/homesim/homesim/sim"

type floatParam struct {
	name string
	def  float64
	dst  *float64
}

func floatParams(p sim.Params, fs []floatParam) error {
	for _, f := range fs {
		v, err := p.Float(f.name, f.def)
		if err != nil {
			return err
		}
		*f.dst = v
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
