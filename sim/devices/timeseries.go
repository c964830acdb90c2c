package devices

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/homesim/homesim/sim"
)

// Timeseries replay types. Each replays a relative profile (values in [0, 1]) scaled by
// rated_capacity. Demand is consumption and publishes negative power.
var (
	PVType         = timeseriesType("PV", 1)
	LuminosityType = timeseriesType("Luminosity", 1)
	DemandType     = timeseriesType("Demand", -1)
)

func timeseriesType(name string, sign float64) *sim.EntityType {
	return &sim.EntityType{
		Name: name,
		Schema: sim.Schema{
			Params:  []string{"series", "file", "column", "rated_capacity", "resolution", "phase"},
			Outputs: []sim.AttrSpec{sim.FloatAttr("P"), sim.FloatAttr("zs")},
		},
		StepSize: 5,
		New: func(id string, p sim.Params, _ sim.Env) (sim.Model, error) {
			return newTimeseries(id, p, sign)
		},
	}
}

// Timeseries is the state of one replay entity. The profile is loaded once at construction.
type Timeseries struct {
	series     []float64
	capacity   float64
	sign       float64
	resolution int64 // seconds per sample
	phase      int64 // samples the profile is shifted right by
	cur        float64
}

func newTimeseries(id string, p sim.Params, sign float64) (*Timeseries, error) {
	ts := &Timeseries{sign: sign}
	var err error
	if ts.capacity, err = p.Float("rated_capacity", 1); err != nil {
		return nil, err
	}
	if ts.resolution, err = p.Int("resolution", 60); err != nil {
		return nil, err
	}
	if ts.resolution <= 0 {
		return nil, fmt.Errorf("resolution must be > 0, got %d", ts.resolution)
	}
	if ts.phase, err = p.Int("phase", 0); err != nil {
		return nil, err
	}
	if ts.series, err = p.Floats("series"); err != nil {
		return nil, err
	}
	file, err := p.String("file", "")
	if err != nil {
		return nil, err
	}
	switch {
	case file != "" && ts.series != nil:
		return nil, fmt.Errorf("%s: series and file are mutually exclusive", id)
	case file != "":
		column, err := p.String("column", "value")
		if err != nil {
			return nil, err
		}
		if ts.series, err = LoadSeriesCSV(file, column); err != nil {
			return nil, err
		}
	}
	if len(ts.series) == 0 {
		return nil, fmt.Errorf("%s: empty series", id)
	}
	ts.cur = ts.at(0)
	return ts, nil
}

// at returns the profile value for simulated time now, wrapping around the series.
func (ts *Timeseries) at(now int64) float64 {
	n := int64(len(ts.series))
	i := ((now/ts.resolution-ts.phase)%n + n) % n
	return ts.series[i]
}

// Step implements sim.Model.
func (ts *Timeseries) Step(now int64, _ sim.Inputs) error {
	ts.cur = ts.at(now)
	return nil
}

// Get implements sim.Model.
func (ts *Timeseries) Get(attr string) (sim.Value, error) {
	switch attr {
	case "P":
		return sim.Float(ts.sign * ts.capacity * ts.cur), nil
	case "zs":
		return sim.Float(ts.cur), nil
	}
	return sim.Value{}, fmt.Errorf("no attribute %q", attr)
}

// LoadSeriesCSV reads one numeric column, selected by header name, from a CSV file.
func LoadSeriesCSV(path, column string) ([]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series CSV: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read series CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("series CSV %s empty or missing header", path)
	}

	col := -1
	for i, h := range records[0] {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("series CSV %s: no column %q", path, column)
	}

	out := make([]float64, 0, len(records)-1)
	for i, record := range records[1:] { // Skip header
		if col >= len(record) {
			return nil, fmt.Errorf("series CSV row %d: missing column %q", i+2, column)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
		if err != nil {
			return nil, fmt.Errorf("series CSV row %d: invalid %s: %w", i+2, column, err)
		}
		out = append(out, v)
	}
	return out, nil
}
