package sim

// Probe selects one (entity, attribute) pair for recording.
type Probe struct {
	Entity string
	Attr   string
}

// Key is the "entity.attr" label used by sinks.
func (p Probe) Key() string { return p.Entity + "." + p.Attr }

// Sample is one recorded value.
type Sample struct {
	Entity string `json:"entity"`
	Attr   string `json:"attr"`
	Value  Value  `json:"value"`
}

// TickRecord is everything recorded at the end of one tick, in probe order.
// Probes whose entity has not produced a value yet are omitted.
type TickRecord struct {
	Clock   int64    `json:"clock"`
	Samples []Sample `json:"samples"`
}

// Sink receives one TickRecord per tick. Persistence format is up to the implementation.
type Sink interface {
	Write(rec TickRecord) error
	Close() error
}

// MemorySink keeps all records in memory.
type MemorySink struct {
	Records []TickRecord
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{Records: make([]TickRecord, 0)}
}

// Write appends rec.
func (m *MemorySink) Write(rec TickRecord) error {
	m.Records = append(m.Records, rec)
	return nil
}

// Close is a no-op.
func (m *MemorySink) Close() error { return nil }

// Series returns the recorded values of one probe, keyed by clock.
func (m *MemorySink) Series(entity, attr string) map[int64]Value {
	out := make(map[int64]Value)
	for _, rec := range m.Records {
		for _, s := range rec.Samples {
			if s.Entity == entity && s.Attr == attr {
				out[rec.Clock] = s.Value
			}
		}
	}
	return out
}
