// Package record persists recorded probe values produced by a run.
package record

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/homesim/homesim/sim"
)

// NewRunID returns a fresh run identifier.
func NewRunID() string { return uuid.NewString() }

// Header is the first line of a JSONL recording.
type Header struct {
	RunID   string `json:"run_id"`
	Version int    `json:"version"`
}

const jsonlVersion = 1

// JSONLZstd writes one JSON line per tick into a zstd-compressed file.
// The first line is a Header.
type JSONLZstd struct {
	path string
	f    *os.File
	enc  *zstd.Encoder
	w    *bufio.Writer
}

// OpenJSONLZstd creates (or truncates) path and writes the header.
func OpenJSONLZstd(path, runID string) (*JSONLZstd, error) {
	if path == "" {
		return nil, fmt.Errorf("empty output path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	j := &JSONLZstd{path: path, f: f, enc: enc, w: bufio.NewWriterSize(enc, 128*1024)}
	if err := j.writeLine(Header{RunID: runID, Version: jsonlVersion}); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

// Write implements sim.Sink.
func (j *JSONLZstd) Write(rec sim.TickRecord) error {
	return j.writeLine(rec)
}

func (j *JSONLZstd) writeLine(v any) error {
	if j.w == nil {
		return fmt.Errorf("write to closed recording %s", j.path)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(b); err != nil {
		return err
	}
	return j.w.WriteByte('\n')
}

// Close flushes the compressor and closes the file.
func (j *JSONLZstd) Close() error {
	var err error
	if j.w != nil {
		err = j.w.Flush()
		j.w = nil
	}
	if j.enc != nil {
		if cerr := j.enc.Close(); err == nil {
			err = cerr
		}
		j.enc = nil
	}
	if j.f != nil {
		if cerr := j.f.Close(); err == nil {
			err = cerr
		}
		j.f = nil
	}
	return err
}

// ReadJSONLZstd decodes a recording written by JSONLZstd.
func ReadJSONLZstd(path string) (Header, []sim.TickRecord, error) {
	var hdr Header
	f, err := os.Open(path)
	if err != nil {
		return hdr, nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return hdr, nil, err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return hdr, nil, err
		}
		return hdr, nil, fmt.Errorf("recording %s has no header", path)
	}
	if err := json.Unmarshal(sc.Bytes(), &hdr); err != nil {
		return hdr, nil, fmt.Errorf("recording %s header: %w", path, err)
	}
	if hdr.Version != jsonlVersion {
		return hdr, nil, fmt.Errorf("recording %s: unsupported version %d", path, hdr.Version)
	}
	var recs []sim.TickRecord
	for line := 2; sc.Scan(); line++ {
		var rec sim.TickRecord
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return hdr, nil, fmt.Errorf("recording %s line %d: %w", path, line, err)
		}
		recs = append(recs, rec)
	}
	return hdr, recs, sc.Err()
}
