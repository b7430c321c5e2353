// Package trace implements the tick-trace output sinks (CSV, JSON, HTML),
// adapted from the teacher's streaming-row output code in
// cmd/consumption/main.go.
package trace

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Row is one tick's worth of trace data, emitted to every configured sink.
type Row struct {
	At              time.Time `json:"time"`
	TickIndex       uint64    `json:"tick_index"`
	BandwidthMBs    uint32    `json:"bandwidth_mb_s"`
	BandwidthKnown  bool      `json:"bandwidth_known"`
	IPCMean         float64   `json:"ipc_mean"`
	LadderLevel     int       `json:"ladder_level"`
	ArmIndex        int       `json:"arm_index"`
	Reward          float64   `json:"reward"`
	MSRValue        uint64    `json:"msr_value"`
	MSRWriteOccurred bool     `json:"msr_write_occurred"`
}

// Sink receives one Row per tick and is closed once at shutdown.
type Sink interface {
	WriteRow(r Row) error
	Close() error
}

// MultiSink fans a Row out to every configured sink, continuing past
// individual sink errors (best-effort, matching the teacher's main loop
// which never aborts sampling because a file sink failed).
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink builds a MultiSink from zero or more non-nil sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	var filtered []Sink
	for _, s := range sinks {
		if s != nil {
			filtered = append(filtered, s)
		}
	}
	return &MultiSink{sinks: filtered}
}

func (m *MultiSink) WriteRow(r Row) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.WriteRow(r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MultiSink) Close() error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// csvSink streams rows to a CSV file, flushing after every row so a
// mid-run crash leaves a readable partial file.
type csvSink struct {
	f *os.File
	w *csv.Writer
}

// NewCSVSink creates (or truncates) path and writes the header row.
func NewCSVSink(path string) (Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("trace: mkdir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("trace: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{
		"time", "tick_index", "bandwidth_mb_s", "bandwidth_known", "ipc_mean",
		"ladder_level", "arm_index", "reward", "msr_value", "msr_write_occurred",
	})
	w.Flush()
	return &csvSink{f: f, w: w}, nil
}

func (s *csvSink) WriteRow(r Row) error {
	if err := s.w.Write([]string{
		r.At.Format(time.RFC3339),
		strconv.FormatUint(r.TickIndex, 10),
		strconv.FormatUint(uint64(r.BandwidthMBs), 10),
		strconv.FormatBool(r.BandwidthKnown),
		strconv.FormatFloat(r.IPCMean, 'f', 6, 64),
		strconv.Itoa(r.LadderLevel),
		strconv.Itoa(r.ArmIndex),
		strconv.FormatFloat(r.Reward, 'f', 6, 64),
		strconv.FormatUint(r.MSRValue, 16),
		strconv.FormatBool(r.MSRWriteOccurred),
	}); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *csvSink) Close() error {
	s.w.Flush()
	return s.f.Close()
}

// jsonSink streams rows into a single JSON array, comma-joined as each row
// arrives (the teacher's streaming-array idiom rather than buffering every
// row in memory).
type jsonSink struct {
	f       *os.File
	written int
}

// NewJSONSink creates (or truncates) path and opens the array.
func NewJSONSink(path string) (Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("trace: mkdir for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("trace: create %s: %w", path, err)
	}
	if _, err := f.WriteString("[\n"); err != nil {
		return nil, err
	}
	return &jsonSink{f: f}, nil
}

func (s *jsonSink) WriteRow(r Row) error {
	b, err := json.MarshalIndent(r, "  ", "  ")
	if err != nil {
		return err
	}
	if s.written > 0 {
		if _, err := s.f.WriteString(",\n"); err != nil {
			return err
		}
	}
	if _, err := s.f.Write(b); err != nil {
		return err
	}
	s.written++
	return nil
}

func (s *jsonSink) Close() error {
	if _, err := s.f.WriteString("\n]\n"); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
