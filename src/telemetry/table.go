// Package telemetry loads the CSV log emitted by the SCReAM congestion
// control harness into an in-memory table for plotting.
package telemetry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Column names as written by the telemetry producer's header row.
const (
	ColTimestampMs      = "timestamp_ms"
	ColRTTMs            = "rtt_ms"
	ColSmoothedRTTMs    = "s_rtt_ms"
	ColBaseRTTMs        = "base_rtt_ms"
	ColQDelayAvgMs      = "qdelay_avg_ms"
	ColBitrateKbps      = "bitrate_kbps"
	ColCwndBytes        = "cwnd_bytes"
	ColBytesInFlight    = "bytes_in_flight"
	ColMaxBytesInFlight = "max_bytes_in_flight"
	ColPacketLoss       = "packet_loss"
)

// ErrMalformedTelemetry indicates the log file exists but a row or value
// could not be parsed as its expected type.
var ErrMalformedTelemetry = errors.New("malformed telemetry")

// Sample is one row of the telemetry log. Optional columns are zero-valued
// when absent; Table.Has reports which columns were actually present.
type Sample struct {
	TimestampMs      int64
	Time             time.Time
	RTTMs            float64
	BaseRTTMs        float64
	QDelayAvgMs      float64
	BitrateKbps      float64
	CwndBytes        int64
	BytesInFlight    int64
	MaxBytesInFlight int64
	PacketLoss       bool
}

// Table is the full ordered telemetry log, loaded once and immutable after.
type Table struct {
	Samples []Sample

	columns map[string]bool
}

// Has reports whether the named column appeared in the log header.
func (t *Table) Has(name string) bool { return t.columns[name] }

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Samples) }

// Load reads and parses the telemetry CSV at path. Structural CSV problems
// and unparseable values are reported as ErrMalformedTelemetry; missing
// columns are not an error here (Validate classifies those).
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		// No header at all: treat as an empty table, Validate reports it.
		return &Table{columns: map[string]bool{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrMalformedTelemetry, err)
	}

	idx := make(map[string]int, len(header))
	cols := make(map[string]bool, len(header))
	for i, name := range header {
		idx[name] = i
		cols[name] = true
	}

	t := &Table{columns: cols}
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedTelemetry, line, err)
		}
		s, err := parseSample(rec, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedTelemetry, line, err)
		}
		t.Samples = append(t.Samples, s)
	}
	return t, nil
}

func parseSample(rec []string, idx map[string]int) (Sample, error) {
	var s Sample
	var err error

	if i, ok := idx[ColTimestampMs]; ok {
		s.TimestampMs, err = strconv.ParseInt(rec[i], 10, 64)
		if err != nil {
			return s, fmt.Errorf("%s: %q is not an integer", ColTimestampMs, rec[i])
		}
		// Calendar time so wall-clock correlation across runs works,
		// matching the producer's millisecond epoch convention.
		s.Time = time.UnixMilli(s.TimestampMs)
	}

	// The full producer variant logs s_rtt_ms; the minimal one logs rtt_ms.
	// Prefer the smoothed form when both are present.
	rttCol := ColRTTMs
	if _, ok := idx[ColSmoothedRTTMs]; ok {
		rttCol = ColSmoothedRTTMs
	}
	if i, ok := idx[rttCol]; ok {
		if s.RTTMs, err = parseFloat(rttCol, rec[i]); err != nil {
			return s, err
		}
	}

	if i, ok := idx[ColBaseRTTMs]; ok {
		if s.BaseRTTMs, err = parseFloat(ColBaseRTTMs, rec[i]); err != nil {
			return s, err
		}
	}
	if i, ok := idx[ColQDelayAvgMs]; ok {
		if s.QDelayAvgMs, err = parseFloat(ColQDelayAvgMs, rec[i]); err != nil {
			return s, err
		}
	}
	if i, ok := idx[ColBitrateKbps]; ok {
		if s.BitrateKbps, err = parseFloat(ColBitrateKbps, rec[i]); err != nil {
			return s, err
		}
	}
	if i, ok := idx[ColCwndBytes]; ok {
		if s.CwndBytes, err = parseInt(ColCwndBytes, rec[i]); err != nil {
			return s, err
		}
	}
	if i, ok := idx[ColBytesInFlight]; ok {
		if s.BytesInFlight, err = parseInt(ColBytesInFlight, rec[i]); err != nil {
			return s, err
		}
	}
	if i, ok := idx[ColMaxBytesInFlight]; ok {
		if s.MaxBytesInFlight, err = parseInt(ColMaxBytesInFlight, rec[i]); err != nil {
			return s, err
		}
	}
	if i, ok := idx[ColPacketLoss]; ok {
		switch rec[i] {
		case "0":
			s.PacketLoss = false
		case "1":
			s.PacketLoss = true
		default:
			return s, fmt.Errorf("%s: %q is not a 0/1 flag", ColPacketLoss, rec[i])
		}
	}
	return s, nil
}

func parseFloat(col, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", col, v)
	}
	return f, nil
}

func parseInt(col, v string) (int64, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", col, v)
	}
	return n, nil
}
