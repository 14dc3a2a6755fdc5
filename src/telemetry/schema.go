package telemetry

import (
	"errors"
	"fmt"
)

// ErrEmptyTable indicates the log file exists but carries no data rows.
var ErrEmptyTable = errors.New("telemetry log has no data rows")

// MissingColumnError names the first required column absent from the header.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("missing required column: %s", e.Column)
}

// Capabilities describes which optional columns the log provides. Panel
// composition is keyed entirely on this set, never on data values.
type Capabilities struct {
	BaseRTT          bool
	QueueDelay       bool
	BytesInFlight    bool
	MaxBytesInFlight bool
	LossFlag         bool
}

// Validate checks the table against the required schema and classifies the
// optional columns. Required: timestamp, an RTT column (either form),
// bitrate and congestion window. No side effects.
func Validate(t *Table) (Capabilities, error) {
	var caps Capabilities

	for _, col := range []string{ColTimestampMs, ColRTTMs, ColBitrateKbps, ColCwndBytes} {
		if col == ColRTTMs {
			if !t.Has(ColRTTMs) && !t.Has(ColSmoothedRTTMs) {
				return caps, &MissingColumnError{Column: ColRTTMs}
			}
			continue
		}
		if !t.Has(col) {
			return caps, &MissingColumnError{Column: col}
		}
	}
	if t.Len() == 0 {
		return caps, ErrEmptyTable
	}

	caps.BaseRTT = t.Has(ColBaseRTTMs)
	caps.QueueDelay = t.Has(ColQDelayAvgMs)
	caps.BytesInFlight = t.Has(ColBytesInFlight)
	caps.MaxBytesInFlight = t.Has(ColMaxBytesInFlight)
	caps.LossFlag = t.Has(ColPacketLoss)
	return caps, nil
}
