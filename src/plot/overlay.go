package plot

import (
	"time"

	"screamplot/src/telemetry"
)

// LossEvent is one loss-flagged sample, positioned on the bitrate panel.
type LossEvent struct {
	Time        time.Time
	BitrateKbps float64
}

// LossEvents returns the samples flagged packet_loss == 1, in table order,
// one event per flagged row. When the loss column is absent the overlay is
// simply empty; several producer variants never log loss and must still
// render.
func LossEvents(t *telemetry.Table, caps telemetry.Capabilities) []LossEvent {
	if !caps.LossFlag {
		return nil
	}
	var events []LossEvent
	for _, s := range t.Samples {
		if s.PacketLoss {
			events = append(events, LossEvent{Time: s.Time, BitrateKbps: s.BitrateKbps})
		}
	}
	return events
}
