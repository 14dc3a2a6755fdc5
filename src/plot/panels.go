// Package plot composes and renders the multi-panel SCReAM performance
// figure from a validated telemetry table.
package plot

import (
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"screamplot/src/telemetry"
)

var (
	colorPurple = drawing.Color{R: 128, G: 64, B: 200, A: 255}
	colorPink   = drawing.Color{R: 230, G: 120, B: 180, A: 255}
)

// lineStyle returns a plain line style in the given color.
func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 1.5,
	}
}

// dashedStyle returns a dashed line style in the given color.
func dashedStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor:     col,
		StrokeWidth:     1.5,
		StrokeDashArray: []float64{5.0, 5.0},
	}
}

// Series is one named line within a panel.
type Series struct {
	Name   string
	Times  []time.Time
	Values []float64
	Style  chart.Style
}

// RefLine is a horizontal reference line drawn across a panel.
type RefLine struct {
	Name  string
	Value float64
	Style chart.Style
}

// Panel is a rendering instruction for one sub-chart of the figure.
type Panel struct {
	Title  string
	YLabel string
	Series []Series

	// RefLine, when non-nil, is drawn across the panel's full time span.
	RefLine *RefLine

	// LossOverlay marks this panel as the attachment point for loss-event
	// markers. Exactly one composed panel carries it (the bitrate panel).
	LossOverlay bool
}

// Compose builds the ordered panel list for the table's capability set.
// Inclusion and ordering depend only on column presence, so the same table
// always yields the same layout. delayTargetMs positions the queue-delay
// reference line.
func Compose(t *telemetry.Table, caps telemetry.Capabilities, delayTargetMs float64) []Panel {
	times := make([]time.Time, t.Len())
	for i, s := range t.Samples {
		times[i] = s.Time
	}
	col := func(get func(telemetry.Sample) float64) []float64 {
		vs := make([]float64, t.Len())
		for i, s := range t.Samples {
			vs[i] = get(s)
		}
		return vs
	}

	panels := make([]Panel, 0, 4)

	rtt := Panel{
		Title:  "RTT Metrics",
		YLabel: "RTT (ms)",
		Series: []Series{{
			Name:   "Smoothed RTT (ms)",
			Times:  times,
			Values: col(func(s telemetry.Sample) float64 { return s.RTTMs }),
			Style:  lineStyle(chart.ColorBlue),
		}},
	}
	if caps.BaseRTT {
		rtt.Series = append(rtt.Series, Series{
			Name:   "Base RTT (ms)",
			Times:  times,
			Values: col(func(s telemetry.Sample) float64 { return s.BaseRTTMs }),
			Style:  dashedStyle(chart.ColorCyan),
		})
	}
	panels = append(panels, rtt)

	if caps.QueueDelay {
		panels = append(panels, Panel{
			Title:  "Queueing Delay vs. Target",
			YLabel: "Queue Delay (ms)",
			Series: []Series{{
				Name:   "Smoothed Queue Delay (ms)",
				Times:  times,
				Values: col(func(s telemetry.Sample) float64 { return s.QDelayAvgMs }),
				Style:  lineStyle(chart.ColorOrange),
			}},
			RefLine: &RefLine{
				Name:  "Queue Delay Target",
				Value: delayTargetMs,
				Style: dashedStyle(chart.ColorRed),
			},
		})
	}

	panels = append(panels, Panel{
		Title:  "Target Bitrate and Packet Loss",
		YLabel: "Bitrate (kbps)",
		Series: []Series{{
			Name:   "Target Bitrate (kbps)",
			Times:  times,
			Values: col(func(s telemetry.Sample) float64 { return s.BitrateKbps }),
			Style:  lineStyle(chart.ColorGreen),
		}},
		LossOverlay: true,
	})

	window := Panel{
		Title:  "Congestion Window and In-Flight Data",
		YLabel: "Bytes",
		Series: []Series{{
			Name:   "CWND (Bytes)",
			Times:  times,
			Values: col(func(s telemetry.Sample) float64 { return float64(s.CwndBytes) }),
			Style:  lineStyle(colorPurple),
		}},
	}
	if caps.BytesInFlight {
		window.Series = append(window.Series, Series{
			Name:   "Bytes in Flight",
			Times:  times,
			Values: col(func(s telemetry.Sample) float64 { return float64(s.BytesInFlight) }),
			Style:  lineStyle(chart.ColorAlternateGray),
		})
	}
	if caps.MaxBytesInFlight {
		window.Series = append(window.Series, Series{
			Name:   "Max Bytes in Flight (last RTT)",
			Times:  times,
			Values: col(func(s telemetry.Sample) float64 { return float64(s.MaxBytesInFlight) }),
			Style:  dashedStyle(colorPink),
		})
	}
	panels = append(panels, window)

	return panels
}
