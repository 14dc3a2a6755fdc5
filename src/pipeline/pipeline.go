// Package pipeline owns the end-to-end telemetry-to-chart sequence:
// locate the log, ingest, validate, compose panels, resolve the loss
// overlay, render, and optionally delete the consumed log.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"time"

	"screamplot/src/logging"
	"screamplot/src/plot"
	"screamplot/src/telemetry"
)

// ErrLogNotFound indicates the input log does not exist; the operator needs
// to run the telemetry producer first.
var ErrLogNotFound = errors.New("telemetry log not found")

// Result summarizes a successful run.
type Result struct {
	ArtifactPath string
	Samples      int
	Panels       int
	LossEvents   int
	Span         time.Duration
	CleanedUp    bool
}

// Pipeline runs one log file to completion. It is a one-shot batch step:
// fully synchronous, no retries, first structural error wins.
type Pipeline struct {
	cfg Config
}

func New(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Run executes the full sequence. On any error the output path is left
// untouched and the input log is never deleted.
func (p *Pipeline) Run() (*Result, error) {
	cfg := p.cfg

	if _, err := os.Stat(cfg.InputPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrLogNotFound, cfg.InputPath)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLogNotFound, cfg.InputPath, err)
	}

	logging.Debugf("ingesting %s", cfg.InputPath)
	table, err := telemetry.Load(cfg.InputPath)
	if err != nil {
		return nil, err
	}

	caps, err := telemetry.Validate(table)
	if err != nil {
		return nil, err
	}
	logging.Debugf("validated %d samples, capabilities %+v", table.Len(), caps)

	panels := plot.Compose(table, caps, cfg.DelayTargetMs)
	events := plot.LossEvents(table, caps)

	opts := plot.Options{Width: cfg.ChartWidthPx, PanelHeight: cfg.PanelHeightPx}
	if err := plot.Render(panels, events, cfg.OutputPath, opts); err != nil {
		return nil, err
	}
	logging.Infof("rendered %d panels to %s", len(panels), cfg.OutputPath)

	res := &Result{
		ArtifactPath: cfg.OutputPath,
		Samples:      table.Len(),
		Panels:       len(panels),
		LossEvents:   len(events),
		Span:         tableSpan(table),
	}

	if cfg.Cleanup {
		// The artifact already exists, so a failed delete is a warning,
		// not a failure.
		if err := os.Remove(cfg.InputPath); err != nil {
			logging.Warnf("could not delete consumed log %s: %v", cfg.InputPath, err)
		} else {
			res.CleanedUp = true
			logging.Debugf("deleted consumed log %s", cfg.InputPath)
		}
	}
	return res, nil
}

func tableSpan(t *telemetry.Table) time.Duration {
	if t.Len() < 2 {
		return 0
	}
	return t.Samples[t.Len()-1].Time.Sub(t.Samples[0].Time)
}

// Describe converts a pipeline error into the user-facing message printed
// for each failure class.
func Describe(err error) string {
	var missing *telemetry.MissingColumnError
	switch {
	case errors.Is(err, ErrLogNotFound):
		return fmt.Sprintf("Error: %v. Run the SCReAM test harness first to produce the telemetry log.", err)
	case errors.Is(err, telemetry.ErrEmptyTable):
		return fmt.Sprintf("Error: %v. The producer wrote a header but no samples.", err)
	case errors.As(err, &missing):
		return fmt.Sprintf("Error: telemetry log is unusable: %v.", err)
	case errors.Is(err, telemetry.ErrMalformedTelemetry):
		return fmt.Sprintf("Error: could not parse telemetry log: %v.", err)
	case errors.Is(err, plot.ErrRenderFailure):
		return fmt.Sprintf("Error: chart could not be produced: %v.", err)
	default:
		return fmt.Sprintf("Error: %v.", err)
	}
}
