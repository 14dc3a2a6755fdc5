package pipeline

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"screamplot/src/plot"
	"screamplot/src/telemetry"
)

const fullHeader = "timestamp_ms,s_rtt_ms,base_rtt_ms,qdelay_avg_ms,bitrate_kbps,cwnd_bytes,bytes_in_flight,max_bytes_in_flight,packet_loss"

// tenRowLog has rows 3 and 7 flagged as loss events.
func tenRowLog() string {
	var b strings.Builder
	b.WriteString(fullHeader + "\n")
	ts := int64(1700000000000)
	for i := 0; i < 10; i++ {
		loss := "0"
		if i == 3 || i == 7 {
			loss = "1"
		}
		b.WriteString(
			// timestamp, s_rtt, base_rtt, qdelay, bitrate, cwnd, bif, maxbif, loss
			strings.Join([]string{
				strconv.FormatInt(ts+int64(i*100), 10),
				"25.5", "20.0", "4.2",
				strconv.Itoa(1000 + i*10),
				"18750", "12000", "15000",
				loss,
			}, ",") + "\n")
	}
	return b.String()
}

func testConfig(t *testing.T, logContent string) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.InputPath = filepath.Join(dir, "scream_log.csv")
	cfg.OutputPath = filepath.Join(dir, "scream_performance_analysis.png")
	cfg.ChartWidthPx = 480
	cfg.PanelHeightPx = 160
	if logContent != "" {
		if err := os.WriteFile(cfg.InputPath, []byte(logContent), 0644); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}
	}
	return cfg
}

func TestRunSuccess(t *testing.T) {
	cfg := testConfig(t, tenRowLog())
	res, err := New(cfg).Run()
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if res.Samples != 10 {
		t.Errorf("samples: got %d, want 10", res.Samples)
	}
	if res.Panels != 4 {
		t.Errorf("panels: got %d, want 4", res.Panels)
	}
	if res.LossEvents != 2 {
		t.Errorf("loss events: got %d, want 2", res.LossEvents)
	}
	f, err := os.Open(res.ArtifactPath)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Fatalf("artifact is not a PNG: %v", err)
	}
	// cleanup disabled by default: source log must survive
	if _, err := os.Stat(cfg.InputPath); err != nil {
		t.Errorf("input log should still exist with cleanup disabled: %v", err)
	}
	if res.CleanedUp {
		t.Errorf("CleanedUp should be false with cleanup disabled")
	}
}

func TestRunCleanupEnabled(t *testing.T) {
	cfg := testConfig(t, tenRowLog())
	cfg.Cleanup = true
	res, err := New(cfg).Run()
	if err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if !res.CleanedUp {
		t.Errorf("expected CleanedUp after successful render with cleanup enabled")
	}
	if _, err := os.Stat(cfg.InputPath); !os.IsNotExist(err) {
		t.Errorf("input log should be deleted with cleanup enabled")
	}
	if _, err := os.Stat(cfg.OutputPath); err != nil {
		t.Errorf("artifact should exist: %v", err)
	}
}

func TestRunLogNotFound(t *testing.T) {
	cfg := testConfig(t, "")
	_, err := New(cfg).Run()
	if !errors.Is(err, ErrLogNotFound) {
		t.Fatalf("expected ErrLogNotFound, got %v", err)
	}
	if msg := Describe(err); !strings.Contains(msg, "harness") {
		t.Errorf("message should point the operator at the producer: %q", msg)
	}
}

func TestRunEmptyTable(t *testing.T) {
	cfg := testConfig(t, fullHeader+"\n")
	_, err := New(cfg).Run()
	if !errors.Is(err, telemetry.ErrEmptyTable) {
		t.Fatalf("expected ErrEmptyTable, got %v", err)
	}
	if _, statErr := os.Stat(cfg.OutputPath); !os.IsNotExist(statErr) {
		t.Errorf("no artifact should be written for an empty table")
	}
}

func TestRunMissingBitrateColumn(t *testing.T) {
	cfg := testConfig(t, "timestamp_ms,rtt_ms,cwnd_bytes\n1700000000000,30.0,12500\n")
	_, err := New(cfg).Run()
	var missing *telemetry.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if missing.Column != telemetry.ColBitrateKbps {
		t.Errorf("expected %q named, got %q", telemetry.ColBitrateKbps, missing.Column)
	}
	if msg := Describe(err); !strings.Contains(msg, "bitrate_kbps") {
		t.Errorf("message should name the missing column: %q", msg)
	}
	if _, statErr := os.Stat(cfg.OutputPath); !os.IsNotExist(statErr) {
		t.Errorf("no artifact should be written on validation failure")
	}
	// input must never be deleted on failure, even with cleanup enabled
	cfg.Cleanup = true
	if _, err := New(cfg).Run(); err == nil {
		t.Fatalf("expected failure")
	}
	if _, statErr := os.Stat(cfg.InputPath); statErr != nil {
		t.Errorf("input log must survive a failed run: %v", statErr)
	}
}

func TestRunMalformedTelemetry(t *testing.T) {
	cfg := testConfig(t, "timestamp_ms,rtt_ms,bitrate_kbps,cwnd_bytes\nbogus,30.0,1000,12500\n")
	_, err := New(cfg).Run()
	if !errors.Is(err, telemetry.ErrMalformedTelemetry) {
		t.Fatalf("expected ErrMalformedTelemetry, got %v", err)
	}
}

func TestRunMinimalProducerVariant(t *testing.T) {
	cfg := testConfig(t, "timestamp_ms,rtt_ms,bitrate_kbps,cwnd_bytes,packet_loss\n"+
		"1700000000000,30.0,1000,12500,0\n"+
		"1700000000100,31.0,1020,12600,1\n")
	res, err := New(cfg).Run()
	if err != nil {
		t.Fatalf("minimal five-column log should render: %v", err)
	}
	if res.Panels != 3 {
		t.Errorf("panels: got %d, want 3 (no delay column)", res.Panels)
	}
	if res.LossEvents != 1 {
		t.Errorf("loss events: got %d, want 1", res.LossEvents)
	}
}

func TestRunRenderFailure(t *testing.T) {
	cfg := testConfig(t, tenRowLog())
	cfg.Cleanup = true
	cfg.OutputPath = filepath.Join(filepath.Dir(cfg.OutputPath), "no", "such", "dir", "out.png")
	_, err := New(cfg).Run()
	if !errors.Is(err, plot.ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure, got %v", err)
	}
	if _, statErr := os.Stat(cfg.InputPath); statErr != nil {
		t.Errorf("input log must survive a failed render: %v", statErr)
	}
}

func TestDescribeCoversEachClass(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrLogNotFound, "telemetry log not found"},
		{telemetry.ErrEmptyTable, "no data rows"},
		{&telemetry.MissingColumnError{Column: "bitrate_kbps"}, "bitrate_kbps"},
		{telemetry.ErrMalformedTelemetry, "parse"},
		{plot.ErrRenderFailure, "chart"},
	}
	for _, c := range cases {
		if msg := Describe(c.err); !strings.Contains(msg, c.want) {
			t.Errorf("Describe(%v) = %q, want substring %q", c.err, msg, c.want)
		}
	}
}
