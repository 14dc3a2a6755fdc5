package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config carries the paths and knobs the pipeline runs with. The zero-arg
// binary works entirely from defaults; an optional YAML file overrides them.
type Config struct {
	// InputPath is the telemetry CSV written by the SCReAM test harness.
	InputPath string `yaml:"input_path"`
	// OutputPath is where the composite chart PNG is written.
	OutputPath string `yaml:"output_path"`
	// Cleanup deletes the consumed input log after a successful render.
	Cleanup bool `yaml:"cleanup"`
	// DelayTargetMs positions the queue-delay reference line.
	DelayTargetMs float64 `yaml:"delay_target_ms"`
	// ChartWidthPx and PanelHeightPx size the rendered figure.
	ChartWidthPx  int `yaml:"chart_width_px"`
	PanelHeightPx int `yaml:"panel_height_px"`
	// LogLevel sets logger verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the built-in configuration, matching the paths the
// telemetry producer uses.
func DefaultConfig() Config {
	return Config{
		InputPath:     "scream_log.csv",
		OutputPath:    "scream_performance_analysis.png",
		Cleanup:       false,
		DelayTargetMs: 60,
		ChartWidthPx:  1400,
		PanelHeightPx: 320,
		LogLevel:      "info",
	}
}

// LoadConfig reads the YAML config at path over the defaults. A missing file
// is not an error (defaults apply); an unreadable or invalid one is, since
// silently ignoring a present config would hide operator intent.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
