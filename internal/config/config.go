// Package config loads the receiver's YAML configuration file,
// following the teacher's LoadConfig/yaml.v3 convention.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Tuner      TunerConfig      `yaml:"tuner"`
	Policy     PolicyConfig     `yaml:"policy"`
	Talkgroup  TalkgroupConfig  `yaml:"talkgroup"`
	Audio      AudioConfig      `yaml:"audio"`
	Hub        HubConfig        `yaml:"hub"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	GeoIP      GeoIPConfig      `yaml:"geoip"`
	MCP        MCPConfig        `yaml:"mcp"`
	Spectrum   SpectrumConfig   `yaml:"spectrum"`
	Hopping    bool             `yaml:"hopping"`
}

// TunerConfig describes the tuner device to open.
type TunerConfig struct {
	DeviceIndex int     `yaml:"device_index"`
	Gain        float64 `yaml:"gain"` // tuner.AutoGain requests AGC
	PPM         int     `yaml:"ppm"`
	ControlFreq uint32  `yaml:"control_freq"`

	// DataAddr/ControlAddr configure the netsdr reference backend
	// (SPEC_FULL.md §1 expansion); unused when a different Reader/
	// Controller pair is wired in by the caller.
	DataAddr    string `yaml:"data_addr"`
	ControlAddr string `yaml:"control_addr"`
	Interface   string `yaml:"interface"`
}

// PolicyConfig overrides the trunking state machine's sample-count
// thresholds (§4.6). Zero values fall back to p25const's defaults.
type PolicyConfig struct {
	SelectSamples   int64 `yaml:"select_samples"`
	WatchdogSamples int64 `yaml:"watchdog_samples"`
	PauseSamples    int64 `yaml:"pause_samples"`
}

// TalkgroupConfig configures the selector (§4.7): which talkgroups may
// preempt an in-progress call, a priority map, an include/exclude
// filter, and the scoring weights.
type TalkgroupConfig struct {
	Preempt  []uint16           `yaml:"preempt"`
	Priority map[uint16]float64 `yaml:"priority"`
	Include  []uint16           `yaml:"include"`
	Exclude  []uint16           `yaml:"exclude"`
	Weights  WeightsConfig      `yaml:"weights"`
}

// WeightsConfig mirrors talkgroup.Weights for YAML decoding.
type WeightsConfig struct {
	Prio   float64 `yaml:"priority"`
	Age    float64 `yaml:"age"`
	Recent float64 `yaml:"recent"`
}

// AudioConfig selects the output sink (§4.8, §6).
type AudioConfig struct {
	// Sink is one of "file", "fifo", "stdout".
	Sink string `yaml:"sink"`
	Path string `yaml:"path"`

	// Monitor enables the additive Opus/WebSocket audio tap
	// (SPEC_FULL.md §4.8 expansion).
	Monitor MonitorConfig `yaml:"monitor"`
}

// MonitorConfig configures the optional WebSocket audio monitor.
type MonitorConfig struct {
	Enabled    bool `yaml:"enabled"`
	OpusBitrate int  `yaml:"opus_bitrate"`
}

// HubConfig configures the HTTP/SSE server (§4.9).
type HubConfig struct {
	Addr             string `yaml:"addr"`
	MaxSubscribers   int    `yaml:"max_subscribers"`
	GzipResponses    bool   `yaml:"gzip_responses"`
}

// PrometheusConfig enables the /metrics endpoint (SPEC_FULL.md §4.9
// expansion).
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MQTTConfig enables republishing hub events to an MQTT broker
// (SPEC_FULL.md §4.9 expansion).
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// GeoIPConfig enables access-log enrichment (SPEC_FULL.md §4.9
// expansion).
type GeoIPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Database string `yaml:"database"`
}

// MCPConfig enables the read-only MCP tool server (SPEC_FULL.md §4.9
// expansion).
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SpectrumConfig enables the demod FFT tap (SPEC_FULL.md §4.4
// expansion).
type SpectrumConfig struct {
	Enabled bool `yaml:"enabled"`
	FFTSize int  `yaml:"fft_size"`
}

// Load reads and parses a YAML config file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}
