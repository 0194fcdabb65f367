package config

import "time"

// Config holds runtime settings for the quicknotes CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP endpoint.
//   - AutosaveDebounce: quiet period before an edit burst is committed.
//
// Units: AutosaveDebounce is a time.Duration (e.g., 1*time.Second).
type Config struct {
	ServerEndpointAddr string
	AutosaveDebounce   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.AutosaveDebounce = 1 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
