// Package config handles configuration for the client component,
// including defaults, JSON overlay, and command-line flags.
package config

// Config holds runtime settings for the cipherchat client.
//
// Fields:
//   - ServerBaseURL: base URL of the backend API (http/https).
//   - KeystorePath: path of the local SQLite private-key store.
type Config struct {
	ServerBaseURL string
	KeystorePath  string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://localhost:8080"
	c.KeystorePath = "keys.db"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
