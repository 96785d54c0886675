package config

import (
	"encoding/json"
	"os"

	"cipherchat/internal/flagx"
)

// JsonConfig is the DTO used only for reading JSON configuration files.
type JsonConfig struct {
	ServerBaseURL string `json:"server_base_url"`
	KeystorePath  string `json:"keystore_path"`
}

// parseJson loads configuration values from the JSON file named by the
// -c/-config flags into the provided Config. If no flag is set, nothing is
// loaded.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.ServerBaseURL = c.ServerBaseURL
	config.KeystorePath = c.KeystorePath
}
