package config

import (
	"flag"
	"os"

	"cipherchat/internal/flagx"
)

// parseFlags populates client Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   server base URL (e.g., "http://localhost:8080")
//	-k string   path of the local private-key store
//
// os.Args is pre-filtered with flagx.FilterArgs so unrecognized flags from
// other components are ignored.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-k"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.ServerBaseURL, "a", config.ServerBaseURL, "server base URL")
	fs.StringVar(&config.KeystorePath, "k", config.KeystorePath, "private key store path")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
