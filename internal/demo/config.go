// Package demo assembles the toolkit into a small project tracker. It is the
// runnable reference for wiring guards, list views, downloads, and session
// handling together, and its handlers double as integration coverage for the
// exported packages.
package demo

import (
	"flag"
	"time"

	"github.com/louisbranch/viewkit/config"
)

// Config holds the demo server settings, loaded from the environment.
type Config struct {
	// HTTPAddr is the listen address for the demo server.
	HTTPAddr string `env:"VIEWKIT_DEMO_HTTP_ADDR" envDefault:"localhost:8098"`
	// DBPath is the SQLite database file. A relative path resolves against
	// the working directory.
	DBPath string `env:"VIEWKIT_DEMO_DB_PATH" envDefault:"viewkit-demo.db"`
	// SessionKey is a base64 encoded ed25519 seed used to sign session
	// tokens. When unset the server generates an ephemeral key on startup
	// and sessions do not survive restarts.
	SessionKey string `env:"VIEWKIT_DEMO_SESSION_KEY"`
	// SessionTTL bounds how long a signed-in session stays valid.
	SessionTTL time.Duration `env:"VIEWKIT_DEMO_SESSION_TTL" envDefault:"12h"`
}

// ParseConfig reads Config from the environment and lets command line flags
// override the listen address and database path.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "listen address for the demo server")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the sqlite database file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
