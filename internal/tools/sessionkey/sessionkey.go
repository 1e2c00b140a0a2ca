// Package sessionkey generates ed25519 seeds for signing demo session
// tokens.
package sessionkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// Config holds the flags for seed generation.
type Config struct {
	// EnvName is the variable name printed next to the seed so the output
	// can be pasted into an env file directly.
	EnvName string
}

// ParseConfig parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{EnvName: "VIEWKIT_DEMO_SESSION_KEY"}
	fs.StringVar(&cfg.EnvName, "env", cfg.EnvName, "environment variable name to print")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run writes one freshly generated seed to out as an env assignment. A nil
// reader draws from crypto/rand.
func Run(cfg Config, out io.Writer, reader io.Reader) error {
	name := strings.TrimSpace(cfg.EnvName)
	if name == "" {
		return errors.New("env variable name is required")
	}
	if out == nil {
		return errors.New("output is required")
	}
	if reader == nil {
		reader = rand.Reader
	}

	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, seed); err != nil {
		return fmt.Errorf("read random seed: %w", err)
	}
	_, err := fmt.Fprintf(out, "%s=%s\n", name, base64.StdEncoding.EncodeToString(seed))
	return err
}
