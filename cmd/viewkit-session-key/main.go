// Command viewkit-session-key prints a fresh base64 ed25519 seed for the
// demo server's session signing key.
package main

import (
	"flag"
	"os"

	"github.com/louisbranch/viewkit/config"
	"github.com/louisbranch/viewkit/internal/tools/sessionkey"
)

func main() {
	cfg, err := sessionkey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := sessionkey.Run(cfg, os.Stdout, nil); err != nil {
		config.Exitf("generate session key: %v", err)
	}
}
