// Command ruser serves the people and keyboards resource API over HTTP,
// backed by an embedded SQLite database.
//
// Usage:
//
//	ruser            # same as "ruser serve"
//	ruser serve      # run the HTTP server until SIGINT/SIGTERM
//	ruser migrate    # create missing tables and exit
//	ruser --version
package main

import (
	"os"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
