// Command netmap scans a host, a last-octet range or a /24 block for a fixed
// set of well-known TCP ports.
//
//	netmap scan 192.168.0.1-50
//	netmap scan 192.168.0.0/24 -o lan.txt
//	netmap serve --listen :8080
package main

import (
	"errors"
	"fmt"
	"os"

	"netmap/config"
	"netmap/target"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors to process status: 2 for bad input, 3 for scope
// violations, 4 for everything else.
func exitCode(err error) int {
	switch {
	case errors.Is(err, target.ErrInvalidSpec), errors.Is(err, config.ErrInvalid):
		return 2
	case errors.Is(err, target.ErrOutOfScope):
		return 3
	default:
		return 4
	}
}
