// Command inferstream streams completions from a goinfer-compatible
// inference server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
