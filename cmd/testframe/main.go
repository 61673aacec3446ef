// Command testframe checks session configuration files and collects
// diagnostics from the clusters they describe.
package main

import "os"

// version is set at build time with -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd(version).Execute(); err != nil {
		os.Exit(1)
	}
}
