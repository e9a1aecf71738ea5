package main

import (
	"os"

	"github.com/ironsheep/pii-redactor/internal/cli"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cli.Version = Version
	cli.BuildDate = BuildTime
	cli.Commit = GitCommit

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
