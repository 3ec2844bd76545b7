package version

import (
	"fmt"
	"runtime"
)

// Set at build time via -ldflags.
var (
	App       = "ChakrAi Identity"
	Version   string
	GitCommit string
	BuildTime string
)

// String returns a single-line version for logs and --version output.
func String() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if GitCommit != "" {
		v += "+" + shortCommit()
	}
	return fmt.Sprintf("%s %s", App, v)
}

// PrintVersion writes the full version report to stdout.
func PrintVersion() {
	fmt.Println(String())
	if BuildTime != "" {
		fmt.Printf("Build time: %s\n", BuildTime)
	}
	fmt.Printf("Go version: %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func shortCommit() string {
	if len(GitCommit) > 7 {
		return GitCommit[:7]
	}
	return GitCommit
}
