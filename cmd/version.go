package cmd

import (
	"fmt"
	"io"
)

// Build information, injected via -ldflags at release time.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func runVersion(w io.Writer) {
	fmt.Fprintf(w, "ai-my-tickets %s\n", Version)
	fmt.Fprintf(w, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)
}
