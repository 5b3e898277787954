package version

import (
	"fmt"
	"runtime"
)

// These variables are intended to be set at build time via -ldflags.
// Defaults are useful for local development builds.
var (
	// Version is the semantic version of the build, e.g. v0.1.0. Defaults to "dev".
	Version = "dev"
	// Commit is the short git commit hash. Defaults to ""
	Commit = ""
	// Date is the build timestamp in RFC3339. Defaults to ""
	Date = ""
	// Go is the Go toolchain version used for the build.
	Go = runtime.Version()
)

// Product is the name sent in the outbound User-Agent header.
const Product = "reqfacade"

// Info returns a map of version/build metadata suitable for logging or JSON responses.
func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
		"go":      Go,
	}
}

// UserAgent returns the default User-Agent for outbound requests, e.g. "reqfacade/v0.3.1".
func UserAgent() string {
	return fmt.Sprintf("%s/%s", Product, Version)
}

// String renders a single-line build summary for the CLI.
func String() string {
	s := fmt.Sprintf("%s %s (%s)", Product, Version, Go)
	if Commit != "" {
		s += " commit " + Commit
	}
	if Date != "" {
		s += " built " + Date
	}
	return s
}
