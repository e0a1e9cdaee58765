// Package version exposes the build version stamped via ldflags.
package version

// version is overridden at build time:
//
//	go build -ldflags "-X github.com/verityhq/verity/internal/version.version=v1.2.3"
var version = "v0.0.0"

// Value returns the build version.
func Value() string {
	return version
}
