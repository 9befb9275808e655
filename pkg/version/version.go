// Package version exposes the build version of the ark CLI.
package version

// version is set at build time via
// -ldflags "-X github.com/jgu13/ark-analysis/pkg/version.version=v1.2.3".
//
//nolint:gochecknoglobals // Build-time injection target.
var version = "dev"

// GetVersion returns the build version string.
func GetVersion() string {
	return version
}
