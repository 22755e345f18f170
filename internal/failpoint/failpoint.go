//go:build !failpoint

// Package failpoint provides fault injection for testing.
// This is the default (no-op) implementation used in production builds.
// Build with -tags=failpoint to enable the injectable version.
//
// Storage code calls Hit at the points where a real backend could fail, e.g.
// "docstore/update" right before a bulk update is applied.
package failpoint

import "errors"

// ErrInjected is returned when a failpoint is hit and configured to fail.
var ErrInjected = errors.New("failpoint: injected error")

// Hit checks if a failpoint is enabled and returns an error if so.
// In the default build, this always returns nil.
func Hit(name string) error {
	return nil
}

// Enable configures a failpoint to be active.
// In the default build, this is a no-op.
func Enable(name string, cfg Config) {}

// Disable turns off a failpoint.
// In the default build, this is a no-op.
func Disable(name string) {}

// DisableAll turns off all failpoints.
// In the default build, this is a no-op.
func DisableAll() {}

// IsEnabled returns whether a failpoint is active.
// In the default build, this always returns false.
func IsEnabled(name string) bool {
	return false
}

// HitCount returns how many times an enabled failpoint has been reached.
// In the default build, this always returns 0.
func HitCount(name string) int64 {
	return 0
}

// Failpoint configuration types
const (
	// ConfigAlwaysFail makes the failpoint always return an error
	ConfigAlwaysFail = "always"
	// ConfigFailOnce makes the failpoint fail once then disable
	ConfigFailOnce = "once"
	// ConfigFailAfterN makes the failpoint pass N times then fail
	ConfigFailAfterN = "after_n"
)

// Config holds failpoint configuration.
type Config struct {
	Type string // ConfigAlwaysFail, ConfigFailOnce, ConfigFailAfterN
	N    int    // For ConfigFailAfterN
}

// AlwaysError is a convenience config that always fails.
var AlwaysError = Config{Type: ConfigAlwaysFail}

// FailOnce is a convenience config that fails once.
var FailOnce = Config{Type: ConfigFailOnce}

// FailAfter returns a config that lets n hits pass and fails every later one.
func FailAfter(n int) Config {
	return Config{Type: ConfigFailAfterN, N: n}
}
