//go:build failpoint

// Package failpoint provides fault injection for testing.
// This is the enabled implementation used when built with -tags=failpoint.
package failpoint

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInjected is returned when a failpoint is hit and configured to fail.
var ErrInjected = errors.New("failpoint: injected error")

// failpointState holds the state for a single failpoint.
type failpointState struct {
	enabled bool
	config  Config
	hits    int64
}

var (
	mu         sync.Mutex
	failpoints = make(map[string]*failpointState)
)

// Hit checks if a failpoint is enabled and returns an error if so.
// The error wraps ErrInjected and names the failpoint.
func Hit(name string) error {
	mu.Lock()
	defer mu.Unlock()

	fp, ok := failpoints[name]
	if !ok || !fp.enabled {
		return nil
	}
	fp.hits++

	fail := false
	switch fp.config.Type {
	case ConfigFailOnce:
		fail = true
		fp.enabled = false
	case ConfigFailAfterN:
		fail = fp.hits > int64(fp.config.N)
	default:
		// ConfigAlwaysFail and unknown types
		fail = true
	}
	if !fail {
		return nil
	}
	return fmt.Errorf("%s: %w", name, ErrInjected)
}

// Enable configures a failpoint to be active and resets its hit count.
func Enable(name string, cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	if cfg.Type == "" {
		cfg.Type = ConfigAlwaysFail
	}
	failpoints[name] = &failpointState{enabled: true, config: cfg}
}

// Disable turns off a failpoint.
func Disable(name string) {
	mu.Lock()
	defer mu.Unlock()

	if fp, ok := failpoints[name]; ok {
		fp.enabled = false
	}
}

// DisableAll turns off all failpoints.
func DisableAll() {
	mu.Lock()
	defer mu.Unlock()

	for _, fp := range failpoints {
		fp.enabled = false
	}
}

// IsEnabled returns whether a failpoint is active.
func IsEnabled(name string) bool {
	mu.Lock()
	defer mu.Unlock()

	fp, ok := failpoints[name]
	return ok && fp.enabled
}

// HitCount returns how many times the failpoint has been reached since Enable.
func HitCount(name string) int64 {
	mu.Lock()
	defer mu.Unlock()

	if fp, ok := failpoints[name]; ok {
		return fp.hits
	}
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
