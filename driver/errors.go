package driver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoStoredHash is returned by ReadStoredHash when an artifact exists but its
// first line is not a "#<digest>" marker.
var ErrNoStoredHash = errors.New("no stored hash line")

// ExecutionError reports a driver process that could not be started or that
// exited with a nonzero status. ExitCode is -1 when the process never ran.
type ExecutionError struct {
	Command  []string
	ExitCode int
	Err      error
}

func (e *ExecutionError) Error() string {
	cmd := strings.Join(e.Command, " ")
	if e.Err != nil {
		return fmt.Sprintf("command %q failed: %v", cmd, e.Err)
	}
	return fmt.Sprintf("command %q exited with status %d", cmd, e.ExitCode)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// CacheReadError reports an artifact whose stored hash could not be read.
// Ensure treats it as a stale cache and reruns; it never surfaces from there.
type CacheReadError struct {
	Path string
	Err  error
}

func (e *CacheReadError) Error() string {
	return fmt.Sprintf("reading cache hash from %s: %v", e.Path, e.Err)
}

func (e *CacheReadError) Unwrap() error { return e.Err }

// ConstructionError reports a malformed or self-contradictory descriptor.
type ConstructionError struct {
	Reason string
	// Rendered is the canonical text of the partially built descriptor, if any.
	Rendered string
}

func (e *ConstructionError) Error() string {
	if e.Rendered == "" {
		return "invalid driver descriptor: " + e.Reason
	}
	return fmt.Sprintf("invalid driver descriptor: %s\n%s", e.Reason, e.Rendered)
}
