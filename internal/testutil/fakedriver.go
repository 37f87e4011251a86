// Package testutil provides shared test infrastructure for simchain.
// It builds stand-in driver executables so driver/, pipeline/ and cmd/ tests
// can exercise real process execution without the simulation framework
// installed, and loads the golden forest dataset used by tracktree/.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FakeDriver is a generated shell script that mimics the configuration driver:
// it writes a small configuration file to the --python_filename argument,
// prints to stdout and stderr, records each invocation, and exits with a fixed
// status.
type FakeDriver struct {
	Program  string
	runsFile string
}

// NewFakeDriver writes a fake driver into a fresh temp dir. exitCode is the
// status every invocation exits with.
func NewFakeDriver(t *testing.T, exitCode int) *FakeDriver {
	t.Helper()

	dir := t.TempDir()
	runsFile := filepath.Join(dir, "runs.log")
	script := fmt.Sprintf(`#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--python_filename" ]; then
    out="$2"
    shift
  fi
  shift
done
echo "invoked $out" >> %q
echo "Step: configuring $out"
echo "warning: fake driver" 1>&2
if [ -n "$out" ]; then
  printf '# Auto generated configuration file\nimport FWCore.ParameterSet.Config as cms\nprocess = cms.Process("FAKE")\n' > "$out"
fi
exit %d
`, runsFile, exitCode)

	program := filepath.Join(dir, "fakeDriver.sh")
	if err := os.WriteFile(program, []byte(script), 0755); err != nil {
		t.Fatalf("Failed to write fake driver: %v", err)
	}
	return &FakeDriver{Program: program, runsFile: runsFile}
}

// Runs returns how many times the fake driver has been invoked.
func (f *FakeDriver) Runs(t *testing.T) int {
	t.Helper()
	data, err := os.ReadFile(f.runsFile)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("Failed to read fake driver run log: %v", err)
	}
	return strings.Count(string(data), "\n")
}
