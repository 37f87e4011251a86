package driver

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// DryOutput is the placeholder output of a dry run.
const DryOutput = "<dry output>"

// DefaultOutputFile is used by Load when a descriptor pins no output file.
const DefaultOutputFile = "tmp.py"

// Reason explains a run/skip decision.
type Reason string

const (
	ReasonForced  Reason = "forced"
	ReasonMissing Reason = "missing"
	ReasonStale   Reason = "stale"
	ReasonFresh   Reason = "fresh"
)

// Decision is the outcome of checking a descriptor against its artifact.
type Decision struct {
	Run    bool
	Reason Reason
	// Stored is the digest found in the artifact, empty if none was readable.
	Stored Digest
	Want   Digest
}

// RunOptions control a single Ensure call.
type RunOptions struct {
	// Force reruns even when the artifact is fresh.
	Force bool
	// Dry logs the command that would run and returns DryOutput.
	Dry bool
	// AllowFailure returns a nonzero exit code instead of an *ExecutionError.
	AllowFailure bool
}

// Result describes what Ensure did.
type Result struct {
	ExitCode int
	Output   []string
	Hash     Digest
	Path     string
	Reason   Reason
	Skipped  bool
	Dry      bool
}

// Materializer decides whether a driver invocation must run and runs it.
// It keeps no state between calls; validity lives in the artifacts.
// Callers must not run two Ensure calls for the same output path concurrently.
type Materializer struct {
	Runner    Runner
	Algorithm Algorithm
}

// NewMaterializer returns a Materializer using runner and the given digest algorithm.
func NewMaterializer(runner Runner, alg Algorithm) *Materializer {
	return &Materializer{Runner: runner, Algorithm: alg}
}

// Decide reports whether d must run. Unreadable or hashless artifacts count
// as stale.
func (m *Materializer) Decide(d *Descriptor, force bool) (Decision, error) {
	want, err := Hash(d, m.Algorithm)
	if err != nil {
		return Decision{}, err
	}
	if force {
		return Decision{Run: true, Reason: ReasonForced, Want: want}, nil
	}
	path := d.OutputPath()
	if _, err := os.Stat(path); err != nil {
		return Decision{Run: true, Reason: ReasonMissing, Want: want}, nil
	}
	stored, err := ReadStoredHash(path)
	if err != nil {
		logrus.Debugf("treating %s as stale: %v", path, err)
		return Decision{Run: true, Reason: ReasonStale, Want: want}, nil
	}
	if stored != want {
		return Decision{Run: true, Reason: ReasonStale, Stored: stored, Want: want}, nil
	}
	return Decision{Run: false, Reason: ReasonFresh, Stored: stored, Want: want}, nil
}

// Ensure makes sure the artifact of d exists and was produced by d. A fresh
// artifact is left alone and no process is spawned. After a successful run
// the identity digest is written as the artifact's first line.
func (m *Materializer) Ensure(d *Descriptor, opts RunOptions) (*Result, error) {
	decision, err := m.Decide(d, opts.Force)
	if err != nil {
		return nil, err
	}
	result := &Result{Hash: decision.Want, Path: d.OutputPath(), Reason: decision.Reason}

	if !decision.Run {
		logrus.Infof("Not running driver command (%s): %s", decision.Reason, d)
		result.Skipped = true
		return result, nil
	}

	command := d.Command()
	if opts.Dry {
		logrus.Infof("(dry) Issuing command %s", strings.Join(command, " "))
		result.Dry = true
		result.Output = []string{DryOutput}
		return result, nil
	}

	logrus.Infof("Running driver command (%s): %s", decision.Reason, d)
	logrus.Infof("Issuing command %s", strings.Join(command, " "))
	exitCode, output, err := m.Runner.Run(command, opts.AllowFailure)
	result.ExitCode = exitCode
	result.Output = output
	if err != nil {
		return result, err
	}
	if exitCode != 0 {
		logrus.Warnf("Driver exited with status %d; %s left without hash", exitCode, result.Path)
		return result, nil
	}

	if _, err := os.Stat(result.Path); err != nil {
		return result, fmt.Errorf("driver succeeded but produced no artifact at %s: %w", result.Path, err)
	}
	if err := PrependHash(result.Path, decision.Want); err != nil {
		return result, err
	}
	return result, nil
}

// Load materializes d into outfile (or the descriptor's own output, or
// DefaultOutputFile when neither is set) and returns the artifact content
// without its hash line.
func (m *Materializer) Load(d *Descriptor, outfile string, opts RunOptions) (string, *Result, error) {
	if outfile == "" {
		outfile = d.Options[OutputOption]
	}
	if outfile == "" {
		outfile = DefaultOutputFile
	}
	target := d.clone()
	target.Options[OutputOption] = outfile

	result, err := m.Ensure(target, opts)
	if err != nil {
		return "", result, err
	}
	if result.Dry {
		return "", result, nil
	}
	if result.ExitCode != 0 {
		return "", result, &ExecutionError{Command: target.Command(), ExitCode: result.ExitCode}
	}
	content, err := LoadArtifact(outfile)
	if err != nil {
		return "", result, err
	}
	logrus.Infof("Loaded configuration from %s", outfile)
	return content, result, nil
}
