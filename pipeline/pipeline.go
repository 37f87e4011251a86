package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hgcal-tools/simchain/driver"
)

// Stage is a validated stage with its built descriptor.
type Stage struct {
	Name         string
	Descriptor   *driver.Descriptor
	DebugModules []string
}

// RunOptions selects and configures the stages Run executes.
type RunOptions struct {
	// Only restricts the run to the named stages, kept in pipeline order.
	Only         []string
	Force        bool
	Dry          bool
	AllowFailure bool
}

// StageRecord is the outcome of one stage of a run.
type StageRecord struct {
	RunID    string
	Stage    string
	Output   string
	Hash     driver.Digest
	Reason   driver.Reason
	Skipped  bool
	Dry      bool
	ExitCode int
	Duration time.Duration
}

// Failed reports whether the stage ran and exited nonzero.
func (r StageRecord) Failed() bool {
	return r.ExitCode != 0
}

// Pipeline is an ordered list of stages sharing one program and digest.
type Pipeline struct {
	stages    []Stage
	algorithm driver.Algorithm
	notifier  *Notifier
}

// New builds every stage descriptor up front so that construction errors
// surface before anything runs.
func New(cfg *Config, notifier *Notifier) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = NewNotifier(nil)
	}
	p := &Pipeline{algorithm: cfg.Algorithm(), notifier: notifier}
	for _, sc := range cfg.Stages {
		d, err := sc.Descriptor(cfg.Program)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", sc.Name, err)
		}
		p.stages = append(p.stages, Stage{Name: sc.Name, Descriptor: d, DebugModules: sc.DebugModules})
	}
	return p, nil
}

// Stages returns the stages in pipeline order.
func (p *Pipeline) Stages() []Stage {
	return slices.Clone(p.stages)
}

// Algorithm is the digest algorithm a Materializer for this pipeline must use.
func (p *Pipeline) Algorithm() driver.Algorithm {
	return p.algorithm
}

func (p *Pipeline) selected(only []string) ([]Stage, error) {
	if len(only) == 0 {
		return p.stages, nil
	}
	for _, name := range only {
		if !slices.ContainsFunc(p.stages, func(s Stage) bool { return s.Name == name }) {
			return nil, fmt.Errorf("unknown stage %q", name)
		}
	}
	var out []Stage
	for _, s := range p.stages {
		if slices.Contains(only, s.Name) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Run materializes the selected stages in order with m. It stops at the first
// stage that returns an error and returns the records gathered so far. With
// AllowFailure a nonzero exit is recorded and the run continues.
func (p *Pipeline) Run(m *driver.Materializer, opts RunOptions) ([]StageRecord, error) {
	stages, err := p.selected(opts.Only)
	if err != nil {
		return nil, err
	}

	records := make([]StageRecord, 0, len(stages))
	for _, s := range stages {
		for _, module := range s.DebugModules {
			p.notifier.DebugModuleAdded(module)
		}

		rec := StageRecord{RunID: uuid.New().String(), Stage: s.Name, Output: s.Descriptor.OutputPath()}
		logrus.Infof("[%s] stage %s -> %s", rec.RunID[:8], s.Name, rec.Output)

		start := time.Now()
		res, err := m.Ensure(s.Descriptor, driver.RunOptions{
			Force:        opts.Force,
			Dry:          opts.Dry,
			AllowFailure: opts.AllowFailure,
		})
		rec.Duration = time.Since(start)
		if res != nil {
			rec.Hash = res.Hash
			rec.Reason = res.Reason
			rec.Skipped = res.Skipped
			rec.Dry = res.Dry
			rec.ExitCode = res.ExitCode
		}
		records = append(records, rec)
		if err != nil {
			return records, fmt.Errorf("stage %q: %w", s.Name, err)
		}
		if rec.Failed() {
			logrus.Warnf("stage %s exited with status %d; continuing", s.Name, rec.ExitCode)
		}
	}
	return records, nil
}
