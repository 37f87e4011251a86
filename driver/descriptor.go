package driver

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultProgram is the driver executable used when a Spec leaves Program empty.
	DefaultProgram = "cmsDriver.py"

	// OutputOption names the option that pins the generated configuration file.
	OutputOption = "--python_filename"

	// StepOption selects the chain steps; it feeds the derived output name.
	StepOption = "-s"
)

// Spec is the unvalidated input to Build.
type Spec struct {
	Program string
	Args    []string
	Options map[string]string
	// OutputFile, when set, becomes the --python_filename option. It must agree
	// with any --python_filename already present in Options.
	OutputFile string
}

// Descriptor is the canonical form of a single driver invocation. Options are
// kept in a map and always rendered in sorted key order, so construction order
// never affects identity.
type Descriptor struct {
	Program string
	Args    []string
	Options map[string]string
}

// Build validates spec and returns its Descriptor.
func Build(spec Spec) (*Descriptor, error) {
	d := &Descriptor{
		Program: spec.Program,
		Args:    append([]string(nil), spec.Args...),
		Options: make(map[string]string, len(spec.Options)+1),
	}
	if d.Program == "" {
		d.Program = DefaultProgram
	}
	for k, v := range spec.Options {
		d.Options[k] = v
	}
	for _, k := range d.sortedKeys() {
		if k == "" || !strings.HasPrefix(k, "-") {
			return nil, &ConstructionError{
				Reason:   fmt.Sprintf("option name %q must start with '-'", k),
				Rendered: d.String(),
			}
		}
	}
	if spec.OutputFile != "" {
		if err := d.setOutput(spec.OutputFile); err != nil {
			return nil, err
		}
	}
	if out, ok := d.Options[OutputOption]; ok && out == "" {
		return nil, &ConstructionError{Reason: OutputOption + " must not be empty", Rendered: d.String()}
	}
	if len(d.Args) == 0 && d.Options[OutputOption] == "" {
		return nil, &ConstructionError{
			Reason:   "output path cannot be derived: no positional arguments and no " + OutputOption,
			Rendered: d.String(),
		}
	}
	return d, nil
}

// WithOutputFile returns a copy of d whose generated configuration is written
// to name. A different explicit output already on d is a ConstructionError.
func (d *Descriptor) WithOutputFile(name string) (*Descriptor, error) {
	c := d.clone()
	if err := c.setOutput(name); err != nil {
		return nil, err
	}
	return c, nil
}

func (d *Descriptor) setOutput(name string) error {
	if name == "" {
		return &ConstructionError{Reason: OutputOption + " must not be empty", Rendered: d.String()}
	}
	if existing, ok := d.Options[OutputOption]; ok && existing != name {
		return &ConstructionError{
			Reason:   fmt.Sprintf("output file %q conflicts with %s %q", name, OutputOption, existing),
			Rendered: d.String(),
		}
	}
	d.Options[OutputOption] = name
	return nil
}

func (d *Descriptor) clone() *Descriptor {
	c := &Descriptor{
		Program: d.Program,
		Args:    append([]string(nil), d.Args...),
		Options: make(map[string]string, len(d.Options)+1),
	}
	for k, v := range d.Options {
		c.Options[k] = v
	}
	return c
}

func (d *Descriptor) sortedKeys() []string {
	keys := make([]string, 0, len(d.Options))
	for k := range d.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Command returns the argv for the driver: program, positional arguments, then
// option/value pairs in sorted option order.
func (d *Descriptor) Command() []string {
	cmd := make([]string, 0, 1+len(d.Args)+2*len(d.Options))
	cmd = append(cmd, d.Program)
	cmd = append(cmd, d.Args...)
	for _, k := range d.sortedKeys() {
		cmd = append(cmd, k, d.Options[k])
	}
	return cmd
}

// OutputPath is the configuration file the driver will write. An explicit
// --python_filename wins; otherwise it is the first positional argument with
// the step selector appended (commas become underscores) and a .py suffix.
func (d *Descriptor) OutputPath() string {
	if out, ok := d.Options[OutputOption]; ok {
		return out
	}
	if len(d.Args) == 0 {
		return ""
	}
	name := d.Args[0]
	if steps, ok := d.Options[StepOption]; ok {
		name += strings.ReplaceAll(steps, ",", "_")
	}
	return name + ".py"
}

// String is the canonical text of the invocation and the input to Hash.
//
//	<cmsDriver.py
//	  TTbar_14TeV_TuneCP5_cfi
//	  --conditions auto:phase2_realistic_T15
//	  >
func (d *Descriptor) String() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(d.Program)
	for _, arg := range d.Args {
		b.WriteString("\n  ")
		b.WriteString(arg)
	}
	for _, k := range d.sortedKeys() {
		fmt.Fprintf(&b, "\n  %s %s", k, d.Options[k])
	}
	b.WriteString("\n  >")
	return b.String()
}
