// Package pipeline sequences driver stages (GEN, SIM, DIGI, RECO, ...) read
// from a YAML file and materializes each one through the driver cache.
package pipeline

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hgcal-tools/simchain/driver"
)

// ConfigVersion is the only pipeline file version LoadConfig accepts.
const ConfigVersion = 1

// CustomiseOption is the driver option that debug modules are injected into.
const CustomiseOption = "--customise_commands"

// Config is a pipeline file.
type Config struct {
	Version int           `yaml:"version"`
	Program string        `yaml:"program,omitempty"`
	Digest  string        `yaml:"digest,omitempty"`
	Stages  []StageConfig `yaml:"stages"`
}

// StageConfig describes one driver invocation.
type StageConfig struct {
	Name           string            `yaml:"name"`
	Args           []string          `yaml:"args"`
	Options        map[string]string `yaml:"options,omitempty"`
	PythonFilename string            `yaml:"python_filename,omitempty"`
	DebugModules   []string          `yaml:"debug_modules,omitempty"`
}

// LoadConfig reads a pipeline file. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pipeline config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a pipeline file's contents.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing pipeline config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the fields that do not depend on the driver.
func (c *Config) Validate() error {
	if c.Version != ConfigVersion {
		return fmt.Errorf("unsupported pipeline version %d; want %d", c.Version, ConfigVersion)
	}
	if !driver.IsValidAlgorithm(c.Digest) {
		return fmt.Errorf("unknown digest %q; valid: sha224, blake3", c.Digest)
	}
	if len(c.Stages) == 0 {
		return fmt.Errorf("at least one stage required")
	}
	seen := make(map[string]bool, len(c.Stages))
	for i, s := range c.Stages {
		prefix := fmt.Sprintf("stages[%d]", i)
		if s.Name == "" {
			return fmt.Errorf("%s: name is required", prefix)
		}
		if seen[s.Name] {
			return fmt.Errorf("%s: duplicate stage name %q", prefix, s.Name)
		}
		seen[s.Name] = true
		if len(s.DebugModules) > 0 {
			if _, ok := s.Options[CustomiseOption]; ok {
				return fmt.Errorf("%s: debug_modules cannot be combined with an explicit %s option", prefix, CustomiseOption)
			}
		}
		for _, m := range s.DebugModules {
			if m == "" || strings.ContainsAny(m, `'"\`) {
				return fmt.Errorf("%s: invalid debug module name %q", prefix, m)
			}
		}
	}
	return nil
}

// Algorithm is the digest algorithm the pipeline's cache lines use.
func (c *Config) Algorithm() driver.Algorithm {
	if c.Digest == "" {
		return driver.AlgorithmSHA224
	}
	return driver.Algorithm(c.Digest)
}

// Descriptor builds the driver descriptor for a stage. Debug modules become a
// customisation command so that enabling one invalidates the cached artifact.
func (s StageConfig) Descriptor(program string) (*driver.Descriptor, error) {
	opts := make(map[string]string, len(s.Options)+1)
	for k, v := range s.Options {
		opts[k] = v
	}
	if len(s.DebugModules) > 0 {
		quoted := make([]string, len(s.DebugModules))
		for i, m := range s.DebugModules {
			quoted[i] = "'" + m + "'"
		}
		opts[CustomiseOption] = "process.MessageLogger.debugModules.extend([" + strings.Join(quoted, ",") + "])"
	}
	return driver.Build(driver.Spec{
		Program:    program,
		Args:       s.Args,
		Options:    opts,
		OutputFile: s.PythonFilename,
	})
}
