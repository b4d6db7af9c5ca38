package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pvregress/internal/snapshot"
)

// CommonKey names the field list applied to every scenario.
const CommonKey = "common"

// Defaults for keys omitted from the file.
const (
	DefaultSnapshotDir = "results"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
)

// FieldSpec declares one field to extract and its tolerances.
// Nil tolerances fall back to snapshot.DefaultAtol and snapshot.DefaultRtol.
type FieldSpec struct {
	Name string   `yaml:"name"`
	Atol *float64 `yaml:"atol,omitempty"`
	Rtol *float64 `yaml:"rtol,omitempty"`
}

// Tolerances returns the effective tolerance pair.
func (f FieldSpec) Tolerances() (atol, rtol float64) {
	atol, rtol = snapshot.DefaultAtol, snapshot.DefaultRtol
	if f.Atol != nil {
		atol = *f.Atol
	}
	if f.Rtol != nil {
		rtol = *f.Rtol
	}
	return atol, rtol
}

// Config is the harness configuration.
type Config struct {
	RawMode     string                 `yaml:"mode"`
	SnapshotDir string                 `yaml:"snapshot_dir"`
	Ledger      string                 `yaml:"ledger"`
	LogLevel    string                 `yaml:"log_level"`
	LogFormat   string                 `yaml:"log_format"`
	Fields      map[string][]FieldSpec `yaml:"fields"`

	// baseDir anchors relative paths; it is the config file's directory.
	baseDir string
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ValidationError{File: path, Field: "file", Message: err.Error(), Code: ErrRead}
	}

	cfg, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}
	cfg.baseDir = abs
	return cfg, nil
}

// Parse validates data against the CUE schema and decodes it.
// filename is used only for error positions.
func Parse(data []byte, filename string) (*Config, error) {
	if errs := Validate(data, filename); len(errs) > 0 {
		return nil, &errs[0]
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ValidationError{File: filename, Field: "config", Message: err.Error(), Code: ErrDecode}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SnapshotDir == "" {
		c.SnapshotDir = DefaultSnapshotDir
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Fields == nil {
		c.Fields = map[string][]FieldSpec{}
	}
}

// Mode returns the parsed mode selector.
func (c *Config) Mode() Mode {
	return ParseMode(c.RawMode)
}

// SetMode overrides the mode selector.
func (c *Config) SetMode(m string) {
	c.RawMode = m
}

// SnapshotPath returns the snapshot directory, resolved against the config
// file's directory when relative.
func (c *Config) SnapshotPath() string {
	return c.resolve(c.SnapshotDir)
}

// LedgerPath returns the ledger path, or "" when no ledger is configured.
func (c *Config) LedgerPath() string {
	if c.Ledger == "" {
		return ""
	}
	return c.resolve(c.Ledger)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}

// FieldsFor returns the common field list followed by the scenario's own.
// A scenario entry with the same name as a common one replaces it in place.
func (c *Config) FieldsFor(scenario string) []FieldSpec {
	var out []FieldSpec
	index := make(map[string]int)

	add := func(specs []FieldSpec) {
		for _, f := range specs {
			if i, ok := index[f.Name]; ok {
				out[i] = f
				continue
			}
			index[f.Name] = len(out)
			out = append(out, f)
		}
	}

	add(c.Fields[CommonKey])
	if scenario != CommonKey {
		add(c.Fields[scenario])
	}
	return out
}
