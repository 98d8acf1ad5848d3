// Package config describes a logging setup in YAML, builds it into a
// registry and applies filter changes to a running setup.
//
//	app_name: MyApp
//	min_severity: info
//	severity_mask: [info, warning, error, fatal]
//	console: {enabled: true, colors: true, time_format: "15:04:05"}
//	file: {enabled: true, path: myapp.log, append: true}
//	structured: {enabled: true, backend: zerolog, path: myapp.json}
//	rate: {per_sec: 100, burst: 20}
//	queue: {enabled: true, buffer: 64}
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v3"

	"github.com/abyssdigger/lgrkit/errs"
	"github.com/abyssdigger/lgrkit/lgr"
)

const (
	BACKEND_ZEROLOG = "zerolog"
	BACKEND_ZAP     = "zap"

	DEFAULT_MIN_SEVERITY = "debug"
)

type Config struct {
	AppName      string           `yaml:"app_name"`
	MinSeverity  string           `yaml:"min_severity"`
	SeverityMask []string         `yaml:"severity_mask"` // empty means all severities
	Console      ConsoleConfig    `yaml:"console"`
	File         FileConfig       `yaml:"file"`
	Structured   StructuredConfig `yaml:"structured"`
	Rate         RateConfig       `yaml:"rate"`
	Queue        QueueConfig      `yaml:"queue"`
}

type ConsoleConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Stderr     bool   `yaml:"stderr"`
	Colors     bool   `yaml:"colors"`
	TimeFormat string `yaml:"time_format"`
}

type FileConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	Append     bool   `yaml:"append"`
	TimeFormat string `yaml:"time_format"`
}

// StructuredConfig enables a JSON sink backed by zerolog or zap. An empty path
// means [os.Stderr].
type StructuredConfig struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Rate limiting of every sink, off if PerSec is zero.
type RateConfig struct {
	PerSec float64 `yaml:"per_sec"`
	Burst  int     `yaml:"burst"`
}

// Asynchronous delivery to every sink.
type QueueConfig struct {
	Enabled bool `yaml:"enabled"`
	Buffer  int  `yaml:"buffer"`
}

// Default is a console-only setup passing every severity.
func Default() *Config {
	return &Config{
		MinSeverity: DEFAULT_MIN_SEVERITY,
		Console:     ConsoleConfig{Enabled: true},
	}
}

// Load reads and validates a YAML file. Read failures and malformed content
// are KIND_RESOURCE errors naming the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Resource(errs.IO_READ, path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errs.Resource(errs.IO_PARSE, path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over Default() and validates the result. Unknown keys
// are rejected; empty input gives the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("yaml decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that can't be checked by decoding.
func (c *Config) Validate() error {
	if _, err := c.MinSeverityValue(); err != nil {
		return fmt.Errorf("min_severity: %w", err)
	}
	if _, err := c.Mask(); err != nil {
		return fmt.Errorf("severity_mask: %w", err)
	}
	if c.File.Enabled && len(c.File.Path) == 0 {
		return errors.New("file: path is required")
	}
	if c.Structured.Enabled {
		switch strings.ToLower(c.Structured.Backend) {
		case BACKEND_ZEROLOG, BACKEND_ZAP:
		default:
			return fmt.Errorf("structured: unknown backend `%s`", c.Structured.Backend)
		}
	}
	if c.Rate.PerSec < 0 || c.Rate.Burst < 0 {
		return errors.New("rate: negative values")
	}
	if c.Queue.Buffer < 0 {
		return errors.New("queue: negative buffer")
	}
	return nil
}

// MinSeverityValue parses MinSeverity (the sentinel names are accepted).
func (c *Config) MinSeverityValue() (lgr.Severity, error) {
	if len(c.MinSeverity) == 0 {
		return lgr.DEFAULT_MIN_SEVERITY, nil
	}
	return lgr.ParseSeverity(c.MinSeverity)
}

// Mask combines SeverityMask, every entry must be a message severity.
func (c *Config) Mask() (uint32, error) {
	if len(c.SeverityMask) == 0 {
		return lgr.SEV_MASK_ALL, nil
	}
	var mask uint32
	for _, name := range c.SeverityMask {
		s, err := lgr.ParseSeverity(name)
		if err != nil {
			return 0, err
		}
		if !s.IsValid() {
			return 0, errs.Parameter(0, "not a message severity `"+name+"`")
		}
		mask |= lgr.MaskOf(s)
	}
	return mask, nil
}

// Apply sets the filter values of the config on every listener of reg.
func Apply(reg *lgr.Registry, c *Config) error {
	minSev, err := c.MinSeverityValue()
	if err != nil {
		return err
	}
	mask, err := c.Mask()
	if err != nil {
		return err
	}
	reg.SetMinSeverityOnAll(minSev).SetSeverityMaskOnAll(mask)
	return nil
}
