package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssdigger/lgrkit/errs"
	"github.com/abyssdigger/lgrkit/lgr"
)

const fullYAML = `
app_name: MyApp
min_severity: info
severity_mask: [info, warn, error, fatal]
console: {enabled: true, stderr: true, colors: true, time_format: "15:04:05"}
file: {enabled: true, path: my.log, append: true}
structured: {enabled: true, backend: zap}
rate: {per_sec: 100, burst: 20}
queue: {enabled: true, buffer: 64}
`

func Test_Parse(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	require.NoError(t, err)
	assert.Equal(t, &Config{
		AppName:      "MyApp",
		MinSeverity:  "info",
		SeverityMask: []string{"info", "warn", "error", "fatal"},
		Console:      ConsoleConfig{Enabled: true, Stderr: true, Colors: true, TimeFormat: "15:04:05"},
		File:         FileConfig{Enabled: true, Path: "my.log", Append: true},
		Structured:   StructuredConfig{Enabled: true, Backend: BACKEND_ZAP},
		Rate:         RateConfig{PerSec: 100, Burst: 20},
		Queue:        QueueConfig{Enabled: true, Buffer: 64},
	}, cfg)

	minSev, err := cfg.MinSeverityValue()
	assert.NoError(t, err)
	assert.Equal(t, lgr.SEV_INFO, minSev)
	mask, err := cfg.Mask()
	assert.NoError(t, err)
	assert.Equal(t, lgr.MaskOf(lgr.SEV_INFO, lgr.SEV_WARNING, lgr.SEV_ERROR, lgr.SEV_FATAL), mask)
}

func Test_Parse_Defaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	mask, err := cfg.Mask()
	assert.NoError(t, err)
	assert.Equal(t, lgr.SEV_MASK_ALL, mask)

	cfg, err = Parse([]byte("app_name: X\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Console.Enabled, "defaults survive partial files")
	assert.Equal(t, DEFAULT_MIN_SEVERITY, cfg.MinSeverity)
}

func Test_Parse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown_key", "colour: red\n", "yaml decode"},
		{"syntax", "app_name: [\n", "yaml decode"},
		{"min_severity", "min_severity: loud\n", "min_severity"},
		{"mask_sentinel", "severity_mask: [all]\n", "severity_mask"},
		{"mask_unknown", "severity_mask: [info, loud]\n", "severity_mask"},
		{"file_path", "file: {enabled: true}\n", "path is required"},
		{"backend", "structured: {enabled: true, backend: logrus}\n", "unknown backend"},
		{"rate", "rate: {per_sec: -1}\n", "rate"},
		{"queue", "queue: {buffer: -5}\n", "queue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			assert.Nil(t, cfg)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func Test_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lgr.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_severity: warning\n"), 0644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warning", cfg.MinSeverity)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.IO_READ, e.IO)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, os.WriteFile(path, []byte("min_severity: [\n"), 0644))
	_, err = Load(path)
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.IO_PARSE, e.IO)
	assert.Equal(t, path, e.Name)
}

func Test_Apply(t *testing.T) {
	reg := lgr.NewRegistry()
	c, err := lgr.NewConsoleListener(reg, "", &discard{})
	require.NoError(t, err)
	cfg, err := Parse([]byte("min_severity: error\nseverity_mask: [error]\n"))
	require.NoError(t, err)
	require.NoError(t, Apply(reg, cfg))
	assert.Equal(t, lgr.SEV_ERROR, c.Filter().MinSeverity())
	assert.Equal(t, lgr.MaskOf(lgr.SEV_ERROR), c.Filter().SeverityMask())

	assert.Error(t, Apply(reg, &Config{MinSeverity: "loud"}))
	assert.Equal(t, lgr.SEV_ERROR, c.Filter().MinSeverity(), "failed apply changes nothing")
}

type discard struct{}

func (discard) Write(b []byte) (int, error) { return len(b), nil }
