package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abyssdigger/lgrkit/errs"
	"github.com/abyssdigger/lgrkit/lgr"
)

func Test_Build_FileAndStructured(t *testing.T) {
	for _, backend := range []string{BACKEND_ZEROLOG, BACKEND_ZAP} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			cfg := &Config{
				MinSeverity: "info",
				File:        FileConfig{Enabled: true, Path: filepath.Join(dir, "out.log")},
				Structured:  StructuredConfig{Enabled: true, Backend: backend, Path: filepath.Join(dir, "out.json")},
				Queue:       QueueConfig{Enabled: true, Buffer: 4},
			}
			reg := lgr.NewRegistry()
			s, err := Build(reg, cfg)
			require.NoError(t, err)
			require.Len(t, s.Listeners(), 2)
			assert.Equal(t, 2, reg.Len())
			for _, l := range s.Listeners() {
				assert.IsType(t, &lgr.Queued{}, l)
				assert.Equal(t, lgr.SEV_INFO, l.Filter().MinSeverity())
			}

			reg.Debug("filtered")
			reg.Warning("disk full")
			require.NoError(t, s.Close())
			assert.Zero(t, reg.Len())
			assert.Empty(t, s.Listeners())

			text, err := os.ReadFile(cfg.File.Path)
			require.NoError(t, err)
			assert.Equal(t, " WARNING: disk full\n", string(text))

			data, err := os.ReadFile(cfg.Structured.Path)
			require.NoError(t, err)
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			require.Len(t, lines, 1)
			m := map[string]any{}
			require.NoError(t, json.Unmarshal([]byte(lines[0]), &m))
			assert.Equal(t, "warn", m["level"])
		})
	}
}

func Test_Build_RateLimitedConsole(t *testing.T) {
	cfg := &Config{AppName: "App", Console: ConsoleConfig{Enabled: true}, Rate: RateConfig{PerSec: 1, Burst: 1}}
	reg := lgr.NewRegistry()
	s, err := Build(reg, cfg)
	require.NoError(t, err)
	require.Len(t, s.Listeners(), 1)
	rl, ok := s.Listeners()[0].(*lgr.RateLimited)
	require.True(t, ok)
	reg.Debug("console test line, only this one is printed")
	reg.Debug("dropped")
	assert.Equal(t, uint64(1), rl.Dropped())
	assert.NoError(t, s.Close())
}

func Test_Build_Failure(t *testing.T) {
	dir := t.TempDir()
	reg := lgr.NewRegistry()
	cfg := &Config{
		Console: ConsoleConfig{Enabled: true}, // built before the file fails
		File:    FileConfig{Enabled: true, Path: filepath.Join(dir, "no", "dir", "x.log")},
	}
	s, err := Build(reg, cfg)
	assert.Nil(t, s)
	assert.Equal(t, errs.KIND_RESOURCE, errs.KindOf(err))
	assert.Zero(t, reg.Len(), "nothing stays registered")

	_, err = Build(reg, &Config{MinSeverity: "loud"})
	assert.Error(t, err)
	assert.Zero(t, reg.Len())
}
