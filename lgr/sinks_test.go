package lgr

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/abyssdigger/lgrkit/errs"
)

func Test_ConsoleListener(t *testing.T) {
	reg := NewRegistry()
	out := &FakeWriter{}
	c, err := NewConsoleListener(reg, "[MyApp]", out)
	require.NoError(t, err)
	assert.True(t, reg.IsRegistered(c), "constructor registers")

	reg.Warning("disk is almost full")
	reg.BroadcastCode("custom message", 12345)
	assert.Equal(t, "[MyApp] WARNING: disk is almost full\n[MyApp] USERCODE: 12345 custom message\n", out.String())

	out.Clear()
	c.SetColors(SeverityColorOnBlackMap).ShowSeverityCode(true)
	reg.Info("colored")
	assert.Equal(t, "[4][MyApp]"+ANSI_COL_PRFX+"0;97"+ANSI_COL_SUFX+" INFO: colored"+ANSI_COL_RESET+"\n", out.String())

	out.Clear()
	c.SetColors(nil).ShowSeverityCode(false).SetTimeFormat("2006", "|")
	reg.Info("timed")
	assert.Regexp(t, `^\d{4}\|\[MyApp\] INFO: timed\n$`, out.String())

	out.Clear()
	c.SetTimeFormat("", "|")
	c.SetMinSeverity(SEV_ERROR)
	reg.Warning("filtered")
	assert.Empty(t, out.String())

	assert.NoError(t, c.Close())
	assert.False(t, reg.IsRegistered(c), "close unregisters")
	assert.NoError(t, c.Close())
}

func Test_ConsoleListener_Unregistered(t *testing.T) {
	c, err := NewConsoleListener(nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, c.out)
	assert.NoError(t, c.Close())
}

func Test_FileListener(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	reg := NewRegistry()
	f, err := NewFileListener(reg, path, false)
	require.NoError(t, err)
	assert.Equal(t, path, f.Path())
	assert.True(t, reg.IsRegistered(f))

	reg.Error("cannot connect")
	reg.BroadcastCode("custom message", 12345)
	require.NoError(t, f.Close())
	assert.False(t, reg.IsRegistered(f))
	assert.NoError(t, f.Close(), "second close is a no-op")
	reg.Error("not written")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, " ERROR: cannot connect\n USERCODE: 12345 custom message\n", string(data))

	t.Run("append", func(t *testing.T) {
		f, err := NewFileListener(reg, path, true)
		require.NoError(t, err)
		reg.Info("appended")
		require.NoError(t, f.Close())
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(string(data), "USERCODE: 12345 custom message\n INFO: appended\n"))
	})
	t.Run("truncate", func(t *testing.T) {
		f, err := NewFileListener(nil, path, false)
		require.NoError(t, err)
		f.SetTimeFormat("2006", " ")
		require.NoError(t, f.Output("fresh", SEV_INFO))
		require.NoError(t, f.Close())
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Regexp(t, `^\d{4}  INFO: fresh\n$`, string(data))
	})
}

func Test_FileListener_OpenFailure(t *testing.T) {
	reg := NewRegistry()
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "test.log")
	f, err := NewFileListener(reg, path, false)
	assert.Nil(t, f)
	assert.True(t, errors.Is(err, errs.ErrResource))
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, errs.IO_OPEN, e.IO)
	assert.Equal(t, path, e.Name)
	assert.True(t, errors.Is(err, os.ErrNotExist), "cause must be kept")
	assert.Zero(t, reg.Len(), "failed construction must not register")
}

func decodeLines(t *testing.T, data string) []map[string]any {
	t.Helper()
	var res []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		res = append(res, m)
	}
	return res
}

func Test_ZerologListener(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry()
	z, err := NewZerologListener(reg, zerolog.New(&buf))
	require.NoError(t, err)

	reg.Debug("d")
	reg.Warning("w")
	reg.Fatal("f")
	reg.BroadcastCode("c", 7)
	assert.Error(t, z.Output("bad", SEV_MAX_BOUND))

	lines := decodeLines(t, buf.String())
	require.Len(t, lines, 4)
	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "d", lines[0]["message"])
	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, true, lines[2]["fatal"])
	assert.Equal(t, "info", lines[3]["level"])
	assert.Equal(t, float64(7), lines[3]["code"])

	buf.Reset()
	z.SetMinSeverity(SEV_ERROR)
	reg.Info("filtered")
	assert.Empty(t, buf.String())

	assert.NoError(t, z.Close())
	assert.Zero(t, reg.Len())
}

func Test_ZerologListener_LevelDisabled(t *testing.T) {
	var buf bytes.Buffer
	z, err := NewZerologListener(nil, zerolog.New(&buf).Level(zerolog.WarnLevel))
	require.NoError(t, err)
	assert.NoError(t, z.Output("skipped by zerolog", SEV_INFO))
	assert.NoError(t, z.OutputCode("skipped by zerolog", 1))
	assert.Empty(t, buf.String())
}

func newZapLogger(buf *bytes.Buffer) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(buf), zapcore.DebugLevel)
	return zap.New(core)
}

func Test_ZapListener(t *testing.T) {
	var buf bytes.Buffer
	reg := NewRegistry()
	z, err := NewZapListener(reg, newZapLogger(&buf))
	require.NoError(t, err)

	reg.Info("i")
	reg.Error("e")
	reg.Fatal("f")
	reg.BroadcastCode("c", 9)
	assert.Error(t, z.Output("bad", SEV_MIN_BOUND))

	lines := decodeLines(t, buf.String())
	require.Len(t, lines, 4)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "i", lines[0]["msg"])
	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, true, lines[2]["fatal"])
	assert.Equal(t, float64(9), lines[3]["code"])

	assert.NoError(t, z.Close())
	assert.Zero(t, reg.Len())

	_, err = NewZapListener(reg, nil)
	assert.Equal(t, errs.KIND_PARAMETER, errs.KindOf(err))
}

func Test_RateLimited(t *testing.T) {
	reg := NewRegistry()
	inner := newRecorder()
	r, err := NewRateLimited(reg, inner, 0.001, 3)
	require.NoError(t, err)
	assert.Same(t, inner.Filter(), r.Filter(), "filter is shared")

	for range 10 {
		reg.Info("burst")
	}
	assert.Len(t, inner.Messages(), 3, "only the burst passes")
	assert.Equal(t, uint64(7), r.Dropped())
	reg.BroadcastCode("code", 1)
	assert.Equal(t, uint64(8), r.Dropped())
	assert.Zero(t, reg.Faults(), "dropping is not a fault")

	assert.NoError(t, r.Close())
	assert.Zero(t, reg.Len())

	t.Run("refill", func(t *testing.T) {
		inner := newRecorder()
		r, err := NewRateLimited(nil, inner, 10, 1)
		require.NoError(t, err)
		assert.NoError(t, r.Output("1", SEV_INFO))
		assert.NoError(t, r.Output("2", SEV_INFO))
		time.Sleep(150 * time.Millisecond)
		assert.NoError(t, r.Output("3", SEV_INFO))
		assert.Equal(t, []string{"1", "3"}, inner.Messages())
	})
	t.Run("bad_params", func(t *testing.T) {
		_, err := NewRateLimited(nil, nil, 1, 1)
		assert.Equal(t, errs.KIND_PARAMETER, errs.KindOf(err))
		_, err = NewRateLimited(nil, inner, 0, 1)
		assert.Equal(t, errs.KIND_PARAMETER, errs.KindOf(err))
	})
	t.Run("closes_inner", func(t *testing.T) {
		file, err := NewFileListener(nil, filepath.Join(t.TempDir(), "rl.log"), false)
		require.NoError(t, err)
		r, err := NewRateLimited(nil, file, 1, 1)
		require.NoError(t, err)
		assert.NoError(t, r.Close())
		assert.Nil(t, file.file)
	})
}
