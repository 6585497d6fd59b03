package light2d

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogger_RoutesBySeverity(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewDefaultLoggerTo(&out, &errOut, "light", false)

	l.Debugf("hidden %d", 1)
	l.Infof("frame %d", 2)
	l.Warnf("skipped view %s", "main")
	l.Errorf("pass disabled")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[light] INFO: frame 2")
	assert.Contains(t, errOut.String(), "[light] WARN: skipped view main")
	assert.Contains(t, errOut.String(), "[light] ERROR: pass disabled")
	assert.NotContains(t, out.String(), "WARN")

	l.SetDebug(true)
	assert.True(t, l.DebugEnabled())
	l.Debugf("shown")
	assert.Contains(t, out.String(), "[light] DEBUG: shown")
}

func TestDefaultLogger_Level(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewDefaultLoggerTo(&out, &errOut, "", false)
	l.SetLevel(LevelError)

	l.Infof("info")
	l.Warnf("warn")
	l.Errorf("boom")

	assert.Empty(t, out.String())
	assert.NotContains(t, errOut.String(), "warn")
	assert.Contains(t, errOut.String(), "ERROR: boom")
	assert.False(t, l.DebugEnabled())
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"":        LevelInfo,
		"warning": LevelWarn,
		" error ": LevelError,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
	assert.Equal(t, "LogLevel(9)", LogLevel(9).String())
}

func TestLoggingModule_Level(t *testing.T) {
	app := NewApp()
	app.UseModules(LoggingModule{Prefix: "test", Level: LevelWarn})
	logger := Resource[DefaultLogger](app)
	require.NotNil(t, logger)
	assert.Equal(t, LevelWarn, logger.Level())

	debug := NewApp()
	debug.UseModules(LoggingModule{Debug: true, Level: LevelError})
	assert.True(t, debug.Logger().DebugEnabled())
}
