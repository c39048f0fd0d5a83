package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, TRACE, ParseLevel("trace"))
	assert.Equal(t, WARN, ParseLevel(" Warning "))
	assert.Equal(t, INFO, ParseLevel("bogus"))
	assert.Equal(t, "CRITICAL", CRITICAL.String())
}

func TestFileLoggerLevels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	log, err := NewFileLogger(path, INFO, false)
	require.NoError(t, err)

	log.Debug("hidden %d", 1)
	log.Info("shown %d", 2)
	log.With("module", 3).Warn("child")
	log.Critical("bad")
	log.SetMinLevel(TRACE)
	log.Trace("now visible")
	require.NoError(t, log.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(b)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
	assert.Contains(t, out, "module")
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "TRACE")
	assert.Contains(t, out, "now visible")
}
