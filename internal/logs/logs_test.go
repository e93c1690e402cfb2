package logs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelAndFormat(t *testing.T) {
	l := New(Options{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	l = New(Options{Level: "nonsense"})
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, l.Formatter)
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audience.log")
	l := New(Options{Level: "info", Format: "json", File: path})
	l.WithField("device_id", "d1").Info("device added")

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"device_id":"d1"`)
	assert.Contains(t, string(b), "device added")
}

func TestInit_ReplacesLogger(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	Init(Options{Level: "warn"})
	assert.NotSame(t, prev, Logger)
	assert.Equal(t, logrus.WarnLevel, Logger.GetLevel())
}
