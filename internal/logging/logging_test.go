package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formazing-backend/config"
)

func TestNew_LevelAndFormat(t *testing.T) {
	logger := New(&config.LogConfig{Level: "debug", Format: "json"})
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = New(&config.LogConfig{Level: "nonsense", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestNew_JSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&config.LogConfig{Level: "info", Format: "json"})
	logger.SetOutput(&buf)

	logger.WithField("training_id", "p1").Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "p1", entry["training_id"])
	assert.Contains(t, entry, "timestamp")
}

func TestWriter_File(t *testing.T) {
	var stdout bytes.Buffer
	path := filepath.Join(t.TempDir(), "app.log")

	w := Writer(&config.LogConfig{File: path, MaxSizeMB: 1}, &stdout)
	_, err := w.Write([]byte("line\n"))
	require.NoError(t, err)

	assert.Equal(t, "line\n", stdout.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line\n", string(data))

	assert.Same(t, &stdout, Writer(&config.LogConfig{}, &stdout))
}
