package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edigen.log")

	logger := New(Settings{Level: "debug", Format: "json", File: path}, "edigen")
	logger.WithField("group", "G1").Debug("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "edigen", entry["application"])
	assert.Equal(t, RunID, entry["run_id"])
	assert.Equal(t, "G1", entry["group"])
}

func TestLoggerLevelAndFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	logger := Logger(base, Settings{Level: "warn"}, "edigen")

	logger.Info("dropped")
	logger.Warn("kept")

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "edigen", entry.Data["application"])
	assert.NotEmpty(t, entry.Data["run_id"])
}

func TestLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	base, hook := test.NewNullLogger()
	Logger(base, Settings{Level: "verbose"}, "edigen")

	assert.Equal(t, logrus.InfoLevel, base.GetLevel())
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "verbose")
}
