package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cabewaldrop/bplusviz/internal/config"
	"github.com/stretchr/testify/require"
)

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(config.Log{Level: "info", Format: "auto"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	log.Debug().Msg("hidden")
	log.Info().Str("op", "insert").Int("key", 10).Msg("tree operation")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "debug is below the level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	require.Equal(t, "info", entry["level"])
	require.Equal(t, "insert", entry["op"])
	require.Equal(t, float64(10), entry["key"])
	require.Contains(t, entry, "time")
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log, _, err := New(config.Log{Level: "debug", Format: "console"}, &buf)
	require.NoError(t, err)

	log.Debug().Str("node", "n3").Msg("split")
	out := buf.String()
	require.Contains(t, out, "split")
	require.Contains(t, out, "n3")
	require.False(t, json.Valid([]byte(strings.TrimSpace(out))))
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bplusviz.log")
	var buf bytes.Buffer
	log, closer, err := New(config.Log{Level: "warn", Format: "json", File: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	log.Warn().Msg("written twice")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "written twice")
	require.Contains(t, buf.String(), "written twice")
}

func TestBadLevel(t *testing.T) {
	_, _, err := New(config.Log{Level: "loud"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestIsTerminal(t *testing.T) {
	require.False(t, IsTerminal(&bytes.Buffer{}))
}
