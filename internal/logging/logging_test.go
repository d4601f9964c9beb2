package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("", false)
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)

	level, err = ParseLevel("INFO", false)
	require.NoError(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)

	level, err = ParseLevel("error", true)
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, level)

	_, err = ParseLevel("loud", false)
	assert.Error(t, err)
}

func TestSetupJSONWritesToWriter(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	buf := &bytes.Buffer{}
	closer, err := Setup(Options{Level: "info", JSON: true}, buf)
	require.NoError(t, err)
	defer closer.Close()

	log.Info().Str("stage", "1").Msg("hello")
	log.Debug().Msg("hidden")

	assert.Contains(t, buf.String(), `"message":"hello"`)
	assert.Contains(t, buf.String(), `"stage":"1"`)
	assert.NotContains(t, buf.String(), "hidden")
}

func TestSetupLogFile(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	})

	path := filepath.Join(t.TempDir(), "dockgrade.log")
	closer, err := Setup(Options{Verbose: true, File: path, Color: true}, &bytes.Buffer{})
	require.NoError(t, err)

	log.Debug().Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.NotContains(t, string(data), "\x1b[")
}

func TestLeveledAdapter(t *testing.T) {
	buf := &bytes.Buffer{}
	l := Leveled{Logger: zerolog.New(buf)}

	l.Warn("retrying", "url", "http://localhost:8080", "attempt", 1, "dangling")

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"url":"http://localhost:8080"`)
	assert.Contains(t, out, `"attempt":1`)
	assert.Contains(t, out, `"message":"retrying"`)
}
