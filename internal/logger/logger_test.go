//go:build !integration

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		pretty   bool
		expected zerolog.Level
	}{
		{name: "debug level", level: "debug", expected: zerolog.DebugLevel},
		{name: "info level", level: "info", expected: zerolog.InfoLevel},
		{name: "warn level", level: "warn", expected: zerolog.WarnLevel},
		{name: "error level", level: "error", expected: zerolog.ErrorLevel},
		{name: "invalid level defaults to info", level: "invalid", expected: zerolog.InfoLevel},
		{name: "empty level defaults to info", level: "", expected: zerolog.InfoLevel},
		{name: "pretty output", level: "info", pretty: true, expected: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Init(tt.level, tt.pretty)
			assert.Equal(t, tt.expected, zerolog.GlobalLevel())
		})
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("info", false, &buf)
	defer Init("info", false)

	l := WithContext(map[string]interface{}{
		"key1": "value1",
		"key2": 123,
	})
	l.Info().Msg("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "value1", entry["key1"])
	assert.EqualValues(t, 123, entry["key2"])
	assert.Equal(t, "hello", entry["message"])
}

func TestForGeneration(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("debug", false, &buf)
	defer Init("info", false)

	l := ForGeneration("v2", "app-v2")
	l.Debug().Msg("installed")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "v2", entry["version"])
	assert.Equal(t, "app-v2", entry["store"])
	assert.Equal(t, "debug", entry["level"])
}
