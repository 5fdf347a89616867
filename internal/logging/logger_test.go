package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-bi-etl/internal/config"
)

func TestNewWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := Component(NewWithWriter(config.LogConfig{Level: "debug"}, &buf), "collector")

	l.Info().Str("slug", "aave").Msg("processed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "collector", line["component"])
	assert.Equal(t, "defi-bi-etl", line["service"])
	assert.Equal(t, "aave", line["slug"])
	assert.Equal(t, "processed", line["message"])
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.LogConfig{Level: "warn"}, &buf)

	l.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	l.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWithWriter_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.LogConfig{Level: "loud"}, &buf)

	l.Debug().Msg("hidden")
	l.Info().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
