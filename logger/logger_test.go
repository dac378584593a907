package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComponentLogger(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")

	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer Init()

	ForSheet().Info().Int("row", 3).Msg("progress saved")
	ForSearch().Debug().Msg("hidden at info level")

	out := buf.String()
	assert.Contains(t, out, "progress saved")
	assert.Contains(t, out, "component=sheet")
	assert.Contains(t, out, "row=3")
	assert.NotContains(t, out, "hidden at info level")
}

func TestLogError(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer Init()

	LogError("sheet", errors.New("disk full"), "failed to save %s", "out.xlsx")

	out := buf.String()
	assert.Contains(t, out, "failed to save out.xlsx")
	assert.Contains(t, out, "disk full")
	assert.Contains(t, out, "component=sheet")
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("PRICECHECK_ENVIRONMENT", "production")
	assert.Equal(t, "info", getLogLevel().String())

	t.Setenv("PRICECHECK_ENVIRONMENT", "development")
	assert.Equal(t, "debug", getLogLevel().String())

	t.Setenv("LOG_LEVEL", "not-a-level")
	assert.Equal(t, "info", getLogLevel().String())
}
