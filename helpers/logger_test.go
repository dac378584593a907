package helpers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "test_error.log")

	logger := NewLogger(tmpFile)

	logger.LogError("Samsung A54", errors.New("test error"))

	data, err := os.ReadFile(tmpFile)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "[Samsung A54]")
	assert.Contains(t, string(data), "test error")

	// Info messages go to stdout, not the file
	logger.LogInfo("Test info message: %s", "hello")
	after, err := os.ReadFile(tmpFile)
	assert.NoError(t, err)
	assert.Equal(t, data, after)
}

func TestLoggerWithoutFile(t *testing.T) {
	logger := NewLogger("")
	assert.NotPanics(t, func() {
		logger.LogError("worker", errors.New("no file configured"))
	})
}
