package logs

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	defer SetLevel("info")

	SetPrefix("0xabc")
	assert.True(t, SetLevel("warn"))
	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "0xabc shown 2")
	assert.Contains(t, out, "log_test.go")
}

func TestSetLevelUnknown(t *testing.T) {
	assert.False(t, SetLevel("loud"))
}
