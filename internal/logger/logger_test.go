package logger

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	SetVerbose(false)
	_ = Configure(Options{Level: "warn", Format: "console", Writer: os.Stderr})
}

func TestSetVerbose(t *testing.T) {
	defer reset()

	SetVerbose(false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestDebug_WhenVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Debug("test message %s", "arg")

	assert.Equal(t, "[DEBUG] test message arg", strings.TrimSpace(buf.String()))
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(false)

	Debug("test message")

	assert.Zero(t, buf.Len(), "expected no output when verbose is disabled")
}

func TestInfo_RespectsLevel(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "warn", Writer: &buf}))

	Info("hidden")
	assert.Zero(t, buf.Len())

	require.NoError(t, Configure(Options{Level: "info", Writer: &buf}))
	Info("info message %d", 42)
	assert.Equal(t, "[INFO] info message 42", strings.TrimSpace(buf.String()))
}

func TestWarn(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Warn("warning message")

	assert.Equal(t, "[WARN] warning message", strings.TrimSpace(buf.String()))
}

func TestError(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)

	Error("failed: %v", "boom")

	assert.Contains(t, buf.String(), "[ERROR] failed: boom")
}

func TestSection(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(true)

	Section("Test Section")

	assert.Equal(t, "\n=== Test Section ===\n", buf.String())
}

func TestConfigure_JSON(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	require.NoError(t, Configure(Options{Level: "info", Format: "json", Writer: &buf}))

	Logger().Info().Str("path", "a.md").Msg("loaded")

	out := buf.String()
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, `"path":"a.md"`)
	assert.Contains(t, out, `"message":"loaded"`)
}

func TestConfigure_InvalidLevel(t *testing.T) {
	defer reset()

	var buf bytes.Buffer
	err := Configure(Options{Level: "chatty", Writer: &buf})
	require.Error(t, err)

	Warn("still works")
	assert.Contains(t, buf.String(), "still works")
}

func TestConcurrentAccess(t *testing.T) {
	defer reset()

	var buf syncBuffer
	SetOutput(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SetVerbose(true)
			Debug("concurrent %d", i)
			IsVerbose()
			SetVerbose(false)
		}()
	}
	wg.Wait()
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}
