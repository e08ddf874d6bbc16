package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureEntry(t *testing.T, fn func()) map[string]string {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	fn()

	var entry map[string]string
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestShortToken(t *testing.T) {
	assert.Equal(t, "abcdefgh...", ShortToken("abcdefghijklmnopqrstuvwxyz012345"))
	assert.Equal(t, "***", ShortToken("short"))
}

func TestLog_RedactsEmailAndToken(t *testing.T) {
	entry := captureEntry(t, func() {
		Info("transfer saved", "email", "anna@example.org", "token", "Zx9_abcdEFGH1234ijkl", "note", "from anna@example.org")
	})

	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "transfer saved", entry["msg"])
	assert.Equal(t, "an***@example.org", entry["email"])
	assert.Equal(t, "Zx9_abcd...", entry["token"])
	assert.Equal(t, "from an***@example.org", entry["note"])
}

func TestLog_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetLevel(WARN)
	defer SetLevel(INFO)

	Info("dropped")
	assert.Empty(t, buf.String())

	Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}
