package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLevel(t *testing.T) {
	l := WithLevel(New("test"), "warn")
	assert.Equal(t, zerolog.WarnLevel, l.GetLevel())

	l = WithLevel(New("test"), "bogus")
	assert.Equal(t, zerolog.TraceLevel, l.GetLevel(), "unknown level should leave logger unchanged")
}

func TestStackAndServiceOnError(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "crisis-test")
	l.Error().Stack().Err(errors.New("kv down")).Msg("persist failed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "crisis-test", line["service"])
	assert.Equal(t, "kv down", line["error"])
	assert.Contains(t, line, "stack")
}

func TestConfigureAppliesLevel(t *testing.T) {
	l := Configure("crisis-test", FormatConsole, "error")
	assert.Equal(t, zerolog.ErrorLevel, l.GetLevel())
}
