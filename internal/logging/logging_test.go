package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	lg := New(&buf, zerolog.InfoLevel, "json")

	lg.Info().Str(FieldProvider, "dr-house").Int(FieldSessions, 3).Msg("prepared")
	lg.Debug().Msg("hidden")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "prepared", entry["message"])
	assert.Equal(t, "dr-house", entry[FieldProvider])
	assert.Equal(t, float64(3), entry[FieldSessions])
	assert.Contains(t, entry, "time")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	lg := New(&buf, zerolog.DebugLevel, "console")

	lg.Debug().Str(FieldProvider, "p1").Msg("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "p1")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	lg := New(&buf, zerolog.InfoLevel, "json")

	ctx := lg.WithContext(context.Background())
	zerolog.Ctx(ctx).Info().Msg("from context")
	assert.Contains(t, buf.String(), "from context")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}
