package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	log.Info("exchange completed", "request_id", "req-1")

	assert.Contains(t, buf.String(), `"msg":"exchange completed"`)
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
}

func TestNew_FormatFollowsEnvironment(t *testing.T) {
	tests := []struct {
		environment string
		wantJSON    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			var buf bytes.Buffer
			log := New(Config{Level: slog.LevelInfo, Environment: tt.environment, Writer: &buf})
			log.Info("hello")

			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"hello"`)
			} else {
				assert.Contains(t, buf.String(), "INF")
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("whatever"))
}

func TestPrettyHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelWarn, Format: "pretty", Writer: &buf})

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestPrettyHandler_GroupsAndQuoting(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "pretty", Writer: &buf})

	log.WithGroup("nav").Info("recount", "pending", 3, "page", "my requests")

	out := buf.String()
	assert.Contains(t, out, "nav.pending=3")
	assert.Contains(t, out, `nav.page="my requests"`)
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	log.Component("exchange").Info("tagged", "request_id", "req-1")
	assert.Contains(t, buf.String(), `"component":"exchange"`)
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)

	buf.Reset()
	pretty := New(Config{Level: slog.LevelInfo, Format: "pretty", Writer: &buf})
	pretty.Component("nav-stream").Info("connected", "user_id", "usr-1")

	out := buf.String()
	assert.Contains(t, out, "[nav-stream] ")
	assert.NotContains(t, out, "component=")
	assert.Contains(t, out, "user_id=usr-1")
	assert.Less(t, strings.Index(out, "[nav-stream]"), strings.Index(out, "connected"))
}

func TestDiscard(t *testing.T) {
	log := Discard()
	require.NotNil(t, log)
	log.Error("nothing happens")
}
