package logging

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/stretchr/testify/assert"
)

func testLogger() (*bolt.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(Config{Level: "trace", Format: "json", Output: buf}), buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected bolt.Level
	}{
		{"trace", bolt.TRACE},
		{"debug", bolt.DEBUG},
		{"info", bolt.INFO},
		{"warn", bolt.WARN},
		{"error", bolt.ERROR},
		{"unknown", bolt.INFO},
		{"", bolt.INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "warn", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.NotNil(t, cfg.Output)
}

func TestFields(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		want  string
	}{
		{"component", Component("cache"), `"component":"cache"`},
		{"operation", Operation("load"), `"operation":"load"`},
		{"path", Path("/tmp/x"), `"path":"/tmp/x"`},
		{"key", Key("/src/foo.h"), `"key":"/src/foo.h"`},
		{"library", Library("glib-2.0"), `"library":"glib-2.0"`},
		{"command", Command("dlltool.exe", []string{"--identify", "libfoo.dll.a"}), `"command":"dlltool.exe --identify libfoo.dll.a"`},
		{"cached", Cached(true), `"cached":true`},
		{"count", Count(3), `"count":3`},
		{"duration", Duration(1500 * time.Millisecond), `"duration_ms":1500`},
		{"str", Str("family", "msvc"), `"family":"msvc"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := testLogger()
			tt.field(logger.Info()).Msg("test")
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestErrorField(t *testing.T) {
	logger, buf := testLogger()
	ErrorField(errors.New("boom"))(logger.Error()).Msg("failed")
	assert.Contains(t, buf.String(), "boom")

	logger, buf = testLogger()
	ErrorField(nil)(logger.Info()).Msg("fine")
	assert.Contains(t, buf.String(), "fine")
}

func TestNewRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: "error", Format: "json", Output: buf})

	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logger.Error().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitReplacesDefaultLogger(t *testing.T) {
	t.Cleanup(func() { Init(DefaultConfig()) })

	first := &bytes.Buffer{}
	Init(Config{Level: "info", Format: "json", Output: first})
	Info().Add(Str("run", "first")).Msg("hello")

	second := &bytes.Buffer{}
	Init(Config{Level: "debug", Format: "json", Output: second})
	Debug().Add(Str("run", "second")).Msg("hello")

	assert.Contains(t, first.String(), `"run":"first"`)
	assert.NotContains(t, first.String(), `"run":"second"`)
	assert.Contains(t, second.String(), `"run":"second"`)
}
