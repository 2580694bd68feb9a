package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-outreach-automation/internal/config"
)

func TestNewWithWriter(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LoggingConfig
		checkFunc func(t *testing.T, l *slog.Logger, out *bytes.Buffer)
	}{
		{
			name: "json format with debug level",
			cfg:  config.LoggingConfig{Level: "debug", Format: "json"},
			checkFunc: func(t *testing.T, l *slog.Logger, out *bytes.Buffer) {
				l.Debug("probe", slog.String("posting", "482"))

				var entry map[string]any
				require.NoError(t, json.Unmarshal(out.Bytes(), &entry))
				assert.Equal(t, "DEBUG", entry["level"])
				assert.Equal(t, "probe", entry["msg"])
				assert.Equal(t, "482", entry["posting"])
			},
		},
		{
			name: "json format drops below level",
			cfg:  config.LoggingConfig{Level: "warn", Format: "json"},
			checkFunc: func(t *testing.T, l *slog.Logger, out *bytes.Buffer) {
				l.Info("ignored")
				l.Warn("kept")

				lines := strings.Split(strings.TrimSpace(out.String()), "\n")
				require.Len(t, lines, 1)
				assert.Contains(t, lines[0], "kept")
			},
		},
		{
			name: "console format",
			cfg:  config.LoggingConfig{Level: "info", Format: "console"},
			checkFunc: func(t *testing.T, l *slog.Logger, out *bytes.Buffer) {
				l.Info("cycle finished", "sent", 2)

				// tint prints INF, not INFO
				assert.Contains(t, out.String(), "INF")
				assert.Contains(t, out.String(), "cycle finished")
				assert.Contains(t, out.String(), "sent=2")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			l, err := NewWithWriter(tt.cfg, &out)
			require.NoError(t, err)
			tt.checkFunc(t, l, &out)
		})
	}
}

func TestNewWithWriter_Invalid(t *testing.T) {
	_, err := NewWithWriter(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)

	_, err = NewWithWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}
