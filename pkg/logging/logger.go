package logging

import (
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
)

// NewLogger creates an hclog logger with the settings shared by every
// carton tool: UTC timestamps, optional JSON output via CARTON_JSON_LOG,
// optional log file via CARTON_LOG_PATH.
func NewLogger(name string, level string, output io.Writer) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	if path := os.Getenv("CARTON_LOG_PATH"); path != "" {
		if file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
			output = file
		}
	}

	opts := &hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(level),
		JSONFormat: os.Getenv("CARTON_JSON_LOG") == "1",
		Output:     output,
		TimeFormat: "2006-01-02T15:04:05Z",
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	}

	return hclog.New(opts)
}

// GetLogLevel resolves the log level: explicit flag value first, then the
// CARTON_LOG_LEVEL environment variable, then "warn".
func GetLogLevel(flagLevel string) string {
	if flagLevel != "" {
		return flagLevel
	}
	if level := os.Getenv("CARTON_LOG_LEVEL"); level != "" {
		return level
	}
	return "warn"
}
