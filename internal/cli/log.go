package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Log output formats accepted by --log-format.
const (
	logFormatText   = "text"
	logFormatJSON   = "json"
	logFormatLogfmt = "logfmt"
)

// newLogger creates the text logger with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// SetLogFormat switches the logger between human-readable text and the
// machine formats used when serving behind a log collector.
func (c *CLI) SetLogFormat(format string) error {
	switch strings.ToLower(format) {
	case "", logFormatText:
		c.Logger.SetFormatter(log.TextFormatter)
		c.Logger.SetTimeFormat("15:04:05.00")
	case logFormatJSON:
		c.Logger.SetFormatter(log.JSONFormatter)
		c.Logger.SetTimeFormat(time.RFC3339)
	case logFormatLogfmt:
		c.Logger.SetFormatter(log.LogfmtFormatter)
		c.Logger.SetTimeFormat(time.RFC3339)
	default:
		return fmt.Errorf("unknown log format %q (want %s, %s or %s)", format, logFormatText, logFormatJSON, logFormatLogfmt)
	}
	return nil
}

// progress logs the completion of an operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}

// done logs e.g. "Rendered 3 artifact(s) (12ms)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, p.elapsed())
}
