package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	if logger == nil {
		t.Fatal("newLogger() returned nil")
	}

	logger.Info("test message")

	if buf.Len() == 0 {
		t.Error("logger should have written output")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{
			name:    "info at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Info("test") },
			wantLog: true,
		},
		{
			name:    "debug at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Debug("test") },
			wantLog: false,
		},
		{
			name:    "debug at debug level",
			level:   log.DebugLevel,
			logFunc: func(l *log.Logger) { l.Debug("test") },
			wantLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			tt.logFunc(logger)

			gotLog := buf.Len() > 0
			if gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)

	c.Logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatal("debug output at info level")
	}

	c.SetLogLevel(LogDebug)
	c.Logger.Debug("shown")
	if !bytes.Contains(buf.Bytes(), []byte("shown")) {
		t.Error("debug output missing after SetLogLevel(LogDebug)")
	}
}

func TestSetLogFormat(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf, LogInfo)

	if err := c.SetLogFormat("json"); err != nil {
		t.Fatalf("SetLogFormat(json): %v", err)
	}
	c.Logger.Info("loaded", "entities", 3)
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("json log line: %v (%q)", err, buf.String())
	}
	if line["msg"] != "loaded" || line["entities"] != float64(3) {
		t.Errorf("json log line = %v", line)
	}

	buf.Reset()
	if err := c.SetLogFormat("logfmt"); err != nil {
		t.Fatalf("SetLogFormat(logfmt): %v", err)
	}
	c.Logger.Info("loaded", "entities", 3)
	if !strings.Contains(buf.String(), "entities=3") {
		t.Errorf("logfmt line = %q", buf.String())
	}

	if err := c.SetLogFormat("xml"); err == nil {
		t.Error("SetLogFormat(xml) should fail")
	}
}

func TestLogFormatFlag(t *testing.T) {
	err := execute(t, New(&bytes.Buffer{}, LogInfo), "--log-format", "yaml", "views")
	if err == nil || !strings.Contains(err.Error(), "unknown log format") {
		t.Errorf("err = %v, want unknown log format", err)
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	prog := newProgress(logger)
	if prog == nil {
		t.Fatal("newProgress() returned nil")
	}

	time.Sleep(10 * time.Millisecond)

	if prog.elapsed() < 10*time.Millisecond {
		t.Errorf("elapsed() = %v, want >= 10ms", prog.elapsed())
	}

	prog.done("test completed")

	if !bytes.Contains(buf.Bytes(), []byte("test completed")) {
		t.Error("progress.done() output should contain message")
	}
}
