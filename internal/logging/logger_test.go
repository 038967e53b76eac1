package logging

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestConsoleHandlerShape(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "console", Writers: []io.Writer{&buf}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	NewComponentLogger(logger, "runner").Info("directory processed",
		Args(String(FieldDirectory, "/music/in/album"), Int("jobs", 12))...)

	line := buf.String()
	if !strings.Contains(line, " INFO runner: directory processed") {
		t.Errorf("missing level/component/message: %q", line)
	}
	if !strings.Contains(line, "directory=/music/in/album") || !strings.Contains(line, "jobs=12") {
		t.Errorf("missing attrs: %q", line)
	}
}

func TestConsoleHandlerQuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "console", Writers: []io.Writer{&buf}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("skip", Args(String("reason", "two cue sheets disagree"))...)
	if !strings.Contains(buf.String(), `reason="two cue sheets disagree"`) {
		t.Errorf("value not quoted: %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Writers: []io.Writer{&buf}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("quiet")
	logger.Warn("loud")
	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Errorf("info leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "loud") {
		t.Errorf("warn suppressed: %q", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: "json", Writers: []io.Writer{&buf}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", Args(String("k", "v"))...)
	out := buf.String()
	for _, want := range []string{`"msg":"hello"`, `"k":"v"`, `"ts":`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %q", want, out)
		}
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	logger := NewNop()
	logger.Error("this must go nowhere", Args(Error(io.ErrUnexpectedEOF))...)
}
