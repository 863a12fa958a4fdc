package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
		err   bool
	}{
		{"debug", Debug, false},
		{"INFO", Info, false},
		{"", Info, false},
		{"Warning", Warn, false},
		{"error", Error, false},
		{"fatal", Fatal, false},
		{"verbose", Info, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		if (err != nil) != tt.err {
			t.Errorf("ParseLevel(%q) error = %v, want error %v", tt.input, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoggerFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("flatfs", WithWriter(&buf), WithLevel(Warn))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Debug("hidden %d", 1)
	l.Info("hidden %d", 2)
	l.Warn("shown %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains filtered messages: %q", out)
	}
	if !strings.Contains(out, "WARN  [flatfs] shown 3") {
		t.Errorf("output missing warning: %q", out)
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("flatfs", WithWriter(&buf), WithJSON(), WithLevel(Debug))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Named("mount").Info("Mknod: '%s'", "_a")

	var e entry
	if err := json.Unmarshal(buf.Bytes(), &e); err != nil {
		t.Fatalf("Unmarshal failed: %v (%q)", err, buf.String())
	}
	if e.Level != "INFO" || e.Service != "flatfs/mount" || e.Message != "Mknod: '_a'" {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestLoggerFatalExits(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("", WithWriter(&buf))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	code := -1
	l.exit = func(c int) { code = c }
	l.Fatal("boom")

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestLoggerFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "flatfs.log")

	var buf bytes.Buffer
	l, err := New("flatfs", WithWriter(&buf), WithFile(file, nil))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Info("written to file")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(content), "written to file") {
		t.Errorf("file content = %q", content)
	}
	if !strings.Contains(buf.String(), "written to file") {
		t.Errorf("writer content = %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing")
	l.Named("child").Warn("nothing")
}
