package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestGet_BeforeInit(t *testing.T) {
	buf := captureStdout(t)
	Close()

	Get("compress").Print("hello")

	out := buf.String()
	if !strings.Contains(out, "[compress] hello") {
		t.Errorf("output = %q, want category prefix and message", out)
	}
}

func TestInit_WritesCategoryFile(t *testing.T) {
	captureStdout(t)
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(Close)

	Get(Cache).Printf("cache hit key=%s", "abc")

	path := filepath.Join(dir, time.Now().Format("06.01")+"_"+Cache+".log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "cache hit key=abc") {
		t.Errorf("log file = %q, want message", data)
	}
}

func TestGet_SameLoggerPerCategory(t *testing.T) {
	captureStdout(t)
	if err := Init(t.TempDir()); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(Close)

	if Get("x") != Get("x") {
		t.Error("Get() should reuse the logger for a category")
	}
}

func TestStampWriter_MultiLine(t *testing.T) {
	var buf bytes.Buffer
	w := stampWriter{w: &buf}

	in := []byte("one\ntwo\n")
	n, err := w.Write(in)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != len(in) {
		t.Errorf("Write() n = %d, want %d", n, len(in))
	}

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2 (%q)", len(lines), buf.String())
	}
	for _, l := range lines {
		if !strings.Contains(l, ", ") {
			t.Errorf("line %q missing timestamp prefix", l)
		}
	}
}
