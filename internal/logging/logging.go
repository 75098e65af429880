package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Categories used across the service.
const (
	App      = "app"
	Compress = "compress"
	Cache    = "cache"
	Cleanup  = "cleanup"
	Requests = "requests"
)

type sink struct {
	logger *log.Logger
	writer io.Writer
	file   *os.File
}

var (
	mu     sync.Mutex
	logDir string
	sinks  map[string]*sink
	stdout io.Writer = os.Stdout
)

// Init points every category logger at dir and routes the standard logger to the app log.
// An empty dir keeps logging on stdout only.
func Init(dir string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	logDir = dir
	sinks = make(map[string]*sink)

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			logDir = ""
			log.SetOutput(stampWriter{w: stdout})
			log.SetFlags(0)
			return fmt.Errorf("create log dir: %w", err)
		}
	}

	app, err := openLocked(App)
	if err != nil {
		log.SetOutput(stampWriter{w: stdout})
		log.SetFlags(0)
		return err
	}
	sinks[App] = app
	log.SetOutput(app.writer)
	log.SetFlags(0)
	return nil
}

// Get returns the logger for a category, opening its file on first use.
func Get(name string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if sinks == nil {
		return log.New(stampWriter{w: stdout}, fmt.Sprintf("[%s] ", name), 0)
	}
	if s := sinks[name]; s != nil {
		return s.logger
	}

	s, err := openLocked(name)
	if err != nil {
		return log.New(stampWriter{w: stdout}, fmt.Sprintf("[%s] ", name), 0)
	}
	sinks[name] = s
	return s.logger
}

// Close releases all open log files. Loggers fall back to stdout afterwards.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
	sinks = nil
	log.SetOutput(stampWriter{w: stdout})
}

func closeLocked() {
	for _, s := range sinks {
		if s.file != nil {
			s.file.Close()
		}
	}
}

func openLocked(name string) (*sink, error) {
	if logDir == "" {
		w := stampWriter{w: stdout}
		return &sink{logger: log.New(w, fmt.Sprintf("[%s] ", name), 0), writer: w}, nil
	}

	filename := time.Now().Format("06.01") + "_" + name + ".log" // yy.mm
	path := filepath.Join(logDir, filename)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	w := stampWriter{w: io.MultiWriter(stdout, file)}
	return &sink{logger: log.New(w, "", 0), writer: w, file: file}, nil
}

// stampWriter prefixes every line with a local timestamp.
type stampWriter struct {
	w io.Writer
}

func (s stampWriter) Write(p []byte) (int, error) {
	ts := time.Now().Format("2006-01-02 15:04:05")
	var b strings.Builder
	lines := strings.Split(string(p), "\n")
	for i, line := range lines {
		if line == "" && i == len(lines)-1 {
			continue
		}
		b.WriteString(ts)
		b.WriteString(", ")
		b.WriteString(line)
		if i < len(lines)-1 {
			b.WriteByte('\n')
		}
	}
	if _, err := io.WriteString(s.w, b.String()); err != nil {
		return 0, err
	}
	return len(p), nil
}
