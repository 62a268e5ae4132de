package testutil

import (
	"bytes"
	"io"
	"log"
	"os"
	"sync"
	"testing"
)

const testPrefix = "[test] "

func TestLogger(t *testing.T) *log.Logger {
	logger := log.New(os.Stdout, testPrefix, log.LstdFlags)
	t.Cleanup(func() {
		logger.SetOutput(io.Discard)
	})
	return logger
}

// LogBuffer collects log output written from any goroutine.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// CaptureLogger returns a logger whose output is kept for assertions.
func CaptureLogger(t *testing.T) (*log.Logger, *LogBuffer) {
	t.Helper()
	buf := &LogBuffer{}
	return log.New(buf, testPrefix, 0), buf
}
