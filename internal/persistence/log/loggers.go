package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"automancy.dev/internal/game"
)

// JSONLZstdWriter appends one JSON document per line to hourly rotated
// zstd-compressed files.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// FrameLogger records one JSONL entry per published frame (compressed).
type FrameLogger struct{ w *JSONLZstdWriter }

func NewFrameLogger(dataDir string) *FrameLogger {
	return &FrameLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "frames"), "frames")}
}

func (l *FrameLogger) WriteFrame(f game.Frame) error { return l.w.Write(f) }
func (l *FrameLogger) Close() error                  { return l.w.Close() }

// ErrorLogger mirrors every pushed error stack entry to disk so a
// session's errors survive the stack being popped.
type ErrorLogger struct{ w *JSONLZstdWriter }

type errorRecord struct {
	At time.Time `json:"at"`
	game.ErrorEntry
}

func NewErrorLogger(dataDir string) *ErrorLogger {
	return &ErrorLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "errors"), "errors")}
}

func (l *ErrorLogger) WriteError(e game.ErrorEntry) error {
	return l.w.Write(errorRecord{At: time.Now().UTC(), ErrorEntry: e})
}

func (l *ErrorLogger) Close() error { return l.w.Close() }
