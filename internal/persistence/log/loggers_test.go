package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"automancy.dev/internal/coord"
	"automancy.dev/internal/game"
)

// readJSONL decompresses a rotated log file and decodes each line into out.
func readJSONL(t *testing.T, dir string, decode func([]byte)) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want one log file, got %d", len(entries))
	}
	f, err := os.Open(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		decode(sc.Bytes())
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
}

func TestFrameLoggerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewFrameLogger(dir)

	frames := []game.Frame{
		{Tick: 1, Tiles: []game.RenderOutput{{Coord: coord.New(0, 0)}}},
		{Tick: 2},
	}
	for _, f := range frames {
		if err := l.WriteFrame(f); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var got []game.Frame
	readJSONL(t, filepath.Join(dir, "frames"), func(line []byte) {
		var f game.Frame
		if err := json.Unmarshal(line, &f); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		got = append(got, f)
	})
	if len(got) != 2 || got[0].Tick != 1 || got[1].Tick != 2 {
		t.Fatalf("frames: %+v", got)
	}
	if len(got[0].Tiles) != 1 || got[0].Tiles[0].Coord != coord.New(0, 0) {
		t.Fatalf("frame tiles: %+v", got[0].Tiles)
	}
}

func TestErrorLoggerRecordsTimestamp(t *testing.T) {
	dir := t.TempDir()
	l := NewErrorLogger(dir)

	if err := l.WriteError(game.ErrorEntry{Code: game.ErrScript, Message: "boom"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	count := 0
	readJSONL(t, filepath.Join(dir, "errors"), func(line []byte) {
		count++
		var rec errorRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		if rec.Code != game.ErrScript || rec.Message != "boom" {
			t.Fatalf("entry: %+v", rec)
		}
		if rec.At.IsZero() {
			t.Fatalf("timestamp missing")
		}
	})
	if count != 1 {
		t.Fatalf("want one entry, got %d", count)
	}
}

func TestCloseWithoutWrites(t *testing.T) {
	l := NewFrameLogger(t.TempDir())
	if err := l.Close(); err != nil {
		t.Fatalf("close of unused logger: %v", err)
	}
}
