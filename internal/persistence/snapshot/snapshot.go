// Package snapshot defines the neutral persisted map record and its
// on-disk codec: a plain JSON header line (so tools can identify a file
// without decoding it) followed by the zstd-compressed JSON body.
package snapshot

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"automancy.dev/internal/coord"
	"automancy.dev/internal/data"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
	Tick    uint64 `json:"tick"`
}

// TileV1 is one persisted tile. All ids are raw strings; handles are
// re-interned on load and are not stable across loads.
type TileV1 struct {
	Coord coord.TileCoord `json:"coord"`
	IdRaw string          `json:"id"`
	Data  data.RawDataMap `json:"data,omitempty"`
}

type MapV1 struct {
	Header Header `json:"header"`

	Tiles      []TileV1        `json:"tiles"`
	GlobalData data.RawDataMap `json:"global_data,omitempty"`
	Tick       uint64          `json:"tick"`
}

func Write(path string, snap MapV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, 64*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(bw, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	if err := json.NewEncoder(enc).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("encode map: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return bw.Flush()
}

func Read(path string) (MapV1, error) {
	var snap MapV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 64*1024)

	// Header line; the body repeats it, so only the version check uses it.
	line, err := br.ReadBytes('\n')
	if err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	var h Header
	if err := json.Unmarshal(line, &h); err != nil {
		return snap, fmt.Errorf("decode header: %w", err)
	}
	if h.Version != Version {
		return snap, fmt.Errorf("unsupported map version %d", h.Version)
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	if err := json.NewDecoder(dec).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode map: %w", err)
	}
	return snap, nil
}
