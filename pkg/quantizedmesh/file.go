package quantizedmesh

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// Marshal encodes t, gzipped when compress is set.
func Marshal(t *Tile, compress bool) ([]byte, error) {
	raw := new(bytes.Buffer)
	if err := t.Encode(raw); err != nil {
		return nil, err
	}
	if !compress {
		return raw.Bytes(), nil
	}

	out := new(bytes.Buffer)
	zw := gzip.NewWriter(out)
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Unmarshal decodes a tile, gunzipping it first when it starts with the gzip
// magic.
func Unmarshal(data []byte) (*Tile, error) {
	if len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening gzip stream: %w", err)
		}
		defer zr.Close()
		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("reading gzip stream: %w", err)
		}
	}
	return Parse(data)
}

// WriteFile writes t to path, creating parent directories. It returns the
// number of bytes written.
func WriteFile(path string, t *Tile, compress bool) (int, error) {
	data, err := Marshal(t, compress)
	if err != nil {
		return 0, fmt.Errorf("encoding tile: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating tile directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("writing tile file: %w", err)
	}
	return len(data), nil
}

// ReadFile reads a plain or gzipped tile from path.
func ReadFile(path string) (*Tile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tile file: %w", err)
	}
	return Unmarshal(data)
}
