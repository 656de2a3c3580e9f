package network

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// CompressionThreshold is the minimum payload size (bytes) worth
// compressing at all (spec §4.7: "above a size threshold").
const CompressionThreshold = 1024

// Compressor deflates payloads above a size threshold at a configurable
// level, falling back to the original bytes whenever compression would
// not shrink them (spec §4.7). Grounded on klauspost/compress/flate,
// already an indirect dependency of the teacher's nats.go/sqlite stack.
type Compressor struct {
	Threshold int
	Level     int
}

func NewCompressor(level int) *Compressor {
	if level < flate.BestSpeed || level > flate.BestCompression {
		level = flate.DefaultCompression
	}
	return &Compressor{Threshold: CompressionThreshold, Level: level}
}

// Compress returns the deflated form of data and true, or the original
// data and false when data is below the threshold or compression did not
// shrink it.
func (c *Compressor) Compress(data []byte) ([]byte, bool, error) {
	if len(data) < c.Threshold {
		return data, false, nil
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, c.Level)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create flate writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, false, fmt.Errorf("failed to compress payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, false, fmt.Errorf("failed to flush compressed payload: %w", err)
	}

	if buf.Len() >= len(data) {
		return data, false, nil
	}
	return buf.Bytes(), true, nil
}

// Decompress inflates data previously produced by Compress.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress payload: %w", err)
	}
	return out, nil
}
