package network

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressorSkipsSmallPayloads(t *testing.T) {
	c := NewCompressor(6)
	data := []byte("short")

	out, compressed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if compressed {
		t.Error("Compress() compressed = true, want false for a payload under the threshold")
	}
	if !bytes.Equal(out, data) {
		t.Error("Compress() should return the original bytes unchanged when skipped")
	}
}

func TestCompressorRoundTripsLargeCompressiblePayload(t *testing.T) {
	c := NewCompressor(6)
	data := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog ", 200))

	out, compressed, err := c.Compress(data)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	if !compressed {
		t.Fatal("Compress() compressed = false, want true for a large repetitive payload")
	}
	if len(out) >= len(data) {
		t.Errorf("compressed size %d should be smaller than original %d", len(out), len(data))
	}

	back, err := c.Decompress(out)
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Error("Decompress(Compress(data)) != data")
	}
}
