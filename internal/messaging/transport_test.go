package messaging

import (
	"bytes"
	"testing"

	"github.com/vibe-ensemble/vibe-ensemble-go/internal/network"
)

func TestTransportFrameRoundTripsWithoutCompressor(t *testing.T) {
	tr := &Transport{}
	data := []byte(`{"id":"m1"}`)

	framed, err := tr.frame(data)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if framed[0] != wireFlagRaw {
		t.Fatalf("expected raw flag, got %d", framed[0])
	}

	out, err := tr.unframe(framed)
	if err != nil {
		t.Fatalf("unframe: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("expected %s, got %s", data, out)
	}
}

func TestTransportFrameCompressesLargePayloads(t *testing.T) {
	tr := &Transport{}
	tr.SetCompressor(network.NewCompressor(6))

	data := bytes.Repeat([]byte("vibe-ensemble coordination payload "), 100)

	framed, err := tr.frame(data)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if framed[0] != wireFlagDeflate {
		t.Fatalf("expected deflate flag for a large, compressible payload, got %d", framed[0])
	}
	if len(framed)-1 >= len(data) {
		t.Fatalf("expected compressed payload to be smaller than %d bytes, got %d", len(data), len(framed)-1)
	}

	out, err := tr.unframe(framed)
	if err != nil {
		t.Fatalf("unframe: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(out), len(data))
	}
}

func TestTransportFrameSkipsCompressionBelowThreshold(t *testing.T) {
	tr := &Transport{}
	tr.SetCompressor(network.NewCompressor(6))

	data := []byte(`{"id":"m1","recipient":"agent-a"}`)

	framed, err := tr.frame(data)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if framed[0] != wireFlagRaw {
		t.Fatalf("expected raw flag for a small payload, got %d", framed[0])
	}
}
