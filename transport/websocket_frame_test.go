package transport

import (
	"bytes"
	"testing"
)

func TestFrameRoundTripBoundaryLengths(t *testing.T) {
	for _, n := range []int{0, 1, 125, 126, 65535, 65536} {
		payload := bytes.Repeat([]byte{'x'}, n)
		buf := &bytes.Buffer{}
		if err := writeFrame(buf, opText, payload); err != nil {
			t.Fatalf("length %d: writeFrame: %v", n, err)
		}
		opcode, fin, got, err := readFrame(buf)
		if err != nil {
			t.Fatalf("length %d: readFrame: %v", n, err)
		}
		if !fin {
			t.Fatalf("length %d: expected FIN set", n)
		}
		if opcode != opText {
			t.Fatalf("length %d: expected opText, got %#x", n, opcode)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("length %d: payload mismatch (got %d bytes, want %d)", n, len(got), len(payload))
		}
	}
}

func TestFrameIsMaskedOnWire(t *testing.T) {
	payload := []byte("hello")
	buf := &bytes.Buffer{}
	if err := writeFrame(buf, opText, payload); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	wire := buf.Bytes()
	// header[1] bit7 must be set: client frames are always masked.
	if wire[1]&0x80 == 0 {
		t.Fatal("expected mask bit set on client frame")
	}
	// The raw wire bytes should not contain the plaintext payload verbatim
	// (masking must have transformed it) for a non-trivial payload.
	if bytes.Contains(wire, payload) {
		t.Fatal("payload appears unmasked on the wire")
	}
}

func TestFrameUnmaskedReadWhenServerDoesNotMask(t *testing.T) {
	// A compliant server never masks; readFrame must still work since it
	// only unmasks conditionally on the mask bit.
	buf := &bytes.Buffer{}
	buf.WriteByte(0x80 | opText) // FIN + text
	buf.WriteByte(5)             // no mask bit, length 5
	buf.WriteString("howdy")

	opcode, fin, payload, err := readFrame(buf)
	if err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if !fin || opcode != opText || string(payload) != "howdy" {
		t.Fatalf("unexpected frame: fin=%v opcode=%#x payload=%q", fin, opcode, payload)
	}
}

func TestFrameReadsFragmentFINAndOpcode(t *testing.T) {
	buf := &bytes.Buffer{}
	// First fragment: text, FIN=0.
	buf.WriteByte(opText) // FIN=0
	buf.WriteByte(3)
	buf.WriteString("abc")
	// Final fragment: continuation, FIN=1.
	buf.WriteByte(0x80 | opContinuation)
	buf.WriteByte(3)
	buf.WriteString("def")

	opcode1, fin1, p1, err := readFrame(buf)
	if err != nil {
		t.Fatalf("first fragment: %v", err)
	}
	if fin1 || opcode1 != opText || string(p1) != "abc" {
		t.Fatalf("unexpected first fragment: fin=%v opcode=%#x payload=%q", fin1, opcode1, p1)
	}

	opcode2, fin2, p2, err := readFrame(buf)
	if err != nil {
		t.Fatalf("second fragment: %v", err)
	}
	if !fin2 || opcode2 != opContinuation || string(p2) != "def" {
		t.Fatalf("unexpected second fragment: fin=%v opcode=%#x payload=%q", fin2, opcode2, p2)
	}
}

func TestComputeAcceptMatchesRFCExample(t *testing.T) {
	// The canonical example from RFC 6455 §1.3.
	got := computeAccept("dGhlIHNhbXBsZSBub25jZQ==")
	want := "s3pPLMBiTxaQ9kYGzzhZRbK+xOo="
	if got != want {
		t.Fatalf("computeAccept() = %q, want %q", got, want)
	}
}
