package wsframe

import (
	"bytes"
	"testing"
)

func TestParseFrameZeroMaskShortPayload(t *testing.T) {
	// FIN + binary opcode, masked, payload "AB" masked with key 0x00000000.
	buf := []byte{0x82, 0x82, 0x00, 0x00, 0x00, 0x00, 'A', 'B'}
	f, n, err := ParseFrame(buf)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if !f.Fin || f.Opcode != OpBinary {
		t.Fatalf("unexpected frame: %+v", f)
	}
	if !bytes.Equal(f.Payload, []byte("AB")) {
		t.Fatalf("payload = %q", f.Payload)
	}
}

func TestParseFrameUnmasksWithRealKey(t *testing.T) {
	payload := []byte{CmdKey, 0x04, 0x01}
	mask := []byte{0x12, 0x34, 0x56, 0x78}
	masked := make([]byte, len(payload))
	for i := range payload {
		masked[i] = payload[i] ^ mask[i%4]
	}
	buf := append([]byte{0x82, 0x80 | byte(len(payload))}, mask...)
	buf = append(buf, masked...)

	f, n, err := ParseFrame(buf)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Fatalf("payload = %v, want %v", f.Payload, payload)
	}
}

func TestParseFrameIncompleteHeader(t *testing.T) {
	_, _, err := ParseFrame([]byte{0x82})
	if err != ErrIncomplete {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
}

func TestParseFrameIncompletePayload(t *testing.T) {
	buf := []byte{0x82, 0x85, 0, 0, 0, 0, 'A'} // declares 5 bytes, has 1
	_, n, err := ParseFrame(buf)
	if err != ErrIncomplete || n != 0 {
		t.Fatalf("err=%v n=%d, want ErrIncomplete/0", err, n)
	}
}

func TestParseFrameExtended16BitLength(t *testing.T) {
	payload := bytes.Repeat([]byte{0x41}, 200)
	buf := []byte{0x82, 0xFE, 0x00, 0xC8} // masked, len=126 marker, 16-bit len=200
	buf = append(buf, 0, 0, 0, 0)         // zero mask key
	buf = append(buf, payload...)

	f, n, err := ParseFrame(buf)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if !bytes.Equal(f.Payload, payload) {
		t.Fatal("payload mismatch")
	}
}

func TestParseFrameRejects64BitLength(t *testing.T) {
	buf := []byte{0x82, 0xFF, 0, 0, 0, 0, 0, 0, 0, 0}
	_, n, err := ParseFrame(buf)
	if err != ErrUnsupported || n != 0 {
		t.Fatalf("err=%v n=%d, want ErrUnsupported/0", err, n)
	}
}

func TestParseFrameDropsOversizedPayload(t *testing.T) {
	payload := bytes.Repeat([]byte{0x41}, ReassemblyCap+1)
	buf := []byte{0x82, 0xFE, byte(len(payload) >> 8), byte(len(payload))}
	buf = append(buf, 0, 0, 0, 0)
	buf = append(buf, payload...)

	_, n, err := ParseFrame(buf)
	if err != ErrUnsupported {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d (must still resync)", n, len(buf))
	}
}

func TestParseFrameRejectsContinuation(t *testing.T) {
	buf := []byte{0x80, 0x80, 0, 0, 0, 0}
	_, n, err := ParseFrame(buf)
	if err != ErrUnsupported || n != len(buf) {
		t.Fatalf("err=%v n=%d", err, n)
	}
}

func TestEncodeFrameShortPayload(t *testing.T) {
	out := EncodeFrame(OpBinary, []byte{CmdStatus, 0x01})
	want := []byte{0x82, 0x02, CmdStatus, 0x01}
	if !bytes.Equal(out, want) {
		t.Fatalf("EncodeFrame = %v, want %v", out, want)
	}
}

func TestEncodeFrameExtendedLength(t *testing.T) {
	payload := bytes.Repeat([]byte{0x01}, 200)
	out := EncodeFrame(OpBinary, payload)
	if out[0] != 0x82 || out[1] != 126 {
		t.Fatalf("unexpected header: %v", out[:2])
	}
	f, n, err := ParseFrame(append([]byte{}, out...))
	if err != nil {
		t.Fatalf("round trip parse: %v", err)
	}
	if n != len(out) || !bytes.Equal(f.Payload, payload) {
		t.Fatal("round trip mismatch")
	}
}

func TestEncodeCloseTruncatesReason(t *testing.T) {
	reason := string(bytes.Repeat([]byte{'x'}, 200))
	out := EncodeClose(4001, reason)
	f, _, err := ParseFrame(append([]byte{}, out...))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(f.Payload) > 125 {
		t.Fatalf("close payload len = %d, want <= 125", len(f.Payload))
	}
	if f.Payload[0] != 0x0F || f.Payload[1] != 0xA1 {
		t.Fatalf("close code bytes = %v, want 4001 big-endian", f.Payload[:2])
	}
}
