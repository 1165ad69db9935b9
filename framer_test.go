package pgwire

import (
	"bytes"
	"testing"
)

func TestFrameWriterTaggedRoundTrip(t *testing.T) {
	fw := newFrameWriter()
	fw.startMsg('Q')
	fw.WriteCString("select 1")
	fw.closeMsg()

	tag, body, err := readMessage(bytes.NewReader(fw.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if tag != 'Q' {
		t.Fatalf("tag = %q, want 'Q'", tag)
	}
	buf := newMsgBuf(body)
	s, ok := buf.cstring()
	if !ok || s != "select 1" {
		t.Fatalf("cstring = %q, %v", s, ok)
	}
}

func TestFrameWriterUntaggedRoundTrip(t *testing.T) {
	fw := newFrameWriter()
	fw.startUntaggedMsg()
	fw.WriteInt32(sslRequestCode)
	fw.closeMsg()

	b := fw.Bytes()
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	buf := newMsgBuf(b)
	if n := buf.int32(); n != 8 {
		t.Fatalf("length field = %d, want 8", n)
	}
	if code := buf.int32(); code != sslRequestCode {
		t.Fatalf("code = %d, want %d", code, sslRequestCode)
	}
}

func TestFrameWriterMultipleMessagesBatch(t *testing.T) {
	fw := newFrameWriter()
	fw.startMsg('B')
	fw.WriteByte(0)
	fw.closeMsg()
	fw.startMsg('E')
	fw.WriteByte(0)
	fw.WriteInt32(0)
	fw.closeMsg()
	fw.startMsg('S')
	fw.closeMsg()

	r := bytes.NewReader(fw.Bytes())
	var tags []byte
	for i := 0; i < 3; i++ {
		tag, _, err := readMessage(r)
		if err != nil {
			t.Fatal(err)
		}
		tags = append(tags, tag)
	}
	want := []byte{'B', 'E', 'S'}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("tags = %v, want %v", tags, want)
		}
	}
}

func TestMsgBufFields(t *testing.T) {
	fw := newFrameWriter()
	fw.WriteByte(7)
	fw.WriteInt16(42)
	fw.WriteInt32(-9)
	fw.WriteCString("hi")
	buf := newMsgBuf(fw.Bytes())

	if v := buf.byte(); v != 7 {
		t.Fatalf("byte = %d", v)
	}
	if v := buf.int16(); v != 42 {
		t.Fatalf("int16 = %d", v)
	}
	if v := buf.int32(); v != -9 {
		t.Fatalf("int32 = %d", v)
	}
	s, ok := buf.cstring()
	if !ok || s != "hi" {
		t.Fatalf("cstring = %q, %v", s, ok)
	}
	if buf.len() != 0 {
		t.Fatalf("len = %d, want 0", buf.len())
	}
}

func TestReadHeaderRejectsShortLength(t *testing.T) {
	var hdr [5]byte
	hdr[0] = 'Q'
	hdr[4] = 2 // length 2 is shorter than the length field itself
	_, _, err := readHeader(bytes.NewReader(hdr[:]))
	if err == nil {
		t.Fatal("expected error for invalid length")
	}
}
