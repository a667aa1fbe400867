package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeSimpleAndError(t *testing.T) {
	if got := string(OK().Encode()); got != "+OK\r\n" {
		t.Errorf("OK().Encode() = %q", got)
	}
	if got := string(Err("bad command").Encode()); got != "-ERR bad command\r\n" {
		t.Errorf("Err().Encode() = %q", got)
	}
}

func TestEncodeIntegerAndBulk(t *testing.T) {
	if got := string(Integer(42).Encode()); got != ":42\r\n" {
		t.Errorf("Integer(42).Encode() = %q", got)
	}
	if got := string(NullBulk().Encode()); got != "$-1\r\n" {
		t.Errorf("NullBulk().Encode() = %q", got)
	}
	want := "$5\r\nhello\r\n"
	if got := string(Bulk([]byte("hello")).Encode()); got != want {
		t.Errorf("Bulk().Encode() = %q; want %q", got, want)
	}
}

func TestEncodeMultiLineCarriesCountPrefix(t *testing.T) {
	lines := []string{"# Server Statistics", "entries:3", "hits:10"}
	want := []byte("#3\r\n# Server Statistics\r\nentries:3\r\nhits:10\r\n")
	if got := MultiLine(lines).Encode(); !bytes.Equal(got, want) {
		t.Errorf("MultiLine().Encode() = %q; want %q", got, want)
	}
}
