package document

import "testing"

func TestDetectFileTypeBinary(t *testing.T) {
	head := []byte("some\x00binary")
	if got := detectFileType(head, false); got != FileTypeBinary {
		t.Fatalf("got %v, want Binary", got)
	}
}

func TestDetectFileTypeSymlink(t *testing.T) {
	if got := detectFileType([]byte("whatever"), true); got != FileTypeSymlink {
		t.Fatalf("got %v, want SymLink", got)
	}
}

func TestDetectFileTypeText(t *testing.T) {
	if got := detectFileType([]byte("hello world"), false); got != FileTypeText {
		t.Fatalf("got %v, want Text", got)
	}
}

func TestDetectAndDecodeUTF8BOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...)
	text, enc, _ := detectAndDecode(raw)
	if text != "hello" {
		t.Fatalf("got %q", text)
	}
	if enc.Label != "utf-8" || enc.Confidence != 0.9 {
		t.Fatalf("got %+v", enc)
	}
}

func TestDetectAndDecodePlainUTF8(t *testing.T) {
	raw := []byte("plain ascii text")
	text, enc, _ := detectAndDecode(raw)
	if text != "plain ascii text" {
		t.Fatalf("got %q", text)
	}
	if enc.Label != "utf-8" {
		t.Fatalf("got %+v", enc)
	}
}

func TestDetectAndDecodeFallsBackToISO8859(t *testing.T) {
	// 0xFF is not valid standalone UTF-8 and has none of the BOM prefixes.
	raw := []byte{0x41, 0xFF, 0x42}
	_, enc, _ := detectAndDecode(raw)
	if enc.Label != "iso-8859-1" {
		t.Fatalf("got %+v, want iso-8859-1 fallback", enc)
	}
}

func TestDetectLineEndingLF(t *testing.T) {
	if got := detectLineEnding("a\nb\nc\n"); got != LineEndingLF {
		t.Fatalf("got %v", got)
	}
}

func TestDetectLineEndingCRLF(t *testing.T) {
	if got := detectLineEnding("a\r\nb\r\n"); got != LineEndingCRLF {
		t.Fatalf("got %v", got)
	}
}

func TestDetectLineEndingMixed(t *testing.T) {
	if got := detectLineEnding("a\r\nb\nc"); got != LineEndingMixed {
		t.Fatalf("got %v", got)
	}
}
