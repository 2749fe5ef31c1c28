package document

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const sniffLen = 512

// detectFileType classifies a file by reading up to sniffLen bytes
// and checking for a 0x00 byte (Binary), or by symlink stat
// (SymLink). Otherwise Text.
func detectFileType(head []byte, isSymlink bool) FileType {
	if isSymlink {
		return FileTypeSymlink
	}
	for _, b := range head {
		if b == 0x00 {
			return FileTypeBinary
		}
	}
	return FileTypeText
}

// detectAndDecode inspects raw bytes for a BOM, falls back to
// validity-checked UTF-8, and otherwise decodes as ISO-8859-1 (a
// byte-preserving, never-failing decode) — there is no general
// charset-sniffing library in scope, so this is a deliberately small
// heuristic rather than a statistical detector. Confidence is always
// reported as 0.9.
func detectAndDecode(raw []byte) (string, Encoding, bool) {
	switch {
	case hasUTF8BOM(raw):
		text, _ := unicode.UTF8BOM.NewDecoder().Bytes(raw)
		return string(text), Encoding{Label: "utf-8", Confidence: 0.9}, false
	case hasUTF16LEBOM(raw):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		text, err := dec.Bytes(raw)
		return string(text), Encoding{Label: "utf-16le", Confidence: 0.9}, err != nil
	case hasUTF16BEBOM(raw):
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		text, err := dec.Bytes(raw)
		return string(text), Encoding{Label: "utf-16be", Confidence: 0.9}, err != nil
	case utf8.Valid(raw):
		return string(raw), Encoding{Label: "utf-8", Confidence: 0.9}, false
	default:
		// charmap.ISO8859_1 maps every byte to a rune 1:1 and never
		// fails, so this is the fallback-of-last-resort decode.
		text, _ := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		return string(text), Encoding{Label: "iso-8859-1", Confidence: 0.9}, false
	}
}

func hasUTF8BOM(b []byte) bool {
	return len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF
}

func hasUTF16LEBOM(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE
}

func hasUTF16BEBOM(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF
}

// detectLineEnding classifies each LF by whether a CR precedes it:
// Mixed if both CRLF pairs and bare LFs are seen, CRLF if only CRLF
// pairs are seen, LF otherwise (including text with no LF at all).
// A CR that is not followed by LF is not counted.
func detectLineEnding(text string) LineEnding {
	hasCRLF := false
	hasLF := false
	n := len(text)
	for i := 0; i < n; i++ {
		if text[i] == '\n' {
			if i > 0 && text[i-1] == '\r' {
				hasCRLF = true
			} else {
				hasLF = true
			}
		}
	}
	switch {
	case hasCRLF && hasLF:
		return LineEndingMixed
	case hasCRLF:
		return LineEndingCRLF
	default:
		return LineEndingLF
	}
}
