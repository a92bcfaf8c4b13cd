// Package textutil cleans text that comes from the platform API before it
// is drawn in a terminal.
package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// fallbackEncodings are tried in order when detection is inconclusive.
// Records imported from spreadsheets are mostly Windows-1252, so the
// single-byte Western charsets come first.
var fallbackEncodings = []encoding.Encoding{
	charmap.Windows1252,
	charmap.ISO8859_1,
	charmap.ISO8859_15,
	japanese.ShiftJIS,
	japanese.EUCJP,
	korean.EUCKR,
	simplifiedchinese.GBK,
	traditionalchinese.Big5,
}

// charsets maps lower-cased charset names reported by chardet (and common
// aliases) to decoders.
var charsets = map[string]encoding.Encoding{
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"iso-8859-1":   charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"iso-8859-2":   charmap.ISO8859_2,
	"shift_jis":    japanese.ShiftJIS,
	"sjis":         japanese.ShiftJIS,
	"euc-jp":       japanese.EUCJP,
	"euc-kr":       korean.EUCKR,
	"gbk":          simplifiedchinese.GBK,
	"gb2312":       simplifiedchinese.GBK,
	"gb18030":      simplifiedchinese.GB18030,
	"big5":         traditionalchinese.Big5,
}

// EncodingFor returns the decoder for a charset name, or nil if unknown.
func EncodingFor(name string) encoding.Encoding {
	return charsets[strings.ToLower(name)]
}

// EnsureUTF8 returns s unchanged when it is valid UTF-8. Otherwise it
// detects the charset and decodes, falling back to replacement characters.
func EnsureUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	data := []byte(s)

	// Detection is unreliable on short values.
	minConfidence := 30
	if len(data) > 50 {
		minConfidence = 50
	}
	if best, err := chardet.NewTextDetector().DetectBest(data); err == nil && best.Confidence >= minConfidence {
		if out, ok := decode(EncodingFor(best.Charset), data); ok {
			return out
		}
	}
	for _, enc := range fallbackEncodings {
		if out, ok := decode(enc, data); ok {
			return out
		}
	}
	return SanitizeUTF8(s)
}

func decode(enc encoding.Encoding, data []byte) (string, bool) {
	if enc == nil {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	return string(out), true
}

// SanitizeUTF8 replaces each invalid byte with U+FFFD.
func SanitizeUTF8(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		sb.WriteRune(r)
		s = s[size:]
	}
	return sb.String()
}
