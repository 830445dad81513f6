// Package textenc turns stored document bytes into UTF-8 text.
package textenc

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names reported by Decode.
const (
	UTF8    = "utf-8"
	UTF16LE = "utf-16le"
	UTF16BE = "utf-16be"
	GB18030 = "gb18030"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode returns data as UTF-8 text and the encoding it was read as. A
// byte-order mark selects UTF-8 or UTF-16; otherwise valid UTF-8 passes
// through and anything else is read as GB18030. Bytes that still fail to
// decode become U+FFFD.
func Decode(data []byte) (string, string) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(bytes.ToValidUTF8(data[len(bomUTF8):], []byte("\uFFFD"))), UTF8
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()), UTF16LE
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeWith(data, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()), UTF16BE
	case utf8.Valid(data):
		return string(data), UTF8
	default:
		return decodeWith(data, simplifiedchinese.GB18030.NewDecoder()), GB18030
	}
}

// String is Decode without the encoding name.
func String(data []byte) string {
	s, _ := Decode(data)
	return s
}

func decodeWith(data []byte, decoder *encoding.Decoder) string {
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), decoder))
	if err != nil {
		return string(bytes.ToValidUTF8(data, []byte("\uFFFD")))
	}
	return string(bytes.ToValidUTF8(out, []byte("\uFFFD")))
}
