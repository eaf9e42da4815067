package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"
)

// MarshalLegacyJSON сериализует v в формате, в котором аттестации подписывались исторически:
// разделители ", " и ": ", всё вне печатного ASCII экранируется как \uXXXX (суррогатными парами вне BMP).
// От этих байтов считается content_hash.
func MarshalLegacyJSON(v interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	raw := strings.TrimSuffix(buf.String(), "\n")

	var out strings.Builder
	out.Grow(len(raw) + len(raw)/8)

	inString, escaped := false, false
	for _, r := range raw {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			case r >= 0x7f:
				writeUnicodeEscape(&out, r)
				continue
			}
			out.WriteRune(r)
			continue
		}

		out.WriteRune(r)
		switch r {
		case '"':
			inString = true
		case ',', ':':
			out.WriteByte(' ')
		}
	}
	return out.String(), nil
}

func writeUnicodeEscape(out *strings.Builder, r rune) {
	if r > 0xffff {
		hi, lo := utf16.EncodeRune(r)
		fmt.Fprintf(out, `\u%04x\u%04x`, hi, lo)
		return
	}
	fmt.Fprintf(out, `\u%04x`, r)
}
