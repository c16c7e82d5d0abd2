package assets

import (
	"mime"
	"strings"
	"unicode/utf8"
)

const originalNameKey = "original-name"

var wordDecoder = new(mime.WordDecoder)

// EncodeMetadata prepares user metadata for an S3 object. Keys are reduced to
// lower-case [a-z0-9-]; values that are not printable ASCII are written as
// RFC 2047 Q-encoded words. Empty keys are dropped.
func EncodeMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for key, value := range meta {
		key = MetadataKey(key)
		if key == "" {
			continue
		}
		out[key] = EncodeMetadataValue(value)
	}
	return out
}

// DecodeMetadata reverses EncodeMetadata for metadata read back from the
// store, where keys may arrive in canonical header case.
func DecodeMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for key, value := range meta {
		out[strings.ToLower(key)] = DecodeMetadataValue(value)
	}
	return out
}

func MetadataKey(key string) string {
	return dashed(strings.TrimSpace(key))
}

// EncodeMetadataValue leaves plain ASCII alone unless it already contains
// "=?", which DecodeMetadataValue would read as an encoded word.
func EncodeMetadataValue(value string) string {
	switch {
	case strings.Contains(value, "=?"):
		return encodeWords(value)
	case isPlainASCII(value):
		return value
	default:
		return mime.QEncoding.Encode("utf-8", value)
	}
}

// encodeWords always Q-encodes value. mime.QEncoding returns printable ASCII
// unchanged, so it cannot be used here.
func encodeWords(value string) string {
	const hex = "0123456789ABCDEF"
	const maxEncoded = 60

	var words []string
	var word strings.Builder
	for _, r := range value {
		var buf [utf8.UTFMax]byte
		var enc strings.Builder
		for _, c := range buf[:utf8.EncodeRune(buf[:], r)] {
			switch {
			case c == ' ':
				enc.WriteByte('_')
			case c > ' ' && c <= '~' && c != '=' && c != '?' && c != '_':
				enc.WriteByte(c)
			default:
				enc.WriteByte('=')
				enc.WriteByte(hex[c>>4])
				enc.WriteByte(hex[c&0x0f])
			}
		}
		if word.Len() > 0 && word.Len()+enc.Len() > maxEncoded {
			words = append(words, "=?utf-8?q?"+word.String()+"?=")
			word.Reset()
		}
		word.WriteString(enc.String())
	}
	words = append(words, "=?utf-8?q?"+word.String()+"?=")
	return strings.Join(words, " ")
}

func DecodeMetadataValue(value string) string {
	if !strings.Contains(value, "=?") {
		return value
	}
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

func isPlainASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
