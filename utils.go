package fdtest

import (
	"bytes"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// BlinkChar marks a text byte as blinking.
const BlinkChar = 0x80

// CRC8 computes the LR checksum: the XOR of all payload bytes.
func CRC8(data []byte) byte {
	var crc byte
	for _, b := range data {
		crc ^= b
	}
	return crc
}

// setBlink flags every byte of text as blinking, in place.
func setBlink(text []byte) {
	for i := range text {
		text[i] |= BlinkChar
	}
}

// clip returns the longest prefix of s that fits into n bytes without
// splitting a UTF-8 sequence.
func clip(s string, n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	if len(s) <= n {
		return []byte(s)
	}
	end := 0
	for end < len(s) {
		_, size := utf8.DecodeRuneInString(s[end:])
		if end+size > n {
			break
		}
		end += size
	}
	return []byte(s[:end])
}

// clipRunes returns the first n characters of s as UTF-8 bytes.
func clipRunes(s string, n int) []byte {
	end := 0
	for i := 0; i < n && end < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
	}
	return []byte(s[:end])
}

// fixedField renders s into exactly width bytes: truncated when too long,
// space padded when too short, filled with '?' when empty.
func fixedField(s string, width int) []byte {
	if width <= 0 {
		return []byte{}
	}
	if s == "" {
		return bytes.Repeat([]byte{'?'}, width)
	}
	field := clip(s, width)
	if pad := width - len(field); pad > 0 {
		field = append(field, bytes.Repeat([]byte{' '}, pad)...)
	}
	return field
}

func spaces(n int) []byte {
	if n <= 0 {
		return []byte{}
	}
	return bytes.Repeat([]byte{' '}, n)
}

func upperHex(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}
