package jp2meta

import (
	"encoding/binary"
	"strings"
)

func be32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

func indexByte(s string, c byte) int {
	return strings.IndexByte(s, c)
}

// printablePreview renders up to max bytes of b with non-printable bytes
// shown as '.', the way structure dumps usually do.
func printablePreview(b []byte, max int) string {
	if len(b) > max {
		b = b[:max]
	}
	var sb strings.Builder
	for _, c := range b {
		if c >= 0x20 && c < 0x7f {
			sb.WriteByte(c)
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}

func trimBytesNulls(b []byte) []byte {
	var lo, hi int
	for lo = 0; lo < len(b) && b[lo] == 0; lo++ {
	}
	for hi = len(b) - 1; hi >= 0 && b[hi] == 0; hi-- {
	}
	if lo > hi {
		return nil
	}
	return b[lo : hi+1]
}
