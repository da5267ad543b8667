// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

package jp2meta

import "encoding/binary"

// fourCC is a 4-byte box type. It renders in file byte order, so the same
// constant prints the same on any host.
type fourCC [4]byte

func (f fourCC) String() string {
	return string(f[:])
}

// JP2 box types.
var (
	fccSignature   = fourCC{'j', 'P', ' ', ' '}
	fccFileType    = fourCC{'f', 't', 'y', 'p'}
	fccJP2Header   = fourCC{'j', 'p', '2', 'h'}
	fccImageHeader = fourCC{'i', 'h', 'd', 'r'}
	fccColorSpec   = fourCC{'c', 'o', 'l', 'r'}
	fccUUID        = fourCC{'u', 'u', 'i', 'd'}
	fccCodestream  = fourCC{'j', 'p', '2', 'c'}
)

const (
	boxHeaderSize = 8
	uuidSize      = 16

	// ihdr payload: height(4) width(4) nc(2) bpc(1) C(1) UnkC(1) IPR(1).
	ihdrBoxLength = boxHeaderSize + 14
)

// UUIDs identifying the three recognized metadata payloads.
var (
	uuidExif = [uuidSize]byte{'J', 'p', 'g', 'T', 'i', 'f', 'f', 'E', 'x', 'i', 'f', '-', '>', 'J', 'P', '2'}
	uuidIPTC = [uuidSize]byte{0x33, 0xc7, 0xa4, 0xd2, 0xb8, 0x1d, 0x47, 0x23, 0xa0, 0xba, 0xf1, 0xa3, 0xe0, 0x97, 0xad, 0x38}
	uuidXMP  = [uuidSize]byte{0xbe, 0x7a, 0xcf, 0xcb, 0x97, 0xa9, 0x42, 0xe8, 0x9c, 0x71, 0x99, 0x94, 0x91, 0xe3, 0xaf, 0xac}
)

// jp2Signature is the 12-byte prefix every JP2 stream starts with: an 8-byte
// box header (length 12, type "jP  ") and the 4-byte magic payload.
var jp2Signature = []byte{0x00, 0x00, 0x00, 0x0c, 0x6a, 0x50, 0x20, 0x20, 0x0d, 0x0a, 0x87, 0x0a}

// boxHeader is the fixed 8-byte record framing every box: a big-endian
// length (including the header itself) followed by the type.
type boxHeader struct {
	length uint32
	typ    fourCC
}

func decodeBoxHeader(b []byte) boxHeader {
	var h boxHeader
	h.length = binary.BigEndian.Uint32(b[:4])
	copy(h.typ[:], b[4:8])
	return h
}

func (h boxHeader) encode(b []byte) {
	binary.BigEndian.PutUint32(b[:4], h.length)
	copy(b[4:8], h.typ[:])
}

// isValidFileType validates an ftyp payload: a 4-byte brand, a 4-byte minor
// version, then zero or more 4-byte compatibility entries. The stream is a
// JP2 when the brand or any compatibility entry is "jp2 ".
func isValidFileType(payload []byte) bool {
	if len(payload) < 8 || len(payload)%4 != 0 {
		return false
	}
	jp2Brand := fourCC{'j', 'p', '2', ' '}
	var brand fourCC
	copy(brand[:], payload[:4])
	if brand == jp2Brand {
		return true
	}
	for i := 8; i+4 <= len(payload); i += 4 {
		var cl fourCC
		copy(cl[:], payload[i:i+4])
		if cl == jp2Brand {
			return true
		}
	}
	return false
}

// colrPlaceholder is the colr payload written when no ICC profile is
// defined: enumerated colorspace method, sRGB. The trailing bytes are kept
// bit-for-bit from the original file format contract.
var colrPlaceholder = []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x05, 0x1c, 'u', 'u', 'i', 'd'}

// jp2Blank is the minimal valid JP2 written in create mode: signature, ftyp,
// jp2h with a 1x1 greyscale ihdr and an enumerated colr, and a trivial jp2c
// codestream. Consumers depend on this exact byte sequence.
var jp2Blank = []byte{
	0x00, 0x00, 0x00, 0x0c, 0x6a, 0x50, 0x20, 0x20, 0x0d, 0x0a, 0x87, 0x0a,
	0x00, 0x00, 0x00, 0x14, 0x66, 0x74, 0x79, 0x70, 0x6a, 0x70, 0x32, 0x20,
	0x00, 0x00, 0x00, 0x00, 0x6a, 0x70, 0x32, 0x20, 0x00, 0x00, 0x00, 0x2d,
	0x6a, 0x70, 0x32, 0x68, 0x00, 0x00, 0x00, 0x16, 0x69, 0x68, 0x64, 0x72,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x07, 0x07,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x0f, 0x63, 0x6f, 0x6c, 0x72, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x11, 0x00, 0x00, 0x00, 0x00, 0x6a, 0x70, 0x32,
	0x63, 0xff, 0x4f, 0xff, 0x51, 0x00, 0x29, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01, 0x07, 0x01, 0x01, 0xff, 0x64,
	0x00, 0x23, 0x00, 0x01, 0x43, 0x72, 0x65, 0x61, 0x74, 0x6f, 0x72, 0x3a,
	0x20, 0x4a, 0x61, 0x73, 0x50, 0x65, 0x72, 0x20, 0x56, 0x65, 0x72, 0x73,
	0x69, 0x6f, 0x6e, 0x20, 0x31, 0x2e, 0x39, 0x30, 0x30, 0x2e, 0x31, 0xff,
	0x52, 0x00, 0x0c, 0x00, 0x00, 0x00, 0x01, 0x00, 0x05, 0x04, 0x04, 0x00,
	0x01, 0xff, 0x5c, 0x00, 0x13, 0x40, 0x40, 0x48, 0x48, 0x50, 0x48, 0x48,
	0x50, 0x48, 0x48, 0x50, 0x48, 0x48, 0x50, 0x48, 0x48, 0x50, 0xff, 0x90,
	0x00, 0x0a, 0x00, 0x00, 0x00, 0x00, 0x00, 0x2d, 0x00, 0x01, 0xff, 0x5d,
	0x00, 0x14, 0x00, 0x40, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xff, 0x93, 0xcf, 0xb4,
	0x04, 0x00, 0x80, 0x80, 0x80, 0x80, 0x80, 0xff, 0xd9,
}
