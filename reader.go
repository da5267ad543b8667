// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

package jp2meta

import (
	"bytes"
	"io"
)

// exifPreamble is the non-standard "Exif\0\0" marker some writers put in
// front of the TIFF header inside the Exif UUID payload.
var exifPreamble = []byte{0x45, 0x78, 0x69, 0x66, 0x00, 0x00}

// ReadMetadata populates the image model from the backing store: pixel
// dimensions from ihdr, the ICC profile from colr, and the Exif, IPTC and
// XMP payloads from their UUID boxes.
func (img *Image) ReadMetadata() (err error) {
	if _, err := img.io.Seek(0, io.SeekStart); err != nil {
		return wrapError(CodeDataSourceOpenFailed, err)
	}
	s := newStreamReader(img.io)
	defer s.recoverStop(&err)

	if !IsJP2(img.io, false) {
		return newError(CodeNotAnImage, "JPEG-2000")
	}

	var (
		boxCount      int
		lastType      fourCC
		signatureSeen bool
		fileTypeSeen  bool
	)

	for {
		hdr, herr := s.readBoxHeaderE()
		if herr != nil {
			if herr == io.EOF {
				return nil
			}
			return wrapError(CodeFailedToReadImageData, herr)
		}
		boxCount++
		if boxCount > img.boxLimit {
			return errCorrupted("more than %d boxes", img.boxLimit)
		}
		pos := s.pos()

		if int64(hdr.length) > boxHeaderSize+s.size()-pos {
			return errCorrupted("box %s length %d exceeds stream size", hdr.typ, hdr.length)
		}
		if hdr.length == 0 {
			// Box extends to end of file; nothing can follow it.
			return nil
		}
		if hdr.length == 1 {
			// XLBox 64-bit length form.
			return errCorrupted("extended-length box not supported")
		}
		if hdr.length < boxHeaderSize {
			return errCorrupted("box %s length %d below header size", hdr.typ, hdr.length)
		}

		switch hdr.typ {
		case fccSignature:
			if signatureSeen {
				return errCorrupted("duplicate signature box")
			}
			signatureSeen = true

		case fccFileType:
			// Shall immediately follow the signature box, exactly once.
			if fileTypeSeen || lastType != fccSignature {
				return errCorrupted("misplaced ftyp box")
			}
			fileTypeSeen = true
			payload := s.readBytesVolatile(int(hdr.length - boxHeaderSize))
			if !isValidFileType(payload) {
				return errCorrupted("invalid ftyp box")
			}

		case fccJP2Header:
			if err := img.readJP2Header(s, pos-boxHeaderSize+int64(hdr.length), &boxCount); err != nil {
				return err
			}

		case fccUUID:
			if err := img.readUUIDBox(s, hdr.length); err != nil {
				return err
			}
		}

		lastType = hdr.typ
		s.seek(pos - boxHeaderSize + int64(hdr.length))
	}
}

// readJP2Header walks the sub-boxes of a jp2h superbox up to boxEnd,
// extracting the image dimensions from ihdr and the ICC profile from the
// first colr sub-box.
func (img *Image) readJP2Header(s *streamReader, boxEnd int64, boxCount *int) error {
	colrSeen := false

	for s.pos()+boxHeaderSize <= boxEnd {
		subStart := s.pos()
		hdr, err := s.readBoxHeaderE()
		if err != nil {
			return wrapError(CodeFailedToReadImageData, err)
		}
		*boxCount++
		if *boxCount > img.boxLimit {
			return errCorrupted("more than %d boxes", img.boxLimit)
		}
		if hdr.length < boxHeaderSize || int64(hdr.length) > boxEnd-subStart {
			return errCorrupted("jp2h sub-box %s length %d out of bounds", hdr.typ, hdr.length)
		}
		payload := s.readBytesVolatile(int(hdr.length - boxHeaderSize))

		switch hdr.typ {
		case fccImageHeader:
			if hdr.length != ihdrBoxLength {
				return errCorrupted("ihdr length %d", hdr.length)
			}
			if err := img.readImageHeader(payload); err != nil {
				return err
			}

		case fccColorSpec:
			// A conforming reader ignores all colr boxes after the first.
			if colrSeen {
				break
			}
			colrSeen = true
			if err := img.readColorSpec(payload); err != nil {
				return err
			}
		}

		s.seek(subStart + int64(hdr.length))
	}
	return nil
}

// readImageHeader decodes the 14-byte ihdr payload:
// height(4) width(4) nc(2) bpc(1) C(1) UnkC(1) IPR(1).
func (img *Image) readImageHeader(payload []byte) error {
	height := be32(payload[0:4])
	width := be32(payload[4:8])
	compression := payload[11]
	unkC := payload[12]
	ipr := payload[13]
	if compression != 7 {
		return errCorrupted("ihdr compression type %d", compression)
	}
	if unkC > 1 || ipr > 1 {
		return errCorrupted("ihdr flags out of range")
	}
	img.pixelHeight = int(height)
	img.pixelWidth = int(width)
	return nil
}

// readColorSpec decodes a colr payload: method(1) precedence(1)
// approximation(1), then an enumerated colorspace or an ICC profile.
func (img *Image) readColorSpec(payload []byte) error {
	if len(payload) < 3 {
		return errCorrupted("colr payload too short")
	}
	switch method := payload[0]; method {
	case 1: // enumerated colorspace
		if len(payload) < 7 {
			return errCorrupted("colr payload too short")
		}
		if cs := be32(payload[3:7]); cs != 16 && cs != 17 {
			return errCorrupted("enumerated colorspace %d", cs)
		}
	case 2: // restricted ICC profile
		icc := make([]byte, len(payload)-3)
		copy(icc, payload[3:])
		img.iccProfile = icc
	}
	return nil
}

// readUUIDBox reads the 16-byte UUID and dispatches the payload of a
// recognized metadata box. Unknown UUIDs leave the model untouched.
func (img *Image) readUUIDBox(s *streamReader, length uint32) error {
	if length < boxHeaderSize+uuidSize {
		return nil
	}
	var uuid [uuidSize]byte
	s.readBytes(uuid[:])

	payload := make([]byte, length-boxHeaderSize-uuidSize)
	s.readBytes(payload)

	switch uuid {
	case uuidExif:
		img.readExifPayload(payload)
	case uuidIPTC:
		img.readIptcPayload(payload)
	case uuidXMP:
		img.readXMPPayload(payload)
	}
	return nil
}

// readExifPayload locates the TIFF header inside an Exif UUID payload and
// hands the rest to the TIFF decoder. Decode failures clear the Exif model.
func (img *Image) readExifPayload(payload []byte) {
	if len(payload) <= 8 {
		img.warnf("Failed to decode Exif metadata.")
		img.exif = ExifData{}
		return
	}

	pos := -1
	if payload[0] == payload[1] && (payload[0] == 'I' || payload[0] == 'M') {
		pos = 0
	} else if i := bytes.Index(payload, exifPreamble); i >= 0 {
		pos = i + len(exifPreamble)
		img.warnf("Reading non-standard UUID-EXIF_bad box")
	}
	if pos < 0 {
		return
	}

	var d ExifData
	if err := d.decode(payload[pos:]); err != nil {
		img.warnf("Failed to decode Exif metadata.")
		img.exif = ExifData{}
		return
	}
	img.exif = d
	img.byteOrder = d.order
}

// readIptcPayload decodes an IIM byte sequence. Decode failures clear the
// IPTC model.
func (img *Image) readIptcPayload(payload []byte) {
	var d IptcData
	if err := d.decode(payload); err != nil {
		img.warnf("Failed to decode IPTC metadata.")
		img.iptc = IptcData{}
		return
	}
	img.iptc = d
}

// readXMPPayload stores the XMP packet, trimming anything before the first
// '<'. The raw packet is retained even when it fails to parse.
func (img *Image) readXMPPayload(payload []byte) {
	packet := string(payload)
	if idx := indexByte(packet, '<'); idx > 0 {
		img.warnf("Removing %d characters from the beginning of the XMP packet", idx)
		packet = packet[idx:]
	}
	img.xmpPacket = packet
	img.fromPacket = true
	img.xmp = XMPData{}
	if len(packet) > 0 {
		if err := img.xmp.decode(packet); err != nil {
			img.warnf("Failed to decode XMP metadata.")
		}
	}
}
