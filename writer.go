// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

package jp2meta

import (
	"bytes"
	"encoding/binary"
	"io"
)

// WriteMetadata rewrites the backing store: unmodified boxes are copied
// verbatim, the JP2 Header is re-encoded with the current ICC profile, old
// metadata UUID boxes are stripped, and fresh Exif, IPTC and XMP UUID boxes
// are emitted immediately after the header. The rewrite happens into an
// in-memory buffer; only on success is the backing store replaced.
func (img *Image) WriteMetadata() (err error) {
	if _, err := img.io.Seek(0, io.SeekStart); err != nil {
		return wrapError(CodeDataSourceOpenFailed, err)
	}
	s := newStreamReader(img.io)
	defer s.recoverStop(&err)

	if !IsJP2(img.io, true) {
		if s.size() < int64(len(jp2Signature)) {
			return newError(CodeInputDataReadFailed, "stream too short")
		}
		return newError(CodeNoImageInInputData, "no JP2 signature")
	}

	var out bytes.Buffer
	out.Write(jp2Signature)
	if err := img.writeBoxes(s, &out); err != nil {
		return err
	}

	// Transfer the rewritten stream onto the backing store.
	if _, err := img.io.Seek(0, io.SeekStart); err != nil {
		return wrapError(CodeImageWriteFailed, err)
	}
	if err := img.io.Truncate(0); err != nil {
		return wrapError(CodeImageWriteFailed, err)
	}
	if _, err := img.io.Write(out.Bytes()); err != nil {
		return wrapError(CodeImageWriteFailed, err)
	}
	return nil
}

// writeBoxes drives the outer box loop of the rewrite. s is positioned just
// past the signature.
func (img *Image) writeBoxes(s *streamReader, out *bytes.Buffer) error {
	size := s.size()

	for s.pos() < size {
		var rawHeader [boxHeaderSize]byte
		s.readBytes(rawHeader[:])
		hdr := decodeBoxHeader(rawHeader[:])

		length := int64(hdr.length)
		if length == 0 {
			// Tail-extending box: spans the rest of the stream.
			length = size - s.pos() + boxHeaderSize
		}
		if hdr.length == 1 {
			return errCorrupted("extended-length box not supported")
		}
		if length < boxHeaderSize {
			return errCorrupted("box %s length %d below header size", hdr.typ, length)
		}
		if length-boxHeaderSize > size-s.pos() {
			return errCorrupted("box %s length %d exceeds stream size", hdr.typ, length)
		}

		// Whole box: original header bytes up front, body after.
		boxBuf := make([]byte, length)
		copy(boxBuf, rawHeader[:])
		s.readBytes(boxBuf[boxHeaderSize:])

		switch hdr.typ {
		case fccJP2Header:
			newBuf, err := img.encodeJP2Header(boxBuf)
			if err != nil {
				return err
			}
			out.Write(newBuf)
			if err := img.writeMetadataBoxes(out); err != nil {
				return err
			}

		case fccUUID:
			if len(boxBuf) < boxHeaderSize+uuidSize {
				return errCorrupted("uuid box too short")
			}
			var uuid [uuidSize]byte
			copy(uuid[:], boxBuf[boxHeaderSize:])
			if uuid == uuidExif || uuid == uuidIPTC || uuid == uuidXMP {
				// Stale metadata box; fresh ones follow the header.
				break
			}
			out.Write(boxBuf)

		default:
			out.Write(boxBuf)
		}
	}
	return nil
}

// writeMetadataBoxes emits the fresh metadata UUID boxes, always in the
// order Exif, IPTC, XMP.
func (img *Image) writeMetadataBoxes(out *bytes.Buffer) error {
	if !img.exif.Empty() {
		raw, err := img.exif.encode()
		if err != nil {
			return wrapError(CodeImageWriteFailed, err)
		}
		if len(raw) > 0 {
			writeUUIDBox(out, uuidExif, raw)
		}
	}

	if !img.iptc.Empty() {
		if raw := img.iptc.encode(); len(raw) > 0 {
			writeUUIDBox(out, uuidIPTC, raw)
		}
	}

	if !img.fromPacket {
		img.xmpPacket = img.xmp.buildPacket()
	}
	if len(img.xmpPacket) > 0 {
		writeUUIDBox(out, uuidXMP, []byte(img.xmpPacket))
	}
	return nil
}

// writeUUIDBox frames payload as length(4 BE) | "uuid" | UUID(16) | payload.
func writeUUIDBox(out *bytes.Buffer, uuid [uuidSize]byte, payload []byte) {
	var hdr [boxHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[:4], uint32(boxHeaderSize+uuidSize+len(payload)))
	copy(hdr[4:], fccUUID[:])
	out.Write(hdr[:])
	out.Write(uuid[:])
	out.Write(payload)
}

// encodeJP2Header rebuilds a jp2h box: sub-boxes are copied verbatim up to
// the first colr, which is replaced by either an enumerated-colorspace
// placeholder or the current ICC profile. Sub-boxes after colr are dropped,
// and the outer length is recomputed.
func (img *Image) encodeJP2Header(boxBuf []byte) ([]byte, error) {
	out := make([]byte, boxHeaderSize, len(boxBuf)+len(img.iccProfile)+boxHeaderSize+3)

	in := boxHeaderSize
	wroteColor := false
	for in < len(boxBuf) && !wroteColor {
		if len(boxBuf)-in < boxHeaderSize {
			return nil, errCorrupted("truncated jp2h sub-box header")
		}
		sub := decodeBoxHeader(boxBuf[in : in+boxHeaderSize])
		if sub.length < boxHeaderSize || int(sub.length) > len(boxBuf)-in {
			return nil, errCorrupted("jp2h sub-box %s length %d out of bounds", sub.typ, sub.length)
		}

		if sub.typ == fccColorSpec {
			wroteColor = true
			if len(img.iccProfile) == 0 {
				out = appendBoxHeader(out, uint32(boxHeaderSize+len(colrPlaceholder)), fccColorSpec)
				out = append(out, colrPlaceholder...)
			} else {
				out = appendBoxHeader(out, uint32(boxHeaderSize+3+len(img.iccProfile)), fccColorSpec)
				out = append(out, 0x02, 0x00, 0x00)
				out = append(out, img.iccProfile...)
			}
		} else {
			out = append(out, boxBuf[in:in+int(sub.length)]...)
		}
		in += int(sub.length)
	}

	boxHeader{length: uint32(len(out)), typ: fccJP2Header}.encode(out[:boxHeaderSize])
	return out, nil
}

func appendBoxHeader(b []byte, length uint32, typ fourCC) []byte {
	var hdr [boxHeaderSize]byte
	boxHeader{length: length, typ: typ}.encode(hdr[:])
	return append(b, hdr[:]...)
}
