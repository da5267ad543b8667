// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

package jp2meta

import (
	"bytes"
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/go-cmp/cmp"
)

// boxTypes walks the outer boxes of a serialized JP2 and returns their
// types in order. The signature prefix counts as the first box.
func boxTypes(t testing.TB, data []byte) []string {
	t.Helper()
	var types []string
	i := 0
	for i+boxHeaderSize <= len(data) {
		hdr := decodeBoxHeader(data[i : i+boxHeaderSize])
		types = append(types, hdr.typ.String())
		if hdr.length == 0 {
			break
		}
		if hdr.length < boxHeaderSize {
			t.Fatalf("box %s at %d has length %d", hdr.typ, i, hdr.length)
		}
		i += int(hdr.length)
	}
	return types
}

// uuidPayloads returns the payloads of all UUID boxes carrying the given
// UUID.
func uuidPayloads(t testing.TB, data []byte, uuid [uuidSize]byte) [][]byte {
	t.Helper()
	var payloads [][]byte
	i := 0
	for i+boxHeaderSize <= len(data) {
		hdr := decodeBoxHeader(data[i : i+boxHeaderSize])
		if hdr.length < boxHeaderSize {
			break
		}
		end := i + int(hdr.length)
		if hdr.typ == fccUUID && end <= len(data) && int(hdr.length) >= boxHeaderSize+uuidSize {
			if bytes.Equal(data[i+boxHeaderSize:i+boxHeaderSize+uuidSize], uuid[:]) {
				payloads = append(payloads, data[i+boxHeaderSize+uuidSize:end])
			}
		}
		i = end
	}
	return payloads
}

func TestWriteRoundTripWithoutMutation(t *testing.T) {
	c := qt.New(t)

	var iptc IptcData
	iptc.AddString(105, "Headline")

	data := makeJP2(
		makeFtyp(),
		makeJP2H(makeIhdr(2, 2), makeColrEnum(16)),
		makeUUIDBox(uuidExif, testTIFF),
		makeUUIDBox(uuidIPTC, iptc.encode()),
		makeBox(fccCodestream, []byte{0xff, 0x4f}),
	)

	mem := NewMemIO(append([]byte(nil), data...))
	img, err := New(Options{IO: mem})
	c.Assert(err, qt.IsNil)
	c.Assert(img.ReadMetadata(), qt.IsNil)
	c.Assert(img.WriteMetadata(), qt.IsNil)

	c.Assert(boxTypes(t, mem.Bytes()), qt.DeepEquals, boxTypes(t, data))

	// Read the rewritten stream back; the models must survive unchanged.
	img2, _ := newTestImage(t, mem.Bytes())
	c.Assert(img2.ReadMetadata(), qt.IsNil)
	c.Assert(cmp.Diff(img.Iptc().Datasets(), img2.Iptc().Datasets()), qt.Equals, "")
	c.Assert(img2.Exif().Count(), qt.Equals, img.Exif().Count())
}

func TestWriteMetadataReplacementIdempotence(t *testing.T) {
	c := qt.New(t)

	mem := NewMemIO(nil)
	img, err := New(Options{IO: mem, Create: true})
	c.Assert(err, qt.IsNil)
	c.Assert(img.ReadMetadata(), qt.IsNil)

	c.Assert(img.SetExif(testTIFF), qt.IsNil)
	img.Iptc().AddString(105, "Headline")
	img.Iptc().AddString(25, "keyword-one")
	img.SetXMPProperties([]XMPProperty{
		{Name: "CreatorTool", Namespace: "http://ns.adobe.com/xap/1.0/", Value: "jp2meta"},
	})

	c.Assert(img.WriteMetadata(), qt.IsNil)

	img2, warnings := newTestImage(t, mem.Bytes())
	c.Assert(img2.ReadMetadata(), qt.IsNil)
	c.Assert(*warnings, qt.HasLen, 0)

	desc, ok := img2.Exif().Find(0x010e)
	c.Assert(ok, qt.IsTrue)
	c.Assert(string(trimBytesNulls(desc.Data)), qt.Equals, "Go!")

	headline, ok := img2.Iptc().GetString(105)
	c.Assert(ok, qt.IsTrue)
	c.Assert(headline, qt.Equals, "Headline")

	tool, ok := img2.XMP().Get("CreatorTool")
	c.Assert(ok, qt.IsTrue)
	c.Assert(tool.Value, qt.Equals, "jp2meta")
}

func TestWriteMetadataBoxOrderAfterHeader(t *testing.T) {
	c := qt.New(t)

	mem := NewMemIO(nil)
	img, err := New(Options{IO: mem, Create: true})
	c.Assert(err, qt.IsNil)
	c.Assert(img.ReadMetadata(), qt.IsNil)

	c.Assert(img.SetExif(testTIFF), qt.IsNil)
	img.Iptc().AddString(105, "h")
	img.SetXMPProperties([]XMPProperty{{Name: "Rating", Namespace: "http://ns.adobe.com/xap/1.0/", Value: "5"}})
	c.Assert(img.WriteMetadata(), qt.IsNil)

	types := boxTypes(t, mem.Bytes())
	c.Assert(types, qt.DeepEquals, []string{"jP  ", "ftyp", "jp2h", "uuid", "uuid", "uuid", "jp2c"})

	out := mem.Bytes()
	c.Assert(uuidPayloads(t, out, uuidExif), qt.HasLen, 1)
	c.Assert(uuidPayloads(t, out, uuidIPTC), qt.HasLen, 1)
	c.Assert(uuidPayloads(t, out, uuidXMP), qt.HasLen, 1)
}

func TestWriteICCRoundTrip(t *testing.T) {
	c := qt.New(t)

	mem := NewMemIO(nil)
	img, err := New(Options{IO: mem, Create: true})
	c.Assert(err, qt.IsNil)
	c.Assert(img.ReadMetadata(), qt.IsNil)
	c.Assert(img.ICCProfile(), qt.IsNil)

	icc := bytes.Repeat([]byte{0xab, 0xcd, 0xef}, 33)
	img.SetICCProfile(icc)
	c.Assert(img.WriteMetadata(), qt.IsNil)

	img2, _ := newTestImage(t, mem.Bytes())
	c.Assert(img2.ReadMetadata(), qt.IsNil)
	c.Assert(img2.ICCProfile(), qt.DeepEquals, icc)
}

func TestWriteICCGrowsHeader(t *testing.T) {
	c := qt.New(t)

	icc := bytes.Repeat([]byte{0x11}, 40)
	data := makeJP2(
		makeFtyp(),
		makeJP2H(makeIhdr(1, 1), makeColrEnum(16)),
		makeBox(fccCodestream, nil),
	)

	mem := NewMemIO(append([]byte(nil), data...))
	img, err := New(Options{IO: mem})
	c.Assert(err, qt.IsNil)
	c.Assert(img.ReadMetadata(), qt.IsNil)
	img.SetICCProfile(icc)
	c.Assert(img.WriteMetadata(), qt.IsNil)

	// Original jp2h: 8 + ihdr(22) + colr(8+7). Rewritten: 8 + ihdr(22) +
	// colr(8+3+40).
	out := mem.Bytes()
	i := len(jp2Signature) + len(makeFtyp())
	hdr := decodeBoxHeader(out[i : i+boxHeaderSize])
	c.Assert(hdr.typ, qt.Equals, fccJP2Header)
	c.Assert(hdr.length, qt.Equals, uint32(8+22+8+3+len(icc)))
}

func TestWriteStripAndReplace(t *testing.T) {
	c := qt.New(t)

	var iptc IptcData
	iptc.AddString(105, "to be removed")
	data := makeJP2(
		makeFtyp(),
		makeJP2H(makeIhdr(1, 1), makeColrEnum(16)),
		makeUUIDBox(uuidExif, testTIFF),
		makeUUIDBox(uuidIPTC, iptc.encode()),
		makeUUIDBox(uuidXMP, []byte("<x/>")),
		makeBox(fccCodestream, nil),
	)

	mem := NewMemIO(append([]byte(nil), data...))
	img, err := New(Options{IO: mem})
	c.Assert(err, qt.IsNil)
	c.Assert(img.ReadMetadata(), qt.IsNil)
	img.ClearMetadata()
	c.Assert(img.WriteMetadata(), qt.IsNil)

	out := mem.Bytes()
	c.Assert(uuidPayloads(t, out, uuidExif), qt.HasLen, 0)
	c.Assert(uuidPayloads(t, out, uuidIPTC), qt.HasLen, 0)
	c.Assert(uuidPayloads(t, out, uuidXMP), qt.HasLen, 0)
	c.Assert(boxTypes(t, out), qt.DeepEquals, []string{"jP  ", "ftyp", "jp2h", "jp2c"})
}

func TestWriteStripInsertsPlaceholderColr(t *testing.T) {
	c := qt.New(t)

	icc := []byte{9, 9, 9, 9}
	data := makeJP2(
		makeFtyp(),
		makeJP2H(makeIhdr(1, 1), makeColrICC(icc)),
		makeBox(fccCodestream, nil),
	)

	mem := NewMemIO(append([]byte(nil), data...))
	img, err := New(Options{IO: mem})
	c.Assert(err, qt.IsNil)
	c.Assert(img.ReadMetadata(), qt.IsNil)
	img.SetICCProfile(nil)
	c.Assert(img.WriteMetadata(), qt.IsNil)

	out := mem.Bytes()
	i := len(jp2Signature) + len(makeFtyp())
	hdr := decodeBoxHeader(out[i : i+boxHeaderSize])
	c.Assert(hdr.typ, qt.Equals, fccJP2Header)
	c.Assert(hdr.length, qt.Equals, uint32(8+22+8+len(colrPlaceholder)))

	colr := out[i+8+22:]
	c.Assert(decodeBoxHeader(colr[:8]).typ, qt.Equals, fccColorSpec)
	c.Assert(colr[8:8+len(colrPlaceholder)], qt.DeepEquals, colrPlaceholder)
}

func TestWriteUnknownUUIDPreserved(t *testing.T) {
	c := qt.New(t)

	unknown := [uuidSize]byte{0x42, 0x42, 0x42, 0x42}
	data := makeJP2(
		makeFtyp(),
		makeJP2H(makeIhdr(1, 1), makeColrEnum(16)),
		makeUUIDBox(unknown, []byte("keep me")),
		makeBox(fccCodestream, nil),
	)

	mem := NewMemIO(append([]byte(nil), data...))
	img, err := New(Options{IO: mem})
	c.Assert(err, qt.IsNil)
	c.Assert(img.ReadMetadata(), qt.IsNil)
	c.Assert(img.WriteMetadata(), qt.IsNil)

	payloads := uuidPayloads(t, mem.Bytes(), unknown)
	c.Assert(payloads, qt.HasLen, 1)
	c.Assert(string(payloads[0]), qt.Equals, "keep me")
}

func TestWriteXMPPacketAuthoritative(t *testing.T) {
	c := qt.New(t)

	mem := NewMemIO(nil)
	img, err := New(Options{IO: mem, Create: true})
	c.Assert(err, qt.IsNil)
	c.Assert(img.ReadMetadata(), qt.IsNil)

	packet := `<x:xmpmeta xmlns:x="adobe:ns:meta/"><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"/></x:xmpmeta>`
	img.SetXMPPacket(packet)
	c.Assert(img.WriteMetadata(), qt.IsNil)

	payloads := uuidPayloads(t, mem.Bytes(), uuidXMP)
	c.Assert(payloads, qt.HasLen, 1)
	c.Assert(string(payloads[0]), qt.Equals, packet)
}

func TestWriteNotAJP2(t *testing.T) {
	c := qt.New(t)

	img, _ := newTestImage(t, []byte("definitely not a jp2 stream here"))
	err := img.WriteMetadata()
	c.Assert(IsCode(err, CodeNoImageInInputData), qt.IsTrue)
}

func TestWriteTailExtendingBoxCopied(t *testing.T) {
	c := qt.New(t)

	tail := make([]byte, 40)
	boxHeader{length: 0, typ: fccCodestream}.encode(tail)
	data := makeJP2(makeFtyp(), makeJP2H(makeIhdr(1, 1), makeColrEnum(16)), tail)

	mem := NewMemIO(append([]byte(nil), data...))
	img, err := New(Options{IO: mem})
	c.Assert(err, qt.IsNil)
	c.Assert(img.ReadMetadata(), qt.IsNil)
	c.Assert(img.WriteMetadata(), qt.IsNil)

	out := mem.Bytes()
	// The tail box keeps its zero length field and its body.
	c.Assert(out[len(out)-len(tail):], qt.DeepEquals, tail)
}

func TestWriteCorruptBoxLength(t *testing.T) {
	c := qt.New(t)

	bad := make([]byte, 8)
	binary.BigEndian.PutUint32(bad[:4], 4) // below header size
	copy(bad[4:], "jp2c")
	data := makeJP2(makeFtyp(), bad)

	mem := NewMemIO(append([]byte(nil), data...))
	img, err := New(Options{IO: mem})
	c.Assert(err, qt.IsNil)
	err = img.WriteMetadata()
	c.Assert(IsCode(err, CodeCorruptedMetadata), qt.IsTrue)
}
