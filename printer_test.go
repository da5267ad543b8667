// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

package jp2meta

import (
	"bytes"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestPrintStructureBasic(t *testing.T) {
	c := qt.New(t)

	data := makeJP2(
		makeFtyp(),
		makeJP2H(makeIhdr(1, 1), makeColrEnum(16)),
		makeUUIDBox(uuidExif, testTIFF),
		makeBox(fccCodestream, nil),
	)
	img, _ := newTestImage(t, data)

	var out bytes.Buffer
	c.Assert(img.PrintStructure(&out, PrintBasic, 0), qt.IsNil)

	s := out.String()
	c.Assert(strings.Contains(s, "STRUCTURE OF JPEG2000 FILE"), qt.IsTrue)
	c.Assert(strings.Contains(s, "jP  "), qt.IsTrue)
	c.Assert(strings.Contains(s, "ftyp"), qt.IsTrue)
	c.Assert(strings.Contains(s, "jp2h"), qt.IsTrue)
	c.Assert(strings.Contains(s, "Exif: "), qt.IsTrue)
	c.Assert(strings.Contains(s, "jp2c"), qt.IsTrue)
	// Basic mode does not descend into the header.
	c.Assert(strings.Contains(s, "sub:ihdr"), qt.IsFalse)
}

func TestPrintStructureRecursive(t *testing.T) {
	c := qt.New(t)

	var iptc IptcData
	iptc.AddString(105, "Headline")

	data := makeJP2(
		makeFtyp(),
		makeJP2H(makeIhdr(1, 1), makeColrEnum(16)),
		makeUUIDBox(uuidExif, testTIFF),
		makeUUIDBox(uuidIPTC, iptc.encode()),
		makeBox(fccCodestream, nil),
	)
	img, _ := newTestImage(t, data)

	var out bytes.Buffer
	c.Assert(img.PrintStructure(&out, PrintRecursive, 0), qt.IsNil)

	s := out.String()
	c.Assert(strings.Contains(s, "sub:ihdr"), qt.IsTrue)
	c.Assert(strings.Contains(s, "sub:colr"), qt.IsTrue)
	c.Assert(strings.Contains(s, "ImageDescription"), qt.IsTrue)
	c.Assert(strings.Contains(s, "Headline"), qt.IsTrue)
}

func TestPrintStructureICCExtract(t *testing.T) {
	c := qt.New(t)

	icc := []byte{0x00, 0x00, 0x01, 0x90, 'a', 'c', 's', 'p'}
	data := makeJP2(
		makeFtyp(),
		makeJP2H(makeIhdr(1, 1), makeColrICC(icc)),
		makeBox(fccCodestream, nil),
	)
	img, _ := newTestImage(t, data)

	var out bytes.Buffer
	c.Assert(img.PrintStructure(&out, PrintICCProfile, 0), qt.IsNil)
	c.Assert(out.Bytes(), qt.DeepEquals, icc)
}

func TestPrintStructureXMPExtract(t *testing.T) {
	c := qt.New(t)

	packet := `<x:xmpmeta xmlns:x="adobe:ns:meta/"/>`
	data := makeJP2(
		makeFtyp(),
		makeJP2H(makeIhdr(1, 1), makeColrEnum(16)),
		makeUUIDBox(uuidXMP, []byte(packet)),
		makeBox(fccCodestream, nil),
	)
	img, _ := newTestImage(t, data)

	var out bytes.Buffer
	c.Assert(img.PrintStructure(&out, PrintXMP, 0), qt.IsNil)
	c.Assert(out.String(), qt.Equals, packet)
}

func TestPrintStructureIptcErase(t *testing.T) {
	c := qt.New(t)

	var iptc IptcData
	iptc.AddString(105, "h")
	data := makeJP2(
		makeFtyp(),
		makeJP2H(makeIhdr(1, 1), makeColrEnum(16)),
		makeUUIDBox(uuidIPTC, iptc.encode()),
		makeBox(fccCodestream, nil),
	)
	img, _ := newTestImage(t, data)

	var out bytes.Buffer
	c.Assert(img.PrintStructure(&out, PrintIptcErase, 0), qt.IsNil)
	c.Assert(out.Len(), qt.Equals, 0)
}

func TestPrintStructureNotAJP2(t *testing.T) {
	c := qt.New(t)

	img, _ := newTestImage(t, []byte("some random bytes, not a jp2 file"))
	var out bytes.Buffer
	err := img.PrintStructure(&out, PrintBasic, 0)
	c.Assert(IsCode(err, CodeNotAJpeg), qt.IsTrue)
}

func TestPrintStructureCorruptSubBox(t *testing.T) {
	c := qt.New(t)

	// A jp2h whose sub-box length overruns the enclosing box.
	sub := makeIhdr(1, 1)
	boxHeader{length: 1000, typ: fccImageHeader}.encode(sub)
	data := makeJP2(makeFtyp(), makeJP2H(sub, makeColrEnum(16)))
	img, _ := newTestImage(t, data)

	var out bytes.Buffer
	err := img.PrintStructure(&out, PrintRecursive, 0)
	c.Assert(IsCode(err, CodeCorruptedMetadata), qt.IsTrue)
}
