// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

package jp2meta

import (
	"fmt"
	"io"
	"strings"

	tiff66 "github.com/garyhouston/tiff66"
)

// PrintOption selects what PrintStructure does with the box tree.
type PrintOption int

const (
	// PrintBasic lists the outer boxes.
	PrintBasic PrintOption = iota
	// PrintRecursive also lists jp2h sub-boxes and descends into Exif and
	// IPTC payloads.
	PrintRecursive
	// PrintICCProfile writes the raw ICC profile bytes to the output.
	PrintICCProfile
	// PrintXMP writes the raw XMP packet bytes to the output.
	PrintXMP
	// PrintIptcErase walks the structure without printing; the walk is used
	// to locate IPTC UUID boxes for removal.
	PrintIptcErase
)

// PrintStructure walks the box tree and reports it on out according to
// option. depth indents nested structures when descending recursively.
func (img *Image) PrintStructure(out io.Writer, option PrintOption, depth int) (err error) {
	if _, err := img.io.Seek(0, io.SeekStart); err != nil {
		return wrapError(CodeDataSourceOpenFailed, err)
	}
	s := newStreamReader(img.io)
	defer s.recoverStop(&err)

	if !IsJP2(img.io, false) {
		if s.size() < int64(len(jp2Signature)) {
			return newError(CodeFailedToReadImageData, "stream too short")
		}
		return newError(CodeNotAJpeg, "no JP2 signature")
	}

	bPrint := option == PrintBasic || option == PrintRecursive
	bICC := option == PrintICCProfile

	if bPrint {
		fmt.Fprintln(out, "STRUCTURE OF JPEG2000 FILE:")
		fmt.Fprintln(out, " address |   length | box       | data")
	}

	signatureSeen := false
	for {
		hdr, herr := s.readBoxHeaderE()
		if herr != nil {
			if herr == io.EOF {
				return nil
			}
			return wrapError(CodeFailedToReadImageData, herr)
		}
		pos := s.pos()
		if int64(hdr.length) > boxHeaderSize+s.size()-pos {
			return errCorrupted("box %s length %d exceeds stream size", hdr.typ, hdr.length)
		}
		if hdr.length > 0 && hdr.length < boxHeaderSize {
			return errCorrupted("box %s length %d below header size", hdr.typ, hdr.length)
		}

		if bPrint {
			fmt.Fprintf(out, "%8d | %8d | %s      | ", pos-boxHeaderSize, hdr.length, hdr.typ)
		}
		if hdr.typ == fccCodestream {
			if bPrint {
				fmt.Fprintln(out)
			}
			return nil
		}

		switch hdr.typ {
		case fccSignature:
			if signatureSeen {
				return errCorrupted("duplicate signature box")
			}
			signatureSeen = true
			if bPrint {
				fmt.Fprintln(out)
			}

		case fccFileType:
			payload := s.readBytesVolatile(int(hdr.length - boxHeaderSize))
			if !isValidFileType(payload) {
				return errCorrupted("invalid ftyp box")
			}
			if bPrint {
				fmt.Fprintln(out)
			}

		case fccJP2Header:
			if bPrint {
				fmt.Fprintln(out)
			}
			if err := img.printJP2Header(s, out, pos-boxHeaderSize+int64(hdr.length), option == PrintRecursive, bICC); err != nil {
				return err
			}

		case fccUUID:
			if err := img.printUUIDBox(s, out, hdr.length, option, depth); err != nil {
				return err
			}

		default:
			if bPrint {
				fmt.Fprintln(out)
			}
		}

		if hdr.length == 0 {
			// Tail-extending box: nothing follows it.
			return nil
		}
		s.seek(pos - boxHeaderSize + int64(hdr.length))
	}
}

func (img *Image) printJP2Header(s *streamReader, out io.Writer, boxEnd int64, bPrint, bICC bool) error {
	for s.pos()+boxHeaderSize <= boxEnd {
		subStart := s.pos()
		hdr, err := s.readBoxHeaderE()
		if err != nil {
			return wrapError(CodeFailedToReadImageData, err)
		}
		if hdr.length < boxHeaderSize || int64(hdr.length) > boxEnd-subStart {
			return errCorrupted("jp2h sub-box %s length %d out of bounds", hdr.typ, hdr.length)
		}
		payload := s.readBytesVolatile(int(hdr.length - boxHeaderSize))

		if bPrint {
			fmt.Fprintf(out, "%8d | %8d |  sub:%s | %s", subStart, hdr.length, hdr.typ, printablePreview(payload, 30))
		}

		switch hdr.typ {
		case fccImageHeader:
			if hdr.length != ihdrBoxLength {
				return errCorrupted("ihdr length %d", hdr.length)
			}
			compression := payload[11]
			unkC := payload[12]
			ipr := payload[13]
			if compression != 7 || unkC > 1 || ipr > 1 {
				return errCorrupted("ihdr fields out of range")
			}

		case fccColorSpec:
			if len(payload) < 7 {
				return errCorrupted("colr payload too short")
			}
			if payload[0] == 1 {
				if cs := be32(payload[3:7]); cs != 16 && cs != 17 {
					return errCorrupted("enumerated colorspace %d", cs)
				}
			} else {
				iccLength := len(payload) - 3
				if bPrint {
					fmt.Fprintf(out, " | iccLength:%d", iccLength)
				}
				if bICC {
					if _, err := out.Write(payload[3:]); err != nil {
						return wrapError(CodeImageWriteFailed, err)
					}
				}
			}
		}

		if bPrint {
			fmt.Fprintln(out)
		}
		s.seek(subStart + int64(hdr.length))
	}
	return nil
}

func (img *Image) printUUIDBox(s *streamReader, out io.Writer, length uint32, option PrintOption, depth int) error {
	bPrint := option == PrintBasic || option == PrintRecursive
	bRecursive := option == PrintRecursive
	bXMP := option == PrintXMP

	if length < boxHeaderSize+uuidSize {
		return errCorrupted("uuid box too short")
	}
	var uuid [uuidSize]byte
	s.readBytes(uuid[:])

	isExif := uuid == uuidExif
	isIPTC := uuid == uuidIPTC
	isXMP := uuid == uuidXMP

	if bPrint {
		switch {
		case isExif:
			fmt.Fprint(out, "Exif: ")
		case isIPTC:
			fmt.Fprint(out, "IPTC: ")
		case isXMP:
			fmt.Fprint(out, "XMP : ")
		default:
			fmt.Fprint(out, "????: ")
		}
	}

	payload := make([]byte, length-boxHeaderSize-uuidSize)
	s.readBytes(payload)

	if bPrint {
		fmt.Fprintln(out, printablePreview(payload, 40))
	}

	if isExif && bRecursive && len(payload) > 8 {
		if payload[0] == payload[1] && (payload[0] == 'I' || payload[0] == 'M') {
			var d ExifData
			if err := d.decode(payload); err == nil {
				printTIFFStructure(out, &d, depth+1)
			}
		}
	}

	if isIPTC && bRecursive {
		var d IptcData
		if err := d.decode(payload); err == nil {
			indent := strings.Repeat(" ", 2*(depth+1))
			for _, line := range strings.Split(strings.TrimRight(d.String(), "\n"), "\n") {
				fmt.Fprintln(out, indent+line)
			}
		}
	}

	if isXMP && bXMP {
		if _, err := out.Write(payload); err != nil {
			return wrapError(CodeImageWriteFailed, err)
		}
	}
	return nil
}

// printTIFFStructure lists the IFD tree of an Exif payload, one field per
// line.
func printTIFFStructure(out io.Writer, d *ExifData, depth int) {
	indent := strings.Repeat(" ", 2*depth)
	var walk func(node *tiff66.IFDNode, name string)
	walk = func(node *tiff66.IFDNode, name string) {
		if node == nil {
			return
		}
		fmt.Fprintf(out, "%s%s IFD: %d entries\n", indent, name, len(node.IFD.Fields))
		for _, f := range node.IFD.Fields {
			tagName, ok := tiff66.TagNames[f.Tag]
			if !ok {
				tagName = fmt.Sprintf("0x%04x", uint16(f.Tag))
			}
			fmt.Fprintf(out, "%s  %-28s %-9s count %d\n", indent, tagName, f.Type.Name(), f.Count)
		}
		for _, sub := range node.SubIFDs {
			walk(sub.Node, node.Space.Name()+"/sub")
		}
		walk(node.Next, "next")
	}
	walk(d.root, d.root.Space.Name())
}
