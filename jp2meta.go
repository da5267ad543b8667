// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

// Package jp2meta reads and writes the Exif, IPTC, XMP and ICC color
// profile payloads embedded in JPEG-2000 (JP2) files.
//
// The engine walks the JP2 box tree, extracts the UUID-tagged metadata
// payloads and the Color Specification box into an in-memory model, and can
// emit a new JP2 file reflecting changes to that model. The codestream
// itself is carried through opaquely; image samples are never decoded.
package jp2meta

import (
	"bytes"
	"encoding/binary"
	"io"
)

// MimeTypeJP2 is the media type of the streams this package handles.
const MimeTypeJP2 = "image/jp2"

// defaultBoxLimit bounds the number of boxes visited in one walk, so a
// pathological file cannot keep the reader busy forever.
const defaultBoxLimit = 1000

// Options configures a new Image.
type Options struct {
	// IO is the backing store holding the JP2 stream. Required.
	IO IO

	// Create writes the blank JP2 template to IO before first use.
	Create bool

	// Warnf is called for recoverable oddities in the input (non-standard
	// Exif box layout, junk before the XMP packet, payloads that fail to
	// decode). Leave nil to suppress warnings.
	Warnf func(string, ...any)

	// BoxLimit overrides the maximum number of boxes visited per walk.
	// Defaults to 1000.
	BoxLimit int
}

// Image holds the metadata model of one JP2 stream. An Image is owned by a
// single goroutine; the engine does no background work.
type Image struct {
	io       IO
	warnf    func(string, ...any)
	boxLimit int

	pixelWidth  int
	pixelHeight int

	exif       ExifData
	iptc       IptcData
	xmp        XMPData
	xmpPacket  string
	fromPacket bool
	iccProfile []byte

	byteOrder binary.ByteOrder
}

// New returns an Image over opts.IO. With opts.Create, the blank JP2
// template is written to the store first.
func New(opts Options) (*Image, error) {
	if opts.IO == nil {
		return nil, newError(CodeDataSourceOpenFailed, "no backing store provided")
	}
	if opts.Warnf == nil {
		opts.Warnf = func(string, ...any) {}
	}
	if opts.BoxLimit == 0 {
		opts.BoxLimit = defaultBoxLimit
	}
	img := &Image{
		io:       opts.IO,
		warnf:    opts.Warnf,
		boxLimit: opts.BoxLimit,
	}
	if opts.Create {
		if _, err := opts.IO.Seek(0, io.SeekStart); err != nil {
			return nil, wrapError(CodeDataSourceOpenFailed, err)
		}
		if err := opts.IO.Truncate(0); err != nil {
			return nil, wrapError(CodeImageWriteFailed, err)
		}
		if _, err := opts.IO.Write(jp2Blank); err != nil {
			return nil, wrapError(CodeImageWriteFailed, err)
		}
	}
	return img, nil
}

// IsJP2 reads 12 bytes at the current position and reports whether they are
// the JP2 signature. Unless advance is true and the signature matched, the
// position is rewound to where the call started. On a read error the
// position is left wherever the reader left it.
func IsJP2(r io.ReadSeeker, advance bool) bool {
	var buf [12]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return false
	}
	matched := bytes.Equal(buf[:], jp2Signature)
	if !advance || !matched {
		r.Seek(-12, io.SeekCurrent)
	}
	return matched
}

// MimeType returns "image/jp2".
func (img *Image) MimeType() string {
	return MimeTypeJP2
}

// SetComment is not supported by the JP2 format.
func (img *Image) SetComment(string) error {
	return newError(CodeInvalidSettingForImage, "image comment")
}

// PixelWidth returns the image width from the ihdr box.
func (img *Image) PixelWidth() int {
	return img.pixelWidth
}

// PixelHeight returns the image height from the ihdr box.
func (img *Image) PixelHeight() int {
	return img.pixelHeight
}

// Exif returns the Exif model. The returned pointer is live; mutations are
// picked up by the next WriteMetadata.
func (img *Image) Exif() *ExifData {
	return &img.exif
}

// SetExif replaces the Exif model from a raw TIFF stream (bytes starting at
// the byte-order mark).
func (img *Image) SetExif(raw []byte) error {
	var d ExifData
	if err := d.decode(raw); err != nil {
		return err
	}
	img.exif = d
	img.byteOrder = d.order
	return nil
}

// Iptc returns the IPTC model.
func (img *Image) Iptc() *IptcData {
	return &img.iptc
}

// SetIptc replaces the IPTC model.
func (img *Image) SetIptc(datasets []IptcDataset) {
	img.iptc = IptcData{datasets: datasets}
}

// XMP returns the parsed XMP model.
func (img *Image) XMP() *XMPData {
	return &img.xmp
}

// XMPPacket returns the raw XMP packet.
func (img *Image) XMPPacket() string {
	return img.xmpPacket
}

// SetXMPPacket replaces the XMP packet. The packet becomes authoritative:
// WriteMetadata emits it as-is instead of regenerating one from the model.
func (img *Image) SetXMPPacket(packet string) {
	img.xmpPacket = packet
	img.fromPacket = true
	img.xmp = XMPData{}
	if packet != "" {
		if err := img.xmp.decode(packet); err != nil {
			img.warnf("Failed to decode XMP metadata.")
		}
	}
}

// ICCProfile returns the ICC profile bytes, or nil when none is defined.
func (img *Image) ICCProfile() []byte {
	return img.iccProfile
}

// SetICCProfile replaces the ICC profile. WriteMetadata embeds it in the
// colr sub-box of the JP2 Header.
func (img *Image) SetICCProfile(icc []byte) {
	img.iccProfile = icc
}

// ByteOrder returns the TIFF byte order recovered from the Exif payload,
// or nil when no Exif has been read.
func (img *Image) ByteOrder() binary.ByteOrder {
	return img.byteOrder
}

// ClearMetadata empties the Exif, IPTC and XMP models, so a following
// WriteMetadata strips all recognized metadata UUID boxes.
func (img *Image) ClearMetadata() {
	img.exif = ExifData{}
	img.iptc = IptcData{}
	img.xmp = XMPData{}
	img.xmpPacket = ""
	img.fromPacket = false
}
