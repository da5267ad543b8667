// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

package jp2meta

import (
	"encoding/binary"
	"fmt"

	tiff66 "github.com/garyhouston/tiff66"
)

// ExifData is the Exif model: a TIFF IFD tree plus the byte order it was
// serialized with. The zero value is empty.
type ExifData struct {
	order binary.ByteOrder
	root  *tiff66.IFDNode
}

// Empty reports whether no Exif data is present.
func (d *ExifData) Empty() bool {
	return d.root == nil
}

// Root returns the root IFD node, or nil when empty.
func (d *ExifData) Root() *tiff66.IFDNode {
	return d.root
}

// ByteOrder returns the TIFF byte order, or nil when empty.
func (d *ExifData) ByteOrder() binary.ByteOrder {
	return d.order
}

// SetRoot replaces the IFD tree.
func (d *ExifData) SetRoot(root *tiff66.IFDNode, order binary.ByteOrder) {
	d.root = root
	d.order = order
}

// Count returns the number of fields in the tree.
func (d *ExifData) Count() int {
	return countFields(d.root)
}

func countFields(node *tiff66.IFDNode) int {
	if node == nil {
		return 0
	}
	n := len(node.IFD.Fields)
	for _, sub := range node.SubIFDs {
		n += countFields(sub.Node)
	}
	n += countFields(node.Next)
	return n
}

// Find returns the first field with the given tag in the root IFD chain.
func (d *ExifData) Find(tag tiff66.Tag) (tiff66.Field, bool) {
	for node := d.root; node != nil; node = node.Next {
		for _, f := range node.IFD.Fields {
			if f.Tag == tag {
				return f, true
			}
		}
	}
	return tiff66.Field{}, false
}

// decode parses a raw TIFF stream (starting at the byte-order mark) into
// the model. The tiff66 reader panics on some malformed inputs; those are
// converted to errors here.
func (d *ExifData) decode(buf []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoding TIFF: %v", r)
		}
	}()

	if len(buf) < 8 {
		return fmt.Errorf("TIFF stream too short: %d bytes", len(buf))
	}
	valid, order, ifdPos := tiff66.GetHeader(buf)
	if !valid {
		return fmt.Errorf("invalid TIFF header")
	}
	root, err := tiff66.GetIFDTree(buf, order, ifdPos, tiff66.TIFFSpace)
	if err != nil {
		return err
	}
	d.order = order
	d.root = root
	return nil
}

// encode serializes the model back into a raw TIFF stream with the 0th IFD
// at offset 8.
func (d *ExifData) encode() ([]byte, error) {
	if d.root == nil {
		return nil, nil
	}
	order := d.order
	if order == nil {
		order = binary.LittleEndian
	}
	d.root.Fix(order)
	buf := make([]byte, 8+d.root.TreeSize(order))
	tiff66.PutHeader(buf, order, 8)
	next, err := d.root.PutIFDTree(buf, 8, order)
	if err != nil {
		return nil, err
	}
	return buf[:next], nil
}
