// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

package jp2meta

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	iptcMarker = 0x1c

	iptcEnvelopeRecord    = 1
	iptcApplicationRecord = 2

	iptcDSCodedCharacterSet = 90
)

// IptcDataset is one IIM dataset: a record number, a dataset number and the
// raw value bytes.
type IptcDataset struct {
	Record  uint8
	DataSet uint8
	Value   []byte
}

// Name returns the dataset's field name, or a synthesized one for datasets
// this package has no name for.
func (ds IptcDataset) Name() string {
	if ds.Record == iptcApplicationRecord {
		if name, ok := iptcFieldNames[ds.DataSet]; ok {
			return name
		}
	}
	return fmt.Sprintf("Record%d.DataSet%d", ds.Record, ds.DataSet)
}

// IptcData is an ordered collection of IIM datasets. The zero value is
// empty.
type IptcData struct {
	datasets []IptcDataset
}

// Datasets returns the datasets in on-wire order.
func (d *IptcData) Datasets() []IptcDataset {
	return d.datasets
}

// Count returns the number of datasets.
func (d *IptcData) Count() int {
	return len(d.datasets)
}

// Empty reports whether no datasets are present.
func (d *IptcData) Empty() bool {
	return len(d.datasets) == 0
}

// Add appends a dataset.
func (d *IptcData) Add(record, dataset uint8, value []byte) {
	d.datasets = append(d.datasets, IptcDataset{Record: record, DataSet: dataset, Value: value})
}

// AddString appends a string-valued application record dataset.
func (d *IptcData) AddString(dataset uint8, value string) {
	d.Add(iptcApplicationRecord, dataset, []byte(value))
}

// Get returns the first value for the given application record dataset.
func (d *IptcData) Get(dataset uint8) ([]byte, bool) {
	for _, ds := range d.datasets {
		if ds.Record == iptcApplicationRecord && ds.DataSet == dataset {
			return ds.Value, true
		}
	}
	return nil, false
}

// GetString returns the first value for the given application record
// dataset decoded with the collection's character set.
func (d *IptcData) GetString(dataset uint8) (string, bool) {
	v, ok := d.Get(dataset)
	if !ok {
		return "", false
	}
	return d.decodeString(v), true
}

// decode parses an IIM byte sequence. Trailing bytes after the last valid
// marker are tolerated; a sequence that does not start with a dataset
// marker, or a dataset that overruns the buffer, is an error.
func (d *IptcData) decode(buf []byte) error {
	if len(buf) > 0 && buf[0] != iptcMarker {
		return fmt.Errorf("IIM data does not start with a dataset marker")
	}
	i := 0
	for i < len(buf) {
		if buf[i] != iptcMarker {
			break
		}
		if len(buf)-i < 5 {
			return fmt.Errorf("truncated IIM dataset header")
		}
		record := buf[i+1]
		dataset := buf[i+2]
		size := int(binary.BigEndian.Uint16(buf[i+3 : i+5]))
		i += 5

		if size&0x8000 != 0 {
			// Extended dataset: the low 15 bits give the octet count of
			// the following length field.
			n := size & 0x7fff
			if n < 1 || n > 4 || len(buf)-i < n {
				return fmt.Errorf("invalid IIM extended length")
			}
			size = 0
			for j := 0; j < n; j++ {
				size = size<<8 | int(buf[i+j])
			}
			i += n
		}
		if len(buf)-i < size {
			return fmt.Errorf("IIM dataset overruns data")
		}
		value := make([]byte, size)
		copy(value, buf[i:i+size])
		i += size

		d.datasets = append(d.datasets, IptcDataset{Record: record, DataSet: dataset, Value: value})
	}
	return nil
}

// encode serializes the datasets in order. Values longer than 32767 bytes
// use the extended-length form with a 4-byte length.
func (d *IptcData) encode() []byte {
	var out []byte
	for _, ds := range d.datasets {
		out = append(out, iptcMarker, ds.Record, ds.DataSet)
		if len(ds.Value) <= 0x7fff {
			out = binary.BigEndian.AppendUint16(out, uint16(len(ds.Value)))
		} else {
			out = binary.BigEndian.AppendUint16(out, 0x8004)
			out = binary.BigEndian.AppendUint32(out, uint32(len(ds.Value)))
		}
		out = append(out, ds.Value...)
	}
	return out
}

// charset returns the coded character set declared in the envelope record,
// or "" when none is declared.
func (d *IptcData) charset() string {
	for _, ds := range d.datasets {
		if ds.Record == iptcEnvelopeRecord && ds.DataSet == iptcDSCodedCharacterSet {
			return resolveCodedCharacterSet(ds.Value)
		}
	}
	return ""
}

// decodeString converts a dataset value to a string honoring the declared
// character set. Undeclared values that are not valid UTF-8 fall back to
// ISO 8859-1, the IIM default.
func (d *IptcData) decodeString(v []byte) string {
	cs := d.charset()
	if cs == characterSetUTF8 || (cs == "" && utf8.Valid(v)) {
		return string(v)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(v)
	if err != nil {
		return string(v)
	}
	return string(s)
}

const (
	characterSetUTF8     = "UTF-8"
	characterSetISO88591 = "ISO-8859-1"
)

// resolveCodedCharacterSet maps the 1:90 escape sequence to a character set
// name, or "" if it is not one this package knows.
func resolveCodedCharacterSet(b []byte) string {
	const (
		esc     = 0x1b
		percent = 0x25
		dot     = 0x2e
		minus   = 0x2d
		capG    = 0x47
		capA    = 0x41
	)

	if len(b) > 2 && b[0] == esc && b[1] == percent && b[2] == capG {
		return characterSetUTF8
	}
	if len(b) > 2 && b[0] == esc && b[1] == dot && b[2] == capA {
		return characterSetISO88591
	}
	if len(b) > 4 && b[0] == esc && (b[1] == dot || b[2] == dot || b[3] == dot) && b[4] == capA {
		return characterSetISO88591
	}
	if len(b) > 2 && b[0] == esc && b[1] == minus && b[2] == capA {
		return characterSetISO88591
	}
	return ""
}

// String renders the datasets one per line, for the structure printer.
func (d *IptcData) String() string {
	var sb strings.Builder
	for _, ds := range d.datasets {
		fmt.Fprintf(&sb, "%3d:%03d %-30s %4d  %s\n",
			ds.Record, ds.DataSet, ds.Name(), len(ds.Value),
			printablePreview(ds.Value, 40))
	}
	return sb.String()
}

// Application record (2:xx) dataset names.
var iptcFieldNames = map[uint8]string{
	0:   "RecordVersion",
	5:   "ObjectName",
	7:   "EditStatus",
	10:  "Urgency",
	15:  "Category",
	20:  "SupplementalCategory",
	22:  "FixtureIdentifier",
	25:  "Keywords",
	26:  "ContentLocationCode",
	27:  "ContentLocationName",
	30:  "ReleaseDate",
	35:  "ReleaseTime",
	37:  "ExpirationDate",
	38:  "ExpirationTime",
	40:  "SpecialInstructions",
	42:  "ActionAdvised",
	45:  "ReferenceService",
	47:  "ReferenceDate",
	50:  "ReferenceNumber",
	55:  "DateCreated",
	60:  "TimeCreated",
	62:  "DigitalCreationDate",
	63:  "DigitalCreationTime",
	65:  "OriginatingProgram",
	70:  "ProgramVersion",
	75:  "ObjectCycle",
	80:  "Byline",
	85:  "BylineTitle",
	90:  "City",
	92:  "SubLocation",
	95:  "ProvinceState",
	100: "CountryCode",
	101: "CountryName",
	103: "OriginalTransmissionReference",
	105: "Headline",
	110: "Credit",
	115: "Source",
	116: "Copyright",
	118: "Contact",
	120: "Caption",
	122: "Writer",
}
