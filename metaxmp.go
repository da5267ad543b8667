// Copyright 2026 Johan Blomqvist
// SPDX-License-Identifier: MIT

package jp2meta

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// XMPProperty is one simple XMP property: a local name, its namespace URI
// and a string value.
type XMPProperty struct {
	Name      string
	Namespace string
	Value     string
}

// XMPData is the parsed XMP model. It covers the common subset of XMP:
// simple properties expressed as rdf:Description attributes, plus the
// dc:creator, dc:subject and dc:rights containers. The zero value is empty.
type XMPData struct {
	props []XMPProperty
}

// Properties returns the properties in document order.
func (d *XMPData) Properties() []XMPProperty {
	return d.props
}

// Empty reports whether no properties are present.
func (d *XMPData) Empty() bool {
	return len(d.props) == 0
}

// Get returns the first property with the given local name.
func (d *XMPData) Get(name string) (XMPProperty, bool) {
	for _, p := range d.props {
		if p.Name == name {
			return p, true
		}
	}
	return XMPProperty{}, false
}

// Set replaces the first property with the same local name and namespace,
// or appends.
func (d *XMPData) Set(p XMPProperty) {
	for i := range d.props {
		if d.props[i].Name == p.Name && d.props[i].Namespace == p.Namespace {
			d.props[i] = p
			return
		}
	}
	d.props = append(d.props, p)
}

// SetXMPProperties replaces the XMP model. The next WriteMetadata
// regenerates the packet from it.
func (img *Image) SetXMPProperties(props []XMPProperty) {
	img.xmp = XMPData{props: props}
	img.xmpPacket = ""
	img.fromPacket = false
}

type xmpRDF struct {
	XMLName      xml.Name
	Descriptions []xmpDescription `xml:"Description"`
}

type xmpDescription struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Creator xmpSeq     `xml:"creator"`
	Subject xmpBag     `xml:"subject"`
	Rights  xmpAlt     `xml:"rights"`
}

type xmpSeq struct {
	XMLName xml.Name
	Seq     struct {
		Items []string `xml:"li"`
	} `xml:"Seq"`
}

type xmpBag struct {
	XMLName xml.Name
	Bag     struct {
		Items []string `xml:"li"`
	} `xml:"Bag"`
}

type xmpAlt struct {
	XMLName xml.Name
	Alt     struct {
		Items []string `xml:"li"`
	} `xml:"Alt"`
}

type xmpMeta struct {
	XMLName xml.Name
	RDF     xmpRDF `xml:"RDF"`
}

var xmpSkipNamespaces = map[string]bool{
	"xmlns": true,
	"http://www.w3.org/1999/02/22-rdf-syntax-ns#": true,
}

// decode parses an XMP packet into the model.
func (d *XMPData) decode(packet string) error {
	var meta xmpMeta
	if err := xml.NewDecoder(strings.NewReader(packet)).Decode(&meta); err != nil {
		return fmt.Errorf("decoding XMP: %w", err)
	}

	for _, desc := range meta.RDF.Descriptions {
		for _, attr := range desc.Attrs {
			if xmpSkipNamespaces[attr.Name.Space] {
				continue
			}
			d.props = append(d.props, XMPProperty{
				Name:      attr.Name.Local,
				Namespace: attr.Name.Space,
				Value:     attr.Value,
			})
		}
		d.addItems(desc.Creator.XMLName, desc.Creator.Seq.Items)
		d.addItems(desc.Subject.XMLName, desc.Subject.Bag.Items)
		d.addItems(desc.Rights.XMLName, desc.Rights.Alt.Items)
	}
	return nil
}

func (d *XMPData) addItems(name xml.Name, items []string) {
	for _, item := range items {
		d.props = append(d.props, XMPProperty{
			Name:      name.Local,
			Namespace: name.Space,
			Value:     item,
		})
	}
}

// Namespace prefixes used when regenerating a packet.
var xmpNamespacePrefixes = map[string]string{
	"http://ns.adobe.com/xap/1.0/":       "xmp",
	"http://purl.org/dc/elements/1.1/":   "dc",
	"http://ns.adobe.com/exif/1.0/":      "exif",
	"http://ns.adobe.com/tiff/1.0/":      "tiff",
	"http://ns.adobe.com/photoshop/1.0/": "photoshop",
}

const (
	xmpPacketHeader  = `<?xpacket begin="` + "\xef\xbb\xbf" + `" id="W5M0MpCehiHzreSzNTczkc9d"?>`
	xmpPacketTrailer = `<?xpacket end="w"?>`
)

// buildPacket serializes the model into a minimal XMP packet: one
// rdf:Description per namespace. Properties whose name occurs once in the
// namespace are written as attributes; names that repeat are written as
// rdf:Seq containers.
func (d *XMPData) buildPacket() string {
	if d.Empty() {
		return ""
	}

	prefixes := map[string]string{}
	var nsOrder []string
	prefixFor := func(ns string) string {
		if p, ok := prefixes[ns]; ok {
			return p
		}
		p, ok := xmpNamespacePrefixes[ns]
		if !ok {
			p = fmt.Sprintf("ns%d", len(prefixes)+1)
		}
		prefixes[ns] = p
		nsOrder = append(nsOrder, ns)
		return p
	}
	for _, p := range d.props {
		prefixFor(p.Namespace)
	}

	var sb strings.Builder
	sb.WriteString(xmpPacketHeader)
	sb.WriteString("\n<x:xmpmeta xmlns:x=\"adobe:ns:meta/\">")
	sb.WriteString("<rdf:RDF xmlns:rdf=\"http://www.w3.org/1999/02/22-rdf-syntax-ns#\">")
	for _, ns := range nsOrder {
		// Names that repeat within the namespace become rdf:Seq containers;
		// the rest are plain attributes.
		counts := map[string]int{}
		for _, p := range d.props {
			if p.Namespace == ns {
				counts[p.Name]++
			}
		}

		sb.WriteString("<rdf:Description rdf:about=\"\"")
		fmt.Fprintf(&sb, " xmlns:%s=\"%s\"", prefixes[ns], ns)
		for _, p := range d.props {
			if p.Namespace != ns || counts[p.Name] > 1 {
				continue
			}
			fmt.Fprintf(&sb, " %s:%s=\"%s\"", prefixes[ns], p.Name, escapeXMLAttr(p.Value))
		}

		var multi []string
		for _, p := range d.props {
			if p.Namespace == ns && counts[p.Name] > 1 {
				multi = append(multi, p.Name)
			}
		}
		if len(multi) == 0 {
			sb.WriteString("/>")
			continue
		}
		sb.WriteString(">")
		emitted := map[string]bool{}
		for _, name := range multi {
			if emitted[name] {
				continue
			}
			emitted[name] = true
			fmt.Fprintf(&sb, "<%s:%s><rdf:Seq>", prefixes[ns], name)
			for _, p := range d.props {
				if p.Namespace == ns && p.Name == name {
					fmt.Fprintf(&sb, "<rdf:li>%s</rdf:li>", escapeXMLAttr(p.Value))
				}
			}
			fmt.Fprintf(&sb, "</rdf:Seq></%s:%s>", prefixes[ns], name)
		}
		sb.WriteString("</rdf:Description>")
	}
	sb.WriteString("</rdf:RDF></x:xmpmeta>\n")
	sb.WriteString(xmpPacketTrailer)
	return sb.String()
}

func escapeXMLAttr(s string) string {
	var sb strings.Builder
	if err := xml.EscapeText(&sb, []byte(s)); err != nil {
		return s
	}
	return sb.String()
}
