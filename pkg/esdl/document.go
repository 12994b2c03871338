package esdl

import "encoding/xml"

// Namespaces written on the root element
const (
	NamespaceESDL = "http://www.tno.nl/esdl"
	NamespaceXSI  = "http://www.w3.org/2001/XMLSchema-instance"

	prefix = "esdl:"
)

// The element structs below serve both directions. encoding/xml matches
// xsi:type on decode through the unqualified "type" attribute but cannot
// write a prefixed attribute from it, so the prefixed name lives in a second
// field that is only set when encoding.

type xmlEnergySystem struct {
	XMLName     xml.Name
	XMLNSXSI    string        `xml:"xmlns:xsi,attr,omitempty"`
	XMLNSESDL   string        `xml:"xmlns:esdl,attr,omitempty"`
	ID          string        `xml:"id,attr,omitempty"`
	Name        string        `xml:"name,attr,omitempty"`
	Description string        `xml:"description,attr,omitempty"`
	Instances   []xmlInstance `xml:"instance"`
}

type xmlInstance struct {
	Type    string   `xml:"type,attr,omitempty"`
	XSIType string   `xml:"xsi:type,attr,omitempty"`
	ID      string   `xml:"id,attr,omitempty"`
	Name    string   `xml:"name,attr,omitempty"`
	Area    *xmlArea `xml:"area"`
}

type xmlArea struct {
	Type    string     `xml:"type,attr,omitempty"`
	XSIType string     `xml:"xsi:type,attr,omitempty"`
	ID      string     `xml:"id,attr"`
	Name    string     `xml:"name,attr,omitempty"`
	Areas   []xmlArea  `xml:"area"`
	Assets  []xmlAsset `xml:"asset"`
}

type xmlAsset struct {
	Type     string       `xml:"type,attr,omitempty"`
	XSIType  string       `xml:"xsi:type,attr,omitempty"`
	ID       string       `xml:"id,attr"`
	Name     string       `xml:"name,attr,omitempty"`
	Length   float64      `xml:"length,attr,omitempty"`
	Geometry *xmlGeometry `xml:"geometry"`
	Ports    []xmlPort    `xml:"port"`
	Assets   []xmlAsset   `xml:"asset"`
}

type xmlGeometry struct {
	Type     string       `xml:"type,attr,omitempty"`
	XSIType  string       `xml:"xsi:type,attr,omitempty"`
	Lat      *float64     `xml:"lat,attr"`
	Lon      *float64     `xml:"lon,attr"`
	Points   []xmlPoint   `xml:"point"`
	Exterior *xmlExterior `xml:"exterior"`
}

type xmlExterior struct {
	Type    string     `xml:"type,attr,omitempty"`
	XSIType string     `xml:"xsi:type,attr,omitempty"`
	Points  []xmlPoint `xml:"point"`
}

type xmlPoint struct {
	Type    string  `xml:"type,attr,omitempty"`
	XSIType string  `xml:"xsi:type,attr,omitempty"`
	Lat     float64 `xml:"lat,attr"`
	Lon     float64 `xml:"lon,attr"`
}

type xmlPort struct {
	Type        string `xml:"type,attr,omitempty"`
	XSIType     string `xml:"xsi:type,attr,omitempty"`
	ID          string `xml:"id,attr"`
	Name        string `xml:"name,attr,omitempty"`
	ConnectedTo string `xml:"connectedTo,attr,omitempty"`
}
