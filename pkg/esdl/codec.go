// Package esdl reads and writes energy systems in the ESDL XML exchange
// format. Only the topology is kept: areas, buildings, assets with their
// geometry, ports and connectedTo lists. Other attributes are dropped on
// decode.
package esdl

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dd0wney/cluso-mapeditor/pkg/geo"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
)

// ErrMalformed is returned for documents that parse as XML but do not describe
// an energy system
var ErrMalformed = errors.New("esdl: malformed document")

// Decode reads one EnergySystem document
func Decode(r io.Reader) (*model.EnergySystem, error) {
	var doc xmlEnergySystem
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("esdl: decode: %w", err)
	}
	if doc.XMLName.Local != "EnergySystem" {
		return nil, fmt.Errorf("%w: root element %q", ErrMalformed, doc.XMLName.Local)
	}

	es := &model.EnergySystem{ID: doc.ID, Name: doc.Name, Description: doc.Description}
	for i := range doc.Instances {
		in := &doc.Instances[i]
		inst := &model.Instance{ID: in.ID, Name: in.Name}
		if in.Area != nil {
			area, err := decodeArea(in.Area)
			if err != nil {
				return nil, err
			}
			inst.Area = area
		}
		es.Instances = append(es.Instances, inst)
	}
	return es, nil
}

// Unmarshal decodes a document held in memory
func Unmarshal(data []byte) (*model.EnergySystem, error) {
	return Decode(bytes.NewReader(data))
}

func decodeArea(x *xmlArea) (*model.Area, error) {
	area := model.NewArea(x.ID, x.Name)
	for i := range x.Areas {
		sub, err := decodeArea(&x.Areas[i])
		if err != nil {
			return nil, err
		}
		area.Areas = append(area.Areas, sub)
	}
	for i := range x.Assets {
		asset, err := decodeAsset(&x.Assets[i])
		if err != nil {
			return nil, err
		}
		area.Assets = append(area.Assets, asset)
	}
	return area, nil
}

func decodeAsset(x *xmlAsset) (*model.Asset, error) {
	if x.ID == "" {
		return nil, fmt.Errorf("%w: asset of type %q without id", ErrMalformed, x.Type)
	}
	asset := &model.Asset{
		ID:     x.ID,
		Name:   x.Name,
		Type:   model.AssetType(localName(x.Type)),
		Length: x.Length,
	}

	geom, err := decodeGeometry(x.Geometry)
	if err != nil {
		return nil, fmt.Errorf("asset %s: %w", x.ID, err)
	}
	asset.Geometry = geom

	for _, xp := range x.Ports {
		kind, ok := model.ParsePortKind(localName(xp.Type))
		if !ok {
			return nil, fmt.Errorf("%w: asset %s port %s has type %q", ErrMalformed, x.ID, xp.ID, xp.Type)
		}
		port := &model.Port{ID: xp.ID, Name: xp.Name, Kind: kind}
		for _, target := range strings.Fields(xp.ConnectedTo) {
			port.AddLink(target)
		}
		asset.Ports = append(asset.Ports, port)
	}

	for i := range x.Assets {
		child, err := decodeAsset(&x.Assets[i])
		if err != nil {
			return nil, err
		}
		asset.Assets = append(asset.Assets, child)
	}
	return asset, nil
}

func decodeGeometry(x *xmlGeometry) (model.Geometry, error) {
	if x == nil {
		return model.Geometry{}, nil
	}
	kind, ok := model.ParseGeometryKind(localName(x.Type))
	if !ok {
		// WKT, multi-polygons and the like carry no port endpoints
		return model.Geometry{}, nil
	}
	switch kind {
	case model.GeometryPoint:
		if x.Lat == nil || x.Lon == nil {
			return model.Geometry{}, fmt.Errorf("%w: point without lat/lon", ErrMalformed)
		}
		return model.PointGeometry(geo.Coord(*x.Lat, *x.Lon)), nil
	case model.GeometryLine:
		if len(x.Points) < 2 {
			return model.Geometry{}, fmt.Errorf("%w: line with %d points", ErrMalformed, len(x.Points))
		}
		return model.Geometry{Kind: model.GeometryLine, Points: points(x.Points)}, nil
	case model.GeometryPolygon:
		if x.Exterior == nil {
			return model.Geometry{Kind: model.GeometryPolygon}, nil
		}
		return model.Geometry{Kind: model.GeometryPolygon, Points: points(x.Exterior.Points)}, nil
	default:
		return model.Geometry{}, nil
	}
}

func points(xs []xmlPoint) []geo.Coordinate {
	out := make([]geo.Coordinate, len(xs))
	for i, p := range xs {
		out[i] = geo.Coord(p.Lat, p.Lon)
	}
	return out
}

// localName strips a namespace prefix such as "esdl:"
func localName(typ string) string {
	if i := strings.LastIndexByte(typ, ':'); i >= 0 {
		return typ[i+1:]
	}
	return typ
}

// Encode writes es as an indented ESDL document with an XML header
func Encode(w io.Writer, es *model.EnergySystem) error {
	if es == nil {
		return fmt.Errorf("%w: nil energy system", ErrMalformed)
	}
	doc := xmlEnergySystem{
		XMLName:     xml.Name{Local: prefix + "EnergySystem"},
		XMLNSXSI:    NamespaceXSI,
		XMLNSESDL:   NamespaceESDL,
		ID:          es.ID,
		Name:        es.Name,
		Description: es.Description,
	}
	for _, inst := range es.Instances {
		xi := xmlInstance{XSIType: prefix + "Instance", ID: inst.ID, Name: inst.Name}
		if inst.Area != nil {
			xi.Area = encodeArea(inst.Area)
		}
		doc.Instances = append(doc.Instances, xi)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("esdl: encode: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("esdl: encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("esdl: encode: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal encodes es into memory
func Marshal(es *model.EnergySystem) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, es); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeArea(a *model.Area) *xmlArea {
	x := &xmlArea{XSIType: prefix + "Area", ID: a.ID, Name: a.Name}
	for _, sub := range a.Areas {
		x.Areas = append(x.Areas, *encodeArea(sub))
	}
	for _, asset := range a.Assets {
		x.Assets = append(x.Assets, encodeAsset(asset))
	}
	return x
}

func encodeAsset(a *model.Asset) xmlAsset {
	x := xmlAsset{
		XSIType:  prefix + string(a.Type),
		ID:       a.ID,
		Name:     a.Name,
		Length:   a.Length,
		Geometry: encodeGeometry(a.Geometry),
	}
	for _, p := range a.Ports {
		x.Ports = append(x.Ports, xmlPort{
			XSIType:     prefix + p.Kind.String(),
			ID:          p.ID,
			Name:        p.Name,
			ConnectedTo: strings.Join(p.ConnectedTo, " "),
		})
	}
	for _, child := range a.Assets {
		x.Assets = append(x.Assets, encodeAsset(child))
	}
	return x
}

func encodeGeometry(g model.Geometry) *xmlGeometry {
	switch g.Kind {
	case model.GeometryPoint:
		pt, ok := g.Point()
		if !ok {
			return nil
		}
		return &xmlGeometry{XSIType: prefix + "Point", Lat: &pt.Lat, Lon: &pt.Lon}
	case model.GeometryLine:
		return &xmlGeometry{XSIType: prefix + "Line", Points: encodePoints(g.Points)}
	case model.GeometryPolygon:
		return &xmlGeometry{
			XSIType:  prefix + "Polygon",
			Exterior: &xmlExterior{XSIType: prefix + "SubPolygon", Points: encodePoints(g.Points)},
		}
	default:
		return nil
	}
}

func encodePoints(pts []geo.Coordinate) []xmlPoint {
	out := make([]xmlPoint, len(pts))
	for i, c := range pts {
		out[i] = xmlPoint{XSIType: prefix + "Point", Lat: c.Lat, Lon: c.Lon}
	}
	return out
}
