// Package ogr reads footprints through GDAL/OGR and offers a GEOS-backed buffered
// intersection test. It is the only package that links libgdal.
package ogr

import (
	"errors"
	"fmt"
	"strconv"

	"cityjson-gen/internal/footprint"

	"github.com/lukeroth/gdal"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/encoding/wkt"
)

var ErrOpen = errors.New("ogr cannot open data source")

// ReadFootprints reads the first layer of any OGR vector source. It satisfies
// footprint.Reader.
func ReadFootprints(path, idField string) (*footprint.Source, error) {
	ds := gdal.OpenDataSource(path, 0)
	defer ds.Destroy()
	if ds.LayerCount() == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrOpen)
	}

	layer := ds.LayerByIndex(0)
	layer.ResetReading()

	var records []footprint.Record
	for {
		f := layer.NextFeature()
		if f == nil {
			break
		}
		records = append(records, featureRecord(f, idField))
		f.Destroy()
	}

	src := footprint.Build(path, records)
	srs := layer.SpatialReference()
	if w, err := srs.ToWKT(); err == nil && w != "" {
		src.WKT = w
		src.EPSG = footprint.EPSGFromWKT(w)
		if src.EPSG == 0 {
			src.EPSG, _ = IdentifyEPSG(w)
		}
	}
	return src, nil
}

func featureRecord(f *gdal.Feature, idField string) footprint.Record {
	var rec footprint.Record
	if idx := f.FieldIndex(idField); idx >= 0 && f.IsFieldSet(idx) {
		rec.ID, rec.HasID = f.FieldAsString(idx), true
	}
	g := f.Geometry()
	if g.IsEmpty() {
		return rec
	}
	g.SetCoordinateDimension(2)
	data, err := g.ToWKB()
	if err != nil {
		return rec
	}
	geom, err := wkb.Unmarshal(data)
	if err != nil {
		return rec
	}
	switch v := geom.(type) {
	case orb.Polygon:
		rec.Geometry = orb.MultiPolygon{v}
	case orb.MultiPolygon:
		rec.Geometry = v
	}
	return rec
}

// IdentifyEPSG asks GDAL to recognise a WKT reference system that carries no explicit
// EPSG authority.
func IdentifyEPSG(wktDef string) (int, error) {
	srs := gdal.CreateSpatialReference(wktDef)
	defer srs.Destroy()
	if err := srs.AutoIdentifyEPSG(); err != nil {
		return 0, fmt.Errorf("identify epsg: %w", err)
	}
	key := "GEOGCS"
	if srs.IsProjected() {
		key = "PROJCS"
	}
	code, err := strconv.Atoi(srs.AuthorityCode(key))
	if err != nil {
		return 0, fmt.Errorf("identify epsg: no authority code")
	}
	return code, nil
}

// Predicate buffers the face with GEOS and tests intersection with the footprint.
// Segments is the number of segments per quarter circle of the buffer.
type Predicate struct {
	Segments int
}

func (p Predicate) BufferedIntersects(face orb.Ring, target orb.MultiPolygon, distance float64) bool {
	segs := p.Segments
	if segs <= 0 {
		segs = 8
	}
	fg, err := gdal.CreateFromWKT(wkt.MarshalString(orb.Polygon{face}), gdal.SpatialReference{})
	if err != nil {
		return false
	}
	defer fg.Destroy()
	tg, err := gdal.CreateFromWKT(wkt.MarshalString(target), gdal.SpatialReference{})
	if err != nil {
		return false
	}
	defer tg.Destroy()

	buffered := fg.Buffer(distance, segs)
	defer buffered.Destroy()
	return buffered.Intersects(tg)
}
