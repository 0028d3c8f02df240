package footprint

import (
	"fmt"
	"os"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ReadGeoJSON reads polygon outlines from a GeoJSON FeatureCollection. The id is taken
// from the idField property, falling back to the feature id. A legacy "crs" member
// supplies the reference system.
func ReadGeoJSON(path, idField string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse geojson %s: %w", path, err)
	}

	records := make([]Record, 0, len(fc.Features))
	for _, f := range fc.Features {
		var rec Record
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			rec.Geometry = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			rec.Geometry = g
		}
		if v, ok := f.Properties[idField]; ok && v != nil {
			rec.ID, rec.HasID = idString(v), true
		} else if f.ID != nil {
			rec.ID, rec.HasID = idString(f.ID), true
		}
		records = append(records, rec)
	}

	src := Build(path, records)
	src.EPSG = crsMember(fc)
	return src, nil
}

func idString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// crsMember reads {"crs": {"type": "name", "properties": {"name": ...}}}.
func crsMember(fc *geojson.FeatureCollection) int {
	crs, ok := fc.ExtraMembers["crs"].(map[string]interface{})
	if !ok {
		return 0
	}
	props, ok := crs["properties"].(map[string]interface{})
	if !ok {
		return 0
	}
	name, _ := props["name"].(string)
	return EPSGFromName(name)
}
