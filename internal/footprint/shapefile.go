package footprint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gitee.com/LJ_COOL/go-shp"
	"github.com/paulmach/orb"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// ReadShapefile reads polygon outlines from a .shp file with its .dbf attributes. The
// .prj file, when present, supplies the reference system and the .cpg file the
// attribute encoding.
func ReadShapefile(path, idField string) (*Source, error) {
	shape, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer shape.Close()

	fields := shape.Fields()
	idCol := -1
	for k, f := range fields {
		if strings.EqualFold(strings.TrimSpace(f.String()), idField) {
			idCol = k
			break
		}
	}
	dec := cpgDecoder(path)

	var records []Record
	for shape.Next() {
		n, p := shape.Shape()

		var rec Record
		switch s := p.(type) {
		case *shp.Polygon:
			rec.Geometry = ringsToMultiPolygon(s.Points, s.Parts)
		case *shp.PolygonZ:
			rec.Geometry = ringsToMultiPolygon(s.Points, s.Parts)
		case *shp.PolygonM:
			rec.Geometry = ringsToMultiPolygon(s.Points, s.Parts)
		}
		if idCol >= 0 {
			raw := shape.ReadAttribute(n, idCol)
			if dec != nil {
				if s, err := dec.String(raw); err == nil {
					raw = s
				}
			}
			rec.ID = raw
			rec.HasID = true
		}
		records = append(records, rec)
	}
	if err := shape.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", path, err)
	}

	src := Build(path, records)
	src.WKT = readPrj(path)
	src.EPSG = EPSGFromWKT(src.WKT)
	return src, nil
}

// cpgDecoder returns a decoder for the encoding named in the .cpg next to path, or nil
// when the file is missing, names UTF-8, or names an unknown encoding.
func cpgDecoder(path string) *encoding.Decoder {
	cpg := strings.TrimSuffix(path, filepath.Ext(path)) + ".cpg"
	data, err := os.ReadFile(cpg)
	if err != nil {
		return nil
	}
	name := strings.TrimSpace(string(data))
	name = strings.TrimPrefix(strings.ToUpper(name), "ANSI ")
	if name == "" || strings.EqualFold(name, "UTF-8") || strings.EqualFold(name, "UTF8") {
		return nil
	}
	if isDigits(name) {
		name = "windows-" + name
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil
	}
	return enc.NewDecoder()
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// ringsToMultiPolygon splits shapefile points into rings at the part offsets. A
// clockwise ring starts a new polygon; counter-clockwise rings are holes of the
// polygon before them.
func ringsToMultiPolygon(points []shp.Point, parts []int32) orb.MultiPolygon {
	var mp orb.MultiPolygon
	for i, start := range parts {
		end := int32(len(points))
		if i < len(parts)-1 {
			end = parts[i+1]
		}
		if start < 0 || start >= end || int(end) > len(points) {
			continue
		}
		ring := make(orb.Ring, 0, end-start)
		for _, pt := range points[start:end] {
			ring = append(ring, orb.Point{pt.X, pt.Y})
		}
		if isClockwise(ring) || len(mp) == 0 {
			mp = append(mp, orb.Polygon{ring})
		} else {
			last := len(mp) - 1
			mp[last] = append(mp[last], ring)
		}
	}
	return mp
}

func isClockwise(r orb.Ring) bool {
	sum := 0.0
	for i := 0; i < len(r)-1; i++ {
		sum += (r[i+1][0] - r[i][0]) * (r[i+1][1] + r[i][1])
	}
	return sum > 0
}
