// Package footprint loads building outlines and the reference system they are
// expressed in. Outlines are held as orb multipolygons regardless of the file format
// they came from.
package footprint

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Fixed vertical bounds of the document extent.
const (
	ZMin = 0.0
	ZMax = 2000.0
)

// DefaultIDField is the attribute holding the building id.
const DefaultIDField = "id"

var (
	ErrMissingID   = errors.New("footprint has no id")
	ErrDuplicateID = errors.New("duplicate footprint id")
	ErrNoGeometry  = errors.New("footprint has no polygon geometry")
	ErrUnsupported = errors.New("unsupported footprint format")
)

// Footprint is one building outline.
type Footprint struct {
	ID       string
	Geometry orb.MultiPolygon
	Bound    orb.Bound
}

// Rejected is a row of the source that cannot be used as a building.
type Rejected struct {
	Row int
	ID  string
	Err error
}

// Source is everything read from one footprint file.
type Source struct {
	Path       string
	Footprints []Footprint
	Rejected   []Rejected
	// Bound covers every polygon in the file, including rejected rows.
	Bound orb.Bound
	// EPSG is 0 when the file does not name a code.
	EPSG int
	// WKT is the raw reference system definition (.prj contents), if any.
	WKT string
}

// Record is a raw row handed to Build by a reader.
type Record struct {
	ID       string
	HasID    bool
	Geometry orb.MultiPolygon
}

// Build validates records into a Source. Rows without an id or polygon are rejected;
// when ids collide the first row keeps the id and later rows are rejected. Ids that
// differ only in characters FileSafeID replaces collide too, since they would share a
// merged mesh file.
func Build(path string, records []Record) *Source {
	src := &Source{Path: path}
	seen := make(map[string]bool, len(records))
	first := true
	for i, r := range records {
		if len(r.Geometry) > 0 {
			b := r.Geometry.Bound()
			if first {
				src.Bound = b
				first = false
			} else {
				src.Bound = src.Bound.Union(b)
			}
		}

		id := NormalizeID(r.ID)
		switch {
		case !r.HasID || id == "":
			src.Rejected = append(src.Rejected, Rejected{Row: i, Err: ErrMissingID})
		case len(r.Geometry) == 0:
			src.Rejected = append(src.Rejected, Rejected{Row: i, ID: id, Err: ErrNoGeometry})
		case seen[FileSafeID(id)]:
			src.Rejected = append(src.Rejected, Rejected{Row: i, ID: id, Err: ErrDuplicateID})
		default:
			seen[FileSafeID(id)] = true
			src.Footprints = append(src.Footprints, Footprint{
				ID:       id,
				Geometry: r.Geometry,
				Bound:    r.Geometry.Bound(),
			})
		}
	}
	return src
}

var unsafeName = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "\x00", "_")

// FileSafeID replaces path separators and other characters that cannot appear in a
// file name with '_'.
func FileSafeID(id string) string {
	return unsafeName.Replace(id)
}

var numericID = regexp.MustCompile(`^-?\d+\.\d*$`)

// NormalizeID trims padding and drops a zero fraction from numeric ids, so DBF values
// such as "12.000000" and GeoJSON numbers such as 12 name the same building.
func NormalizeID(id string) string {
	id = strings.TrimSpace(strings.TrimRight(id, "\x00"))
	if numericID.MatchString(id) {
		intPart, frac, _ := strings.Cut(id, ".")
		if strings.Trim(frac, "0") == "" {
			return intPart
		}
	}
	return id
}

// Extent returns xmin, ymin, zmin, xmax, ymax, zmax of the source with the fixed z range.
func (s *Source) Extent() [6]float64 {
	return Extent(s.Bound)
}

// Extent combines a 2D bound with the fixed z range.
func Extent(b orb.Bound) [6]float64 {
	return [6]float64{b.Min[0], b.Min[1], ZMin, b.Max[0], b.Max[1], ZMax}
}

// Reader loads a footprint file.
type Reader func(path, idField string) (*Source, error)

// Open picks a reader by file extension. Shapefiles and GeoJSON are read natively;
// everything else goes to fallback, which may be nil.
func Open(path, idField string, fallback Reader) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if idField == "" {
		idField = DefaultIDField
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return ReadShapefile(path, idField)
	case ".geojson", ".json":
		return ReadGeoJSON(path, idField)
	}
	if fallback == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupported)
	}
	return fallback(path, idField)
}

var (
	prjAuthority = regexp.MustCompile(`AUTHORITY\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]`)
	urnEPSG      = regexp.MustCompile(`(?i)EPSG:+(?:[\d.]*:)?(\d+)$`)
)

// EPSGFromWKT returns the code of the outermost EPSG authority in a WKT definition,
// or 0. The outermost authority is the last one in the text.
func EPSGFromWKT(wkt string) int {
	m := prjAuthority.FindAllStringSubmatch(wkt, -1)
	if len(m) == 0 {
		return 0
	}
	code, _ := strconv.Atoi(m[len(m)-1][1])
	return code
}

// EPSGFromName parses names like "EPSG:4326", "urn:ogc:def:crs:EPSG::32749" or the
// OGC CRS84 urn. It returns 0 when nothing matches.
func EPSGFromName(name string) int {
	name = strings.TrimSpace(name)
	if strings.HasSuffix(strings.ToUpper(name), "CRS84") {
		return 4326
	}
	m := urnEPSG.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	code, _ := strconv.Atoi(m[1])
	return code
}

// ReferenceSystem formats an EPSG code the way CityJSON 1.0 metadata expects.
func ReferenceSystem(epsg int) string {
	return fmt.Sprintf("urn:ogc:def:crs:EPSG::%d", epsg)
}

func readPrj(path string) string {
	prj := strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
	data, err := os.ReadFile(prj)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
