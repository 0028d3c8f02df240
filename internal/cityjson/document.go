// Package cityjson assembles per-building meshes into one CityJSON 1.0 document.
package cityjson

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

const (
	DocumentType    = "CityJSON"
	DocumentVersion = "1.0"
	// FileName is the document written into the output directory.
	FileName = "buildings_cityjson.json"
)

// Document is the top level CityJSON object.
type Document struct {
	Type        string                 `json:"type"`
	Version     string                 `json:"version"`
	Metadata    Metadata               `json:"metadata"`
	CityObjects map[string]*CityObject `json:"CityObjects"`
	Vertices    [][3]float64           `json:"vertices"`
	Appearance  Appearance             `json:"appearance"`
}

type Metadata struct {
	ReferenceSystem    string     `json:"referenceSystem"`
	GeographicalExtent [6]float64 `json:"geographicalExtent"`
}

type CityObject struct {
	Type       string     `json:"type"`
	Attributes Attributes `json:"attributes"`
	Geometry   []Geometry `json:"geometry"`
}

// Attributes carried by every building. UUIDBGN is only set when the footprint id is
// itself a UUID.
type Attributes struct {
	Level0     int    `json:"level_0"`
	Level1     int    `json:"level_1"`
	ID         int    `json:"Id"`
	BuildingID string `json:"building_id"`
	UUIDBGN    string `json:"uuid_bgn,omitempty"`
}

// Geometry is an LOD1 Solid. Boundaries are shells → surfaces → rings → vertex indices.
type Geometry struct {
	Type       string                    `json:"type"`
	LOD        int                       `json:"lod"`
	Boundaries [][][][]int               `json:"boundaries"`
	Semantics  Semantics                 `json:"semantics"`
	Material   map[string]MaterialValues `json:"material"`
}

type Semantics struct {
	Values   [][]int   `json:"values"`
	Surfaces []Surface `json:"surfaces"`
}

type Surface struct {
	Type string `json:"type"`
}

type MaterialValues struct {
	Values [][]int `json:"values"`
}

type Appearance struct {
	Materials []Material `json:"materials"`
}

type Material struct {
	Name             string     `json:"name"`
	AmbientIntensity float64    `json:"ambientIntensity"`
	DiffuseColor     [3]float64 `json:"diffuseColor"`
	Transparency     float64    `json:"transparency"`
	IsSmooth         bool       `json:"isSmooth"`
}

// Materials is the fixed catalog; material values index into it.
var Materials = []Material{
	{Name: "roofandground", AmbientIntensity: 0.2, DiffuseColor: [3]float64{0.9, 0.1, 0.75}},
	{Name: "wall", AmbientIntensity: 0.4, DiffuseColor: [3]float64{0.1, 0.1, 0.9}},
}

// NewDocument returns an empty document with metadata and the material catalog set.
func NewDocument(referenceSystem string, extent [6]float64) *Document {
	return &Document{
		Type:    DocumentType,
		Version: DocumentVersion,
		Metadata: Metadata{
			ReferenceSystem:    referenceSystem,
			GeographicalExtent: extent,
		},
		CityObjects: make(map[string]*CityObject),
		Vertices:    [][3]float64{},
		Appearance:  Appearance{Materials: append([]Material(nil), Materials...)},
	}
}

// Save writes the document to path. The data goes to a temporary file in the same
// directory which is renamed over path, so readers never see a partial document.
func (d *Document) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cityjson: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cityjson-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Load reads a document written by Save.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode cityjson %s: %w", path, err)
	}
	return &d, nil
}
