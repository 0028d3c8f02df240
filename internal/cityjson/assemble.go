package cityjson

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"cityjson-gen/internal/logger"
	"cityjson-gen/internal/mesh"

	"github.com/google/uuid"
)

// MergedPrefix starts the file name of every per-building mesh.
const MergedPrefix = "merged_building_"

// ErrInsufficientFaces is returned for a building mesh without faces.
var ErrInsufficientFaces = errors.New("building mesh has no faces")

// Assembler turns building meshes into city objects sharing one vertex table. It is
// not safe for concurrent use; buildings must be added in their canonical order.
type Assembler struct {
	Classifier Classifier
	Log        *slog.Logger
	// NewID generates city object ids.
	NewID func() string

	vertices VertexTable
	objects  map[string]*CityObject
	count    int
}

// Stats summarises an AssembleDir run.
type Stats struct {
	Buildings      int
	Skipped        int
	MalformedLines int
	// Degraded counts single-face buildings, which only get a roof.
	Degraded int
}

func NewAssembler(c Classifier, log *slog.Logger) *Assembler {
	if c == nil {
		c = PositionClassifier{}
	}
	if log == nil {
		log = logger.L()
	}
	return &Assembler{
		Classifier: c,
		Log:        log,
		NewID:      uuid.NewString,
		objects:    make(map[string]*CityObject),
	}
}

// Add appends m as the next building and returns its city object id. The building's
// vertices go to the end of the shared table and its rings are offset accordingly.
func (a *Assembler) Add(buildingID string, m *mesh.Mesh) (string, error) {
	if len(m.Faces) == 0 {
		return "", fmt.Errorf("building %s: %w", buildingID, ErrInsufficientFaces)
	}
	roles := a.Classifier.Classify(m)
	if len(roles) != len(m.Faces) {
		return "", fmt.Errorf("building %s: classifier returned %d roles for %d faces", buildingID, len(roles), len(m.Faces))
	}

	offset := a.vertices.Append(m.Vertices)

	shell := make([][][]int, len(m.Faces))
	semantics := make([]int, len(m.Faces))
	materials := make([]int, len(m.Faces))
	for i, f := range m.Faces {
		ring := make([]int, len(f))
		for k, idx := range f {
			ring[k] = idx + offset
		}
		shell[i] = [][]int{ring}
		semantics[i] = int(roles[i])
		materials[i] = roles[i].Material()
	}

	attrs := Attributes{
		Level0:     a.count,
		Level1:     0,
		ID:         a.count + 1,
		BuildingID: buildingID,
	}
	if _, err := uuid.Parse(buildingID); err == nil {
		attrs.UUIDBGN = buildingID
	}

	id := a.NewID()
	a.objects[id] = &CityObject{
		Type:       "Building",
		Attributes: attrs,
		Geometry: []Geometry{{
			Type:       "Solid",
			LOD:        1,
			Boundaries: [][][][]int{shell},
			Semantics: Semantics{
				Values:   [][]int{semantics},
				Surfaces: append([]Surface(nil), Surfaces...),
			},
			Material: map[string]MaterialValues{
				"": {Values: [][]int{materials}},
			},
		}},
	}
	a.count++
	return id, nil
}

// AddFile reads a merged building mesh and adds it. The building id is taken from the
// file name.
func (a *Assembler) AddFile(path string) (string, []*mesh.LineError, error) {
	m, skipped, err := mesh.ReadObj(path)
	if err != nil {
		return "", skipped, err
	}
	id, err := a.Add(BuildingIDFromPath(path), m)
	return id, skipped, err
}

// AssembleDir adds every merged mesh in dir in directory order. Unreadable or empty
// files are logged and skipped. It stops early only when ctx is cancelled or dir
// cannot be listed.
func (a *Assembler) AssembleDir(ctx context.Context, dir string) (Stats, error) {
	var st Stats
	files, err := mesh.ListObjFiles(dir)
	if err != nil {
		return st, err
	}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		name := filepath.Base(path)
		id, skipped, err := a.AddFile(path)
		st.MalformedLines += len(skipped)
		for _, le := range skipped {
			a.Log.Debug("mesh_line_skipped", "file", name, "line", le.Line, "reason", le.Reason)
		}
		if err != nil {
			st.Skipped++
			a.Log.Warn("building_file_skipped", "file", name, "err", err)
			continue
		}
		obj := a.objects[id]
		faces := len(obj.Geometry[0].Boundaries[0])
		if faces < 2 {
			st.Degraded++
			a.Log.Warn("building_degraded_semantics", "file", name, "faces", faces)
		}
		st.Buildings++
		a.Log.Debug("building_assembled", "file", name, "city_object", id, "faces", faces)
	}
	return st, nil
}

// Len is the number of city objects added so far.
func (a *Assembler) Len() int { return a.count }

// Document builds the document from everything added so far.
func (a *Assembler) Document(referenceSystem string, extent [6]float64) *Document {
	doc := NewDocument(referenceSystem, extent)
	for id, obj := range a.objects {
		doc.CityObjects[id] = obj
	}
	doc.Vertices = a.vertices.Vertices()
	return doc
}

// BuildingIDFromPath recovers the building id from a merged mesh file name.
func BuildingIDFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimPrefix(stem, MergedPrefix)
}
