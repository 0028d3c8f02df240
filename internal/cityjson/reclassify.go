package cityjson

import (
	"fmt"

	"cityjson-gen/internal/mesh"
)

// Reclassify recomputes the semantics and material values of every solid in doc with
// c. Each building is rebuilt as a mesh of its own vertices (outer rings only) so the
// classifier sees the building's bounds, not the document's. It returns the number of
// surfaces whose role changed.
func Reclassify(doc *Document, c Classifier) (int, error) {
	changed := 0
	for id, obj := range doc.CityObjects {
		for gi := range obj.Geometry {
			g := &obj.Geometry[gi]
			if len(g.Boundaries) == 0 {
				continue
			}
			m, err := buildingMesh(doc.Vertices, g.Boundaries[0])
			if err != nil {
				return changed, fmt.Errorf("city object %s: %w", id, err)
			}
			roles := c.Classify(m)
			if len(roles) != len(m.Faces) {
				return changed, fmt.Errorf("city object %s: classifier returned %d roles for %d faces", id, len(roles), len(m.Faces))
			}

			var old []int
			if len(g.Semantics.Values) > 0 {
				old = g.Semantics.Values[0]
			}
			semantics := make([]int, len(roles))
			materials := make([]int, len(roles))
			for i, r := range roles {
				semantics[i] = int(r)
				materials[i] = r.Material()
				if i >= len(old) || old[i] != semantics[i] {
					changed++
				}
			}
			g.Semantics = Semantics{Values: [][]int{semantics}, Surfaces: append([]Surface(nil), Surfaces...)}
			g.Material = map[string]MaterialValues{"": {Values: [][]int{materials}}}
		}
	}
	return changed, nil
}

func buildingMesh(table [][3]float64, shell [][][]int) (*mesh.Mesh, error) {
	m := &mesh.Mesh{}
	local := make(map[int]int)
	for _, surface := range shell {
		if len(surface) == 0 {
			m.Faces = append(m.Faces, mesh.Face{})
			continue
		}
		face := make(mesh.Face, len(surface[0]))
		for k, idx := range surface[0] {
			if idx < 0 || idx >= len(table) {
				return nil, fmt.Errorf("vertex %d: %w", idx, mesh.ErrFaceIndex)
			}
			n, ok := local[idx]
			if !ok {
				v := table[idx]
				n = len(m.Vertices)
				m.Vertices = append(m.Vertices, mesh.Vertex{X: v[0], Y: v[1], Z: v[2]})
				local[idx] = n
			}
			face[k] = n
		}
		m.Faces = append(m.Faces, face)
	}
	return m, nil
}
