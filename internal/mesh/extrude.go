package mesh

import "fmt"

// DefaultExtrusionHeight is the vertical offset applied to extruded faces.
const DefaultExtrusionHeight = 1000.0

// Extrude copies face i of m into a new single-face mesh and raises every vertex by
// height. Vertices are re-indexed 0..k-1 in first-use order; a vertex the face repeats
// is copied once. m is not modified.
func Extrude(m *Mesh, i int, height float64) (*Mesh, error) {
	if i < 0 || i >= len(m.Faces) {
		return nil, fmt.Errorf("%s: face %d: %w", m.Name, i, ErrFaceIndex)
	}
	src := m.Faces[i]

	out := &Mesh{
		Name:     fmt.Sprintf("%s#%d", m.Name, i),
		Vertices: make([]Vertex, 0, len(src)),
	}
	remap := make(map[int]int, len(src))
	face := make(Face, len(src))
	for k, idx := range src {
		if idx < 0 || idx >= len(m.Vertices) {
			return nil, fmt.Errorf("%s: face %d references vertex %d: %w", m.Name, i, idx, ErrFaceIndex)
		}
		n, ok := remap[idx]
		if !ok {
			v := m.Vertices[idx]
			n = len(out.Vertices)
			out.Vertices = append(out.Vertices, Vertex{X: v.X, Y: v.Y, Z: v.Z + height})
			remap[idx] = n
		}
		face[k] = n
	}
	out.Faces = []Face{face}
	return out, nil
}
