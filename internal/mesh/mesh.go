// Package mesh holds the in-memory vertex/face tables read from OBJ fragments and the
// operations that derive new meshes from them: extrusion of a single face and
// concatenation of several meshes into one building solid.
package mesh

import (
	"errors"
	"fmt"
)

// ErrFaceIndex is returned when a face index is outside the mesh.
var ErrFaceIndex = errors.New("face index out of range")

// Vertex is a 3D position.
type Vertex struct {
	X, Y, Z float64
}

// Face is an ordered list of 0-based vertex indices into the owning mesh.
type Face []int

// Mesh is a vertex table plus faces referencing it. A mesh owns its vertices; derived
// meshes always get their own copy.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Faces    []Face
}

// FaceVertices returns the vertices referenced by face i, in face order.
func (m *Mesh) FaceVertices(i int) ([]Vertex, error) {
	if i < 0 || i >= len(m.Faces) {
		return nil, fmt.Errorf("%s: face %d: %w", m.Name, i, ErrFaceIndex)
	}
	face := m.Faces[i]
	out := make([]Vertex, len(face))
	for k, idx := range face {
		if idx < 0 || idx >= len(m.Vertices) {
			return nil, fmt.Errorf("%s: face %d references vertex %d of %d: %w", m.Name, i, idx, len(m.Vertices), ErrFaceIndex)
		}
		out[k] = m.Vertices[idx]
	}
	return out, nil
}

// Bounds returns the min and max corner of the vertex table. An empty mesh returns
// zero vertices.
func (m *Mesh) Bounds() (min, max Vertex) {
	if len(m.Vertices) == 0 {
		return Vertex{}, Vertex{}
	}
	min, max = m.Vertices[0], m.Vertices[0]
	for _, v := range m.Vertices[1:] {
		if v.X < min.X {
			min.X = v.X
		}
		if v.Y < min.Y {
			min.Y = v.Y
		}
		if v.Z < min.Z {
			min.Z = v.Z
		}
		if v.X > max.X {
			max.X = v.X
		}
		if v.Y > max.Y {
			max.Y = v.Y
		}
		if v.Z > max.Z {
			max.Z = v.Z
		}
	}
	return min, max
}
