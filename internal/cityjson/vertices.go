package cityjson

import "cityjson-gen/internal/mesh"

// VertexTable is the document-wide vertex list. It only grows; indices handed out by
// Append stay valid for the life of the table.
type VertexTable struct {
	vertices [][3]float64
}

// Append adds vs to the end of the table and returns the index of the first one. Face
// indices local to vs become global by adding that offset.
func (t *VertexTable) Append(vs []mesh.Vertex) int {
	offset := len(t.vertices)
	for _, v := range vs {
		t.vertices = append(t.vertices, [3]float64{v.X, v.Y, v.Z})
	}
	return offset
}

func (t *VertexTable) Len() int { return len(t.vertices) }

// Vertices returns a copy of the table.
func (t *VertexTable) Vertices() [][3]float64 {
	return append(make([][3]float64, 0, len(t.vertices)), t.vertices...)
}
