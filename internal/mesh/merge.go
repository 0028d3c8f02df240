package mesh

// Merge concatenates meshes into one named mesh. Vertex tables are appended as-is and
// each source's face indices are shifted by the number of vertices before it. Face
// order is the source order followed by each source's own face order; nothing is
// sorted or deduplicated.
func Merge(name string, meshes ...*Mesh) *Mesh {
	nv, nf := 0, 0
	for _, m := range meshes {
		nv += len(m.Vertices)
		nf += len(m.Faces)
	}
	out := &Mesh{
		Name:     name,
		Vertices: make([]Vertex, 0, nv),
		Faces:    make([]Face, 0, nf),
	}
	for _, m := range meshes {
		offset := len(out.Vertices)
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, f := range m.Faces {
			shifted := make(Face, len(f))
			for k, idx := range f {
				shifted[k] = idx + offset
			}
			out.Faces = append(out.Faces, shifted)
		}
	}
	return out
}
