// Package spatial projects mesh faces onto the ground plane and claims them for
// building footprints.
package spatial

import (
	"cityjson-gen/internal/geom"
	"cityjson-gen/internal/mesh"

	"github.com/paulmach/orb"
)

// ProjectedFace is the 2D outline of one mesh face with a reference back to it.
type ProjectedFace struct {
	Mesh  *mesh.Mesh
	Face  int
	Ring  orb.Ring
	Bound orb.Bound
	// Degenerate faces never match a footprint.
	Degenerate bool
}

// Project drops the z coordinate of every face of m. Rings are closed. Faces whose
// vertex references are broken come out degenerate with an empty ring.
func Project(m *mesh.Mesh) []ProjectedFace {
	out := make([]ProjectedFace, 0, len(m.Faces))
	for i := range m.Faces {
		pf := ProjectedFace{Mesh: m, Face: i}
		verts, err := m.FaceVertices(i)
		if err != nil || len(verts) == 0 {
			pf.Degenerate = true
			out = append(out, pf)
			continue
		}
		ring := make(orb.Ring, 0, len(verts)+1)
		for _, v := range verts {
			ring = append(ring, orb.Point{v.X, v.Y})
		}
		if !ring.Closed() {
			ring = append(ring, ring[0])
		}
		pf.Ring = ring
		pf.Bound = ring.Bound()
		pf.Degenerate = geom.Degenerate(ring)
		out = append(out, pf)
	}
	return out
}

// ProjectAll projects meshes in order, keeping each mesh's face order.
func ProjectAll(meshes []*mesh.Mesh) []ProjectedFace {
	var out []ProjectedFace
	for _, m := range meshes {
		out = append(out, Project(m)...)
	}
	return out
}
