package spatial

import (
	"sync"

	"cityjson-gen/internal/footprint"
	"cityjson-gen/internal/geom"
	"cityjson-gen/internal/mesh"
)

// MatchedFace is a mesh face claimed by a footprint.
type MatchedFace struct {
	Mesh      *mesh.Mesh
	Face      int
	Footprint *footprint.Footprint
}

// Matcher selects the projected faces that touch a footprint once grown by Buffer.
type Matcher struct {
	Predicate geom.Predicate
	Buffer    float64
}

// NewMatcher returns a Matcher; a nil predicate means geom.Planar.
func NewMatcher(p geom.Predicate, buffer float64) *Matcher {
	if p == nil {
		p = geom.Planar{}
	}
	return &Matcher{Predicate: p, Buffer: buffer}
}

// Match returns the faces claimed by fp in the order they appear in faces. Faces whose
// padded bound misses the footprint's bound are rejected without running the predicate.
func (m *Matcher) Match(fp *footprint.Footprint, faces []ProjectedFace) []MatchedFace {
	var out []MatchedFace
	for i := range faces {
		pf := &faces[i]
		if pf.Degenerate {
			continue
		}
		if !pf.Bound.Pad(m.Buffer).Intersects(fp.Bound) {
			continue
		}
		if !m.Predicate.BufferedIntersects(pf.Ring, fp.Geometry, m.Buffer) {
			continue
		}
		out = append(out, MatchedFace{Mesh: pf.Mesh, Face: pf.Face, Footprint: fp})
	}
	return out
}

type faceKey struct {
	mesh *mesh.Mesh
	face int
}

// Claims records which building first claimed each face. Overlapping footprints may
// claim the same face; Claims only counts that, it does not take the face away.
type Claims struct {
	mu     sync.Mutex
	owners map[faceKey]string
	shared int
}

// NewClaims returns an empty claim register.
func NewClaims() *Claims {
	return &Claims{owners: make(map[faceKey]string)}
}

// Claim registers faces for building id and returns the ids of other buildings that
// already claimed any of them.
func (c *Claims) Claim(id string, faces []MatchedFace) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var others []string
	seen := make(map[string]bool)
	for _, f := range faces {
		k := faceKey{f.Mesh, f.Face}
		owner, ok := c.owners[k]
		if !ok {
			c.owners[k] = id
			continue
		}
		if owner != id {
			c.shared++
			if !seen[owner] {
				seen[owner] = true
				others = append(others, owner)
			}
		}
	}
	return others
}

// Shared is the number of face claims that hit a face another building already held.
func (c *Claims) Shared() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shared
}
