package cityjson

import (
	"fmt"
	"math"
	"strings"

	"cityjson-gen/internal/mesh"
)

// Role is the semantic surface type of a face. Its value is the index into Surfaces.
type Role int

const (
	Roof Role = iota
	Ground
	Wall
)

// Surfaces lists the semantic surfaces of every solid, indexed by Role.
var Surfaces = []Surface{
	{Type: "RoofSurface"},
	{Type: "GroundSurface"},
	{Type: "WallSurface"},
}

func (r Role) String() string {
	switch r {
	case Roof:
		return "Roof"
	case Ground:
		return "Ground"
	case Wall:
		return "Wall"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Material is the index into Materials used for faces of this role.
func (r Role) Material() int {
	if r == Wall {
		return 1
	}
	return 0
}

// Classifier assigns one Role per face of a building mesh.
type Classifier interface {
	Classify(m *mesh.Mesh) []Role
}

// PositionClassifier relies on the face order produced by extrusion and merging: the
// first face is the roof, the second the ground and the rest are walls. It does not
// look at the geometry.
type PositionClassifier struct{}

func (PositionClassifier) Classify(m *mesh.Mesh) []Role {
	roles := make([]Role, len(m.Faces))
	for i := range roles {
		switch i {
		case 0:
			roles[i] = Roof
		case 1:
			roles[i] = Ground
		default:
			roles[i] = Wall
		}
	}
	return roles
}

// NormalClassifier classifies by face orientation. Horizontal faces within Tolerance of
// the building's lowest vertex are ground, other faces with an up component are roofs,
// near-vertical faces are walls.
type NormalClassifier struct {
	Tolerance float64
}

func (c NormalClassifier) Classify(m *mesh.Mesh) []Role {
	lo, _ := m.Bounds()
	roles := make([]Role, len(m.Faces))
	for i := range m.Faces {
		verts, err := m.FaceVertices(i)
		if err != nil || len(verts) < 3 {
			roles[i] = Wall
			continue
		}
		n := faceNormal(verts)
		avgZ := 0.0
		for _, v := range verts {
			avgZ += v.Z
		}
		avgZ /= float64(len(verts))

		switch {
		case math.Abs(n.Z) > 0.95 && math.Abs(avgZ-lo.Z) <= c.Tolerance:
			roles[i] = Ground
		case math.Abs(n.Z) < 0.1:
			roles[i] = Wall
		default:
			roles[i] = Roof
		}
	}
	return roles
}

// faceNormal is the unit Newell normal of a polygon; (0,0,1) when it has no area.
func faceNormal(vs []mesh.Vertex) mesh.Vertex {
	var n mesh.Vertex
	for i := range vs {
		a, b := vs[i], vs[(i+1)%len(vs)]
		n.X += (a.Y - b.Y) * (a.Z + b.Z)
		n.Y += (a.Z - b.Z) * (a.X + b.X)
		n.Z += (a.X - b.X) * (a.Y + b.Y)
	}
	l := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z)
	if l == 0 {
		return mesh.Vertex{Z: 1}
	}
	return mesh.Vertex{X: n.X / l, Y: n.Y / l, Z: n.Z / l}
}

// NewClassifier returns the classifier registered under name: "position" (default) or
// "normal".
func NewClassifier(name string, tolerance float64) (Classifier, error) {
	switch strings.ToLower(name) {
	case "", "position":
		return PositionClassifier{}, nil
	case "normal":
		return NormalClassifier{Tolerance: tolerance}, nil
	}
	return nil, fmt.Errorf("unknown classifier %q", name)
}
