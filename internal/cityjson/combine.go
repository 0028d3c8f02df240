package cityjson

import (
	"errors"
	"fmt"
	"sort"

	"cityjson-gen/internal/mesh"
)

var (
	ErrNoDocuments     = errors.New("no documents to combine")
	ErrReferenceSystem = errors.New("documents use different reference systems")
)

// Combine merges documents produced by separate runs into one. Vertex tables are
// concatenated and ring indices shifted; buildings are renumbered in document order,
// then by their original Id. A non-empty prefix is prepended to every city object id.
// The extent is the union of the input extents.
func Combine(prefix string, docs ...*Document) (*Document, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	refSys := docs[0].Metadata.ReferenceSystem
	extent := docs[0].Metadata.GeographicalExtent
	for _, d := range docs[1:] {
		if d.Metadata.ReferenceSystem != refSys {
			return nil, fmt.Errorf("%w: %s and %s", ErrReferenceSystem, refSys, d.Metadata.ReferenceSystem)
		}
		e := d.Metadata.GeographicalExtent
		for i := 0; i < 3; i++ {
			extent[i] = min(extent[i], e[i])
			extent[i+3] = max(extent[i+3], e[i+3])
		}
	}

	out := NewDocument(refSys, extent)
	var table VertexTable
	ordinal := 0
	for _, d := range docs {
		vs := make([]mesh.Vertex, len(d.Vertices))
		for i, v := range d.Vertices {
			vs[i] = mesh.Vertex{X: v[0], Y: v[1], Z: v[2]}
		}
		offset := table.Append(vs)

		ids := make([]string, 0, len(d.CityObjects))
		for id := range d.CityObjects {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			a, b := d.CityObjects[ids[i]].Attributes.ID, d.CityObjects[ids[j]].Attributes.ID
			if a != b {
				return a < b
			}
			return ids[i] < ids[j]
		})

		for _, id := range ids {
			newID := id
			if prefix != "" {
				newID = prefix + "_" + id
			}
			if _, dup := out.CityObjects[newID]; dup {
				return nil, fmt.Errorf("city object %s appears in more than one document", newID)
			}
			obj := shiftObject(d.CityObjects[id], offset)
			obj.Attributes.Level0 = ordinal
			obj.Attributes.ID = ordinal + 1
			out.CityObjects[newID] = obj
			ordinal++
		}
	}
	out.Vertices = table.Vertices()
	return out, nil
}

// shiftObject deep-copies obj with every boundary index moved by offset.
func shiftObject(obj *CityObject, offset int) *CityObject {
	cp := *obj
	cp.Geometry = make([]Geometry, len(obj.Geometry))
	for gi, g := range obj.Geometry {
		ng := g
		ng.Boundaries = make([][][][]int, len(g.Boundaries))
		for si, shell := range g.Boundaries {
			ns := make([][][]int, len(shell))
			for fi, surface := range shell {
				nsurf := make([][]int, len(surface))
				for ri, ring := range surface {
					nr := make([]int, len(ring))
					for k, idx := range ring {
						nr[k] = idx + offset
					}
					nsurf[ri] = nr
				}
				ns[fi] = nsurf
			}
			ng.Boundaries[si] = ns
		}
		cp.Geometry[gi] = ng
	}
	return &cp
}
