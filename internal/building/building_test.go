package building

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"cityjson-gen/internal/footprint"
	"cityjson-gen/internal/logger"
	"cityjson-gen/internal/mesh"
	"cityjson-gen/internal/metrics"
	"cityjson-gen/internal/spatial"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func square(id string, x0, y0, size float64) footprint.Footprint {
	mp := orb.MultiPolygon{{{{x0, y0}, {x0 + size, y0}, {x0 + size, y0 + size}, {x0, y0 + size}, {x0, y0}}}}
	return footprint.Footprint{ID: id, Geometry: mp, Bound: mp.Bound()}
}

// grid returns n small triangles in a row starting at x0, all at height z.
func grid(name string, x0 float64, n int, z float64) *mesh.Mesh {
	m := &mesh.Mesh{Name: name}
	for i := 0; i < n; i++ {
		x := x0 + float64(i)*2 + 0.5
		base := len(m.Vertices)
		m.Vertices = append(m.Vertices, mesh.Vertex{X: x, Y: 1, Z: z}, mesh.Vertex{X: x + 1, Y: 1, Z: z}, mesh.Vertex{X: x, Y: 2, Z: z})
		m.Faces = append(m.Faces, mesh.Face{base, base + 1, base + 2})
	}
	return m
}

func newPipeline(t *testing.T, workers int) *Pipeline {
	return &Pipeline{
		Matcher:   spatial.NewMatcher(nil, 0.001),
		Height:    1000,
		Workers:   workers,
		MergedDir: t.TempDir(),
		Log:       logger.Discard(),
	}
}

func TestRunFaceCounts(t *testing.T) {
	meshes := []*mesh.Mesh{grid("a.obj", 0, 4, 10), grid("b.obj", 100, 3, 7)}
	faces := spatial.ProjectAll(meshes)
	fps := []footprint.Footprint{
		square("B1", 0, 0, 8),
		square("B2", 100, 0, 6),
		square("B3", 500, 500, 10),
	}

	p := newPipeline(t, 2)
	p.Metrics = metrics.New()
	sum, err := p.Run(context.Background(), fps, faces)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum.Merged != 2 || sum.NoMatch != 1 || sum.Failed != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	wantFaces := []int{4, 3, 0}
	for i, r := range sum.Results {
		if r.BuildingID != fps[i].ID {
			t.Errorf("result %d is %s, want %s", i, r.BuildingID, fps[i].ID)
		}
		if r.Faces != wantFaces[i] {
			t.Errorf("%s: faces = %d, want %d", r.BuildingID, r.Faces, wantFaces[i])
		}
	}
	if !errors.Is(sum.Results[2].Err, ErrNoMatch) {
		t.Errorf("B3 err = %v", sum.Results[2].Err)
	}
	if got := testutil.ToFloat64(p.Metrics.FacesMatched); got != 7 {
		t.Errorf("faces matched metric = %v", got)
	}

	m, _, err := mesh.ReadObj(sum.Results[0].File)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Faces) != 4 || len(m.Vertices) != 12 {
		t.Fatalf("merged mesh: %d faces, %d vertices", len(m.Faces), len(m.Vertices))
	}
	for _, v := range m.Vertices {
		if v.Z != 1010 {
			t.Fatalf("vertex z = %v, want 1010", v.Z)
		}
	}
	if meshes[0].Vertices[0].Z != 10 {
		t.Error("source mesh was modified")
	}
	if filepath.Base(sum.Results[1].File) != "merged_building_B2.obj" {
		t.Errorf("file = %s", sum.Results[1].File)
	}
}

func TestRunPreservesFaceOrder(t *testing.T) {
	a := grid("a.obj", 0, 2, 0)
	b := grid("b.obj", 4, 1, 5)
	faces := spatial.ProjectAll([]*mesh.Mesh{a, b})

	p := newPipeline(t, 1)
	sum, err := p.Run(context.Background(), []footprint.Footprint{square("B1", 0, 0, 10)}, faces)
	if err != nil {
		t.Fatal(err)
	}
	m, _, err := mesh.ReadObj(sum.Results[0].File)
	if err != nil {
		t.Fatal(err)
	}
	// a's faces come first, then b's, each triangle starting at its own x.
	wantX := []float64{0.5, 2.5, 4.5}
	for i, f := range m.Faces {
		if got := m.Vertices[f[0]].X; got != wantX[i] {
			t.Errorf("face %d starts at x=%v, want %v", i, got, wantX[i])
		}
	}
	if m.Vertices[m.Faces[2][0]].Z != 1005 {
		t.Errorf("face from b has z %v", m.Vertices[m.Faces[2][0]].Z)
	}
}

func TestOverlappingFootprints(t *testing.T) {
	faces := spatial.ProjectAll([]*mesh.Mesh{grid("a.obj", 0, 1, 0)})
	p := newPipeline(t, 1)
	sum, err := p.Run(context.Background(), []footprint.Footprint{square("B1", 0, 0, 4), square("B2", 0, 0, 4)}, faces)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Merged != 2 || sum.SharedFaces != 1 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(sum.Results[1].SharedWith) != 1 || sum.Results[1].SharedWith[0] != "B1" {
		t.Errorf("shared with = %v", sum.Results[1].SharedWith)
	}
}

func TestRunCancelled(t *testing.T) {
	faces := spatial.ProjectAll([]*mesh.Mesh{grid("a.obj", 0, 1, 0)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := newPipeline(t, 2).Run(ctx, []footprint.Footprint{square("B1", 0, 0, 4)}, faces)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(sum.Results) != 0 {
		t.Fatalf("results after cancel = %+v", sum.Results)
	}
}

func TestProcessWriteFailure(t *testing.T) {
	faces := spatial.ProjectAll([]*mesh.Mesh{grid("a.obj", 0, 1, 0)})
	p := newPipeline(t, 1)
	p.MergedDir = filepath.Join(p.MergedDir, "missing", "dir")
	fp := square("B1", 0, 0, 4)
	r := p.Process(&fp, faces)
	if r.Status != StatusFailed || r.Err == nil {
		t.Fatalf("result = %+v", r)
	}
}

func TestMergedFileName(t *testing.T) {
	cases := map[string]string{
		"B1":      "merged_building_B1.obj",
		"a/b":     "merged_building_a_b.obj",
		`c:\d`:    "merged_building_c__d.obj",
		"1234-ab": "merged_building_1234-ab.obj",
	}
	for id, want := range cases {
		if got := MergedFileName(id); got != want {
			t.Errorf("MergedFileName(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestCollidingFileNamesKeepFirstBuilding(t *testing.T) {
	a := square("a/b", 0, 0, 4)
	b := square("a_b", 0, 0, 4)
	src := footprint.Build("mem", []footprint.Record{
		{ID: a.ID, HasID: true, Geometry: a.Geometry},
		{ID: b.ID, HasID: true, Geometry: b.Geometry},
	})
	faces := spatial.ProjectAll([]*mesh.Mesh{grid("a.obj", 0, 1, 0)})
	p := newPipeline(t, 2)
	sum, err := p.Run(context.Background(), src.Footprints, faces)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Merged != 1 || len(sum.Results) != 1 || sum.Results[0].BuildingID != "a/b" {
		t.Fatalf("summary = %+v", sum)
	}
	files, err := mesh.ListObjFiles(p.MergedDir)
	if err != nil || len(files) != sum.Merged {
		t.Fatalf("merged files = %v, err = %v", files, err)
	}
}
