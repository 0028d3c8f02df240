package mesh

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const cubeTop = `# fragment
o roof
v 0 0 10
v 1 0 10
v 1 1 10
v 0 1 10
vn 0 0 1
f 1//1 2//1 3//1
f 1/1/1 3/3/1 4/4/1
`

func TestParseObj(t *testing.T) {
	m, skipped, err := ParseObj(strings.NewReader(cubeTop), "top.obj")
	if err != nil {
		t.Fatalf("ParseObj: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped lines: %v", skipped)
	}
	if len(m.Vertices) != 4 {
		t.Fatalf("vertices = %d, want 4", len(m.Vertices))
	}
	want := []Face{{0, 1, 2}, {0, 2, 3}}
	if !reflect.DeepEqual(m.Faces, want) {
		t.Fatalf("faces = %v, want %v", m.Faces, want)
	}
}

func TestParseObjSkipsMalformedLines(t *testing.T) {
	src := `v 0 0 0
v 1 0 0
v 1 1
v a b c
v nan 0 0
v 1 inf 0
v 0 1 0
f 1 2
f 1 2 x
f 1 2 9
f 0 1 2
f -3 -2 -1
`
	m, skipped, err := ParseObj(strings.NewReader(src), "bad.obj")
	if err != nil {
		t.Fatalf("ParseObj: %v", err)
	}
	if len(m.Vertices) != 3 {
		t.Fatalf("vertices = %d, want 3", len(m.Vertices))
	}
	if want := []Face{{0, 1, 2}}; !reflect.DeepEqual(m.Faces, want) {
		t.Fatalf("faces = %v, want %v", m.Faces, want)
	}
	if len(skipped) != 8 {
		t.Fatalf("skipped = %d, want 8: %v", len(skipped), skipped)
	}
	for _, le := range skipped {
		if !errors.Is(le, ErrMalformedLine) {
			t.Errorf("%v does not wrap ErrMalformedLine", le)
		}
	}
}

func TestObjRoundTrip(t *testing.T) {
	orig := &Mesh{
		Name: "rt",
		Vertices: []Vertex{
			{692827.46065, 9326588.60235, 12.5},
			{0.1, 0.2, 0.30000000000000004},
			{-1e-9, 1234567.000001, 0},
		},
		Faces: []Face{{0, 1, 2}, {2, 1, 0}},
	}
	var buf bytes.Buffer
	if err := WriteObj(&buf, orig); err != nil {
		t.Fatalf("WriteObj: %v", err)
	}
	got, skipped, err := ParseObj(&buf, "rt")
	if err != nil || len(skipped) != 0 {
		t.Fatalf("ParseObj: %v %v", err, skipped)
	}
	if !reflect.DeepEqual(got.Vertices, orig.Vertices) {
		t.Errorf("vertices = %v, want %v", got.Vertices, orig.Vertices)
	}
	if !reflect.DeepEqual(got.Faces, orig.Faces) {
		t.Errorf("faces = %v, want %v", got.Faces, orig.Faces)
	}
}

func TestExtrude(t *testing.T) {
	m, _, _ := ParseObj(strings.NewReader(cubeTop), "top.obj")
	before := append([]Vertex(nil), m.Vertices...)

	ex, err := Extrude(m, 1, 1000)
	if err != nil {
		t.Fatalf("Extrude: %v", err)
	}
	if want := []Face{{0, 1, 2}}; !reflect.DeepEqual(ex.Faces, want) {
		t.Fatalf("faces = %v, want %v", ex.Faces, want)
	}
	want := []Vertex{{0, 0, 1010}, {1, 1, 1010}, {0, 1, 1010}}
	if !reflect.DeepEqual(ex.Vertices, want) {
		t.Fatalf("vertices = %v, want %v", ex.Vertices, want)
	}
	if !reflect.DeepEqual(m.Vertices, before) {
		t.Fatal("source mesh was modified")
	}

	if _, err := Extrude(m, 5, 1); !errors.Is(err, ErrFaceIndex) {
		t.Fatalf("err = %v, want ErrFaceIndex", err)
	}
}

func TestExtrudeRepeatedVertex(t *testing.T) {
	m := &Mesh{
		Vertices: []Vertex{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
		Faces:    []Face{{2, 0, 1, 0}},
	}
	ex, err := Extrude(m, 0, 5)
	if err != nil {
		t.Fatalf("Extrude: %v", err)
	}
	if len(ex.Vertices) != 3 {
		t.Fatalf("vertices = %d, want 3", len(ex.Vertices))
	}
	if want := (Face{0, 1, 2, 1}); !reflect.DeepEqual(ex.Faces[0], want) {
		t.Fatalf("face = %v, want %v", ex.Faces[0], want)
	}
}

func TestMerge(t *testing.T) {
	a := &Mesh{Vertices: []Vertex{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}}, Faces: []Face{{0, 1, 2}}}
	b := &Mesh{Vertices: []Vertex{{5, 5, 5}, {6, 5, 5}, {6, 6, 5}, {5, 6, 5}}, Faces: []Face{{0, 1, 2}, {0, 2, 3}}}
	c := &Mesh{Vertices: []Vertex{{9, 9, 9}, {8, 9, 9}, {8, 8, 9}}, Faces: []Face{{2, 1, 0}}}

	got := Merge("merged_building_B1", a, b, c)
	if got.Name != "merged_building_B1" {
		t.Errorf("name = %q", got.Name)
	}
	if len(got.Vertices) != 10 {
		t.Fatalf("vertices = %d, want 10", len(got.Vertices))
	}
	want := []Face{{0, 1, 2}, {3, 4, 5}, {3, 5, 6}, {9, 8, 7}}
	if !reflect.DeepEqual(got.Faces, want) {
		t.Fatalf("faces = %v, want %v", got.Faces, want)
	}
	if !reflect.DeepEqual(b.Faces, []Face{{0, 1, 2}, {0, 2, 3}}) {
		t.Fatal("source faces were shifted in place")
	}
}

func TestListObjFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.obj", "a.obj", "notes.txt", "C.OBJ"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.obj"), 0o755); err != nil {
		t.Fatal(err)
	}
	files, err := ListObjFiles(dir)
	if err != nil {
		t.Fatalf("ListObjFiles: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	if want := []string{"C.OBJ", "a.obj", "b.obj"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("files = %v, want %v", names, want)
	}

	if _, err := ListObjFiles(filepath.Join(dir, "missing")); !errors.Is(err, ErrNoDirectory) {
		t.Fatalf("err = %v, want ErrNoDirectory", err)
	}
}

func TestSaveAndReadObj(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.obj")
	m := &Mesh{Name: "m", Vertices: []Vertex{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}, Faces: []Face{{0, 1, 2}}}
	if err := SaveObj(path, m); err != nil {
		t.Fatalf("SaveObj: %v", err)
	}
	got, _, err := ReadObj(path)
	if err != nil {
		t.Fatalf("ReadObj: %v", err)
	}
	if got.Name != "m.obj" {
		t.Errorf("name = %q, want m.obj", got.Name)
	}
	if !reflect.DeepEqual(got.Faces, m.Faces) || !reflect.DeepEqual(got.Vertices, m.Vertices) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}
