package config

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	c, err := parse(nil, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if c.Buffer != 0.001 || c.ExtrusionHeight != 1000 || c.IDField != "id" {
		t.Fatalf("defaults = %+v", c)
	}
	if c.Classifier != "position" || c.Geometry != "planar" || c.Workers < 1 {
		t.Fatalf("defaults = %+v", c)
	}
}

func TestParseEnvAndFlags(t *testing.T) {
	t.Setenv("C2J_BUFFER", "0.5")
	t.Setenv("C2J_EXTRUDE_HEIGHT", "250")
	t.Setenv("C2J_FOOTPRINTS", "env.shp")
	t.Setenv("C2J_WORKERS", "not-a-number")

	c, err := parse([]string{"-bo", "flag.geojson", "-epsg", "32750"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if c.Buffer != 0.5 || c.ExtrusionHeight != 250 {
		t.Errorf("env defaults not applied: %+v", c)
	}
	if c.FootprintPath != "flag.geojson" || c.EPSG != 32750 {
		t.Errorf("flags not applied: %+v", c)
	}
	if c.Workers < 1 {
		t.Errorf("bad env value should fall back, workers = %d", c.Workers)
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	fp := filepath.Join(dir, "fp.geojson")
	if err := os.WriteFile(fp, []byte(`{"type":"FeatureCollection","features":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		cfg     Config
		missing bool
	}{
		{"no footprints", Config{MeshDir: dir, Geometry: "planar"}, true},
		{"footprints absent", Config{FootprintPath: filepath.Join(dir, "nope.shp"), MeshDir: dir, Geometry: "planar"}, true},
		{"no mesh source", Config{FootprintPath: fp, Geometry: "planar"}, true},
		{"gml absent", Config{FootprintPath: fp, GMLPath: filepath.Join(dir, "x.gml"), Geometry: "planar"}, true},
		{"mesh dir is a file", Config{FootprintPath: fp, MeshDir: fp, Geometry: "planar"}, true},
		{"ok", Config{FootprintPath: fp, MeshDir: dir, OutputDir: dir, Geometry: "GDAL"}, false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if tc.missing != errors.Is(err, ErrMissingInput) {
			t.Errorf("%s: err = %v", tc.name, err)
		}
		if !tc.missing && err != nil {
			t.Errorf("%s: %v", tc.name, err)
		}
	}

	bad := Config{FootprintPath: fp, MeshDir: dir, Geometry: "geos"}
	if err := bad.Validate(); err == nil || errors.Is(err, ErrMissingInput) {
		t.Errorf("unknown backend err = %v", err)
	}
}

func TestDirs(t *testing.T) {
	out := t.TempDir()
	c := &Config{OutputDir: out}
	if err := c.PrepareDirs(); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{FragmentDir, MergedDir, DocumentDir} {
		if info, err := os.Stat(filepath.Join(out, d)); err != nil || !info.IsDir() {
			t.Errorf("%s not created", d)
		}
	}

	c.MeshDir = "/data/fragments"
	if c.FragmentDir() != "/data/fragments" {
		t.Errorf("FragmentDir = %s", c.FragmentDir())
	}
}
