// Package config reads the converter settings from flags, falling back to environment
// variables and an optional .env file for every default.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"cityjson-gen/internal/geom"
	"cityjson-gen/internal/mesh"

	"github.com/joho/godotenv"
)

var ErrMissingInput = errors.New("missing input")

// Output subdirectories.
const (
	FragmentDir = "OBJ"
	MergedDir   = "merged_OBJ"
	DocumentDir = "cityjson"
)

type Config struct {
	GMLPath       string
	FootprintPath string
	OutputDir     string
	// MeshDir holds existing fragments; when set the separator is not run.
	MeshDir string
	IDField string

	Buffer          float64
	ExtrusionHeight float64
	// EPSG overrides the footprint CRS when non-zero.
	EPSG int

	Workers         int
	Classifier      string
	GroundTolerance float64
	// Geometry selects the matching predicate: "planar" or "gdal".
	Geometry string

	SeparatorCmd string
	CatalogPath  string
	MetricsPath  string
	Debug        bool
	Help         bool
}

// Load parses args (without the program name). Values from .env are loaded first and
// never override variables already set in the environment.
func Load(args []string, usage io.Writer) (*Config, error) {
	_ = godotenv.Load(".env")
	return parse(args, usage)
}

func parse(args []string, usage io.Writer) (*Config, error) {
	c := &Config{}
	fs := flag.NewFlagSet("obj2cityjson", flag.ContinueOnError)
	if usage != nil {
		fs.SetOutput(usage)
	}
	fs.StringVar(&c.GMLPath, "gml", envString("C2J_GML", ""), "CityGML input to split into OBJ fragments")
	fs.StringVar(&c.FootprintPath, "bo", envString("C2J_FOOTPRINTS", ""), "building footprint file (shp, geojson or any OGR format) (required)")
	fs.StringVar(&c.OutputDir, "o", envString("C2J_OUTPUT", "output"), "output directory")
	fs.StringVar(&c.MeshDir, "obj", envString("C2J_OBJ_DIR", ""), "existing OBJ fragment directory; skips the separator")
	fs.StringVar(&c.IDField, "id-field", envString("C2J_ID_FIELD", "id"), "footprint attribute holding the building id")
	fs.Float64Var(&c.Buffer, "buffer", envFloat("C2J_BUFFER", geom.DefaultBuffer), "buffer distance applied to faces before intersecting")
	fs.Float64Var(&c.ExtrusionHeight, "height", envFloat("C2J_EXTRUDE_HEIGHT", mesh.DefaultExtrusionHeight), "vertical offset added to matched faces")
	fs.IntVar(&c.EPSG, "epsg", envInt("C2J_EPSG", 0), "EPSG code for the output, overriding the footprint CRS")
	fs.IntVar(&c.Workers, "workers", envInt("C2J_WORKERS", runtime.NumCPU()), "buildings processed in parallel")
	fs.StringVar(&c.Classifier, "classifier", envString("C2J_CLASSIFIER", "position"), "semantic classifier: position or normal")
	fs.Float64Var(&c.GroundTolerance, "ground-tolerance", envFloat("C2J_GROUND_TOLERANCE", 0.5), "height band above the lowest vertex treated as ground (normal classifier)")
	fs.StringVar(&c.Geometry, "geometry", envString("C2J_GEOMETRY", "planar"), "intersection backend: planar or gdal")
	fs.StringVar(&c.SeparatorCmd, "separator", envString("C2J_SEPARATOR", ""), "CityGML splitter command with {input} and {output} placeholders")
	fs.StringVar(&c.CatalogPath, "catalog", envString("C2J_CATALOG", ""), "SQLite run catalog path")
	fs.StringVar(&c.MetricsPath, "metrics", envString("C2J_METRICS", ""), "Prometheus textfile path")
	fs.BoolVar(&c.Debug, "debug", envBool("C2J_DEBUG", false), "enable debug logging")
	fs.BoolVar(&c.Help, "help", false, "show help")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks required inputs and normalises paths to absolute form.
func (c *Config) Validate() error {
	if c.FootprintPath == "" {
		return fmt.Errorf("%w: -bo footprint file is required", ErrMissingInput)
	}
	if _, err := os.Stat(c.FootprintPath); err != nil {
		return fmt.Errorf("%w: footprint file: %v", ErrMissingInput, err)
	}
	if c.GMLPath == "" && c.MeshDir == "" {
		return fmt.Errorf("%w: one of -gml or -obj is required", ErrMissingInput)
	}
	if c.MeshDir != "" {
		if info, err := os.Stat(c.MeshDir); err != nil {
			return fmt.Errorf("%w: fragment directory: %v", ErrMissingInput, err)
		} else if !info.IsDir() {
			return fmt.Errorf("%w: fragment path %s is not a directory", ErrMissingInput, c.MeshDir)
		}
	} else if _, err := os.Stat(c.GMLPath); err != nil {
		return fmt.Errorf("%w: gml file: %v", ErrMissingInput, err)
	}
	if c.Buffer < 0 {
		return fmt.Errorf("buffer must not be negative, got %g", c.Buffer)
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	switch strings.ToLower(c.Geometry) {
	case "planar", "gdal":
		c.Geometry = strings.ToLower(c.Geometry)
	default:
		return fmt.Errorf("unknown geometry backend %q", c.Geometry)
	}

	for _, p := range []*string{&c.GMLPath, &c.FootprintPath, &c.OutputDir, &c.MeshDir} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return fmt.Errorf("invalid path %s: %w", *p, err)
		}
		*p = abs
	}
	return nil
}

// FragmentDir is where per-face OBJ fragments live.
func (c *Config) FragmentDir() string {
	if c.MeshDir != "" {
		return c.MeshDir
	}
	return filepath.Join(c.OutputDir, FragmentDir)
}

func (c *Config) MergedDir() string { return filepath.Join(c.OutputDir, MergedDir) }

func (c *Config) DocumentDir() string { return filepath.Join(c.OutputDir, DocumentDir) }

// PrepareDirs creates the output directories.
func (c *Config) PrepareDirs() error {
	dirs := []string{c.MergedDir(), c.DocumentDir()}
	if c.MeshDir == "" {
		dirs = append(dirs, c.FragmentDir())
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}
