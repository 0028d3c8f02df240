// Package converter runs the whole conversion: fragments, footprints, per-building
// merge and the final CityJSON document.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cityjson-gen/internal/building"
	"cityjson-gen/internal/catalog"
	"cityjson-gen/internal/cityjson"
	"cityjson-gen/internal/config"
	"cityjson-gen/internal/footprint"
	"cityjson-gen/internal/geom"
	"cityjson-gen/internal/logger"
	"cityjson-gen/internal/mesh"
	"cityjson-gen/internal/metrics"
	"cityjson-gen/internal/separator"
	"cityjson-gen/internal/spatial"

	"github.com/google/uuid"
)

// DefaultEPSG is used when neither the configuration nor the footprints name a CRS.
const DefaultEPSG = 32749

// FailedFile is a fragment that could not be read.
type FailedFile struct {
	Name  string
	Error string
}

// Report describes one run.
type Report struct {
	RunID          string
	StartTime      time.Time
	Elapsed        time.Duration
	Source         *footprint.Source
	EPSG           int
	Fragments      int
	Faces          int
	MalformedLines int
	FailedFiles    []FailedFile
	Buildings      *building.Summary
	Assembly       cityjson.Stats
	DocumentPath   string
}

// Converter runs every stage of a conversion for one Config.
type Converter struct {
	Config  *config.Config
	Log     *slog.Logger
	Metrics *metrics.Run

	// Separator defaults to the directory lister when Config.MeshDir is set and to
	// the external splitter otherwise.
	Separator separator.Separator
	// FootprintFallback reads formats other than shapefile and GeoJSON.
	FootprintFallback footprint.Reader
	// IdentifyEPSG resolves a WKT definition without an EPSG authority. May be nil.
	IdentifyEPSG func(wkt string) (int, error)
	// Predicate defaults to geom.Planar.
	Predicate geom.Predicate
}

func New(cfg *config.Config, log *slog.Logger) *Converter {
	if log == nil {
		log = logger.L()
	}
	return &Converter{Config: cfg, Log: log, Metrics: metrics.New()}
}

// Run executes every stage. Per-building problems are recorded in the report; an error
// is returned only for missing inputs, unwritable outputs or cancellation.
func (c *Converter) Run(ctx context.Context) (*Report, error) {
	cfg := c.Config
	rep := &Report{RunID: uuid.NewString(), StartTime: time.Now()}
	defer func() { rep.Elapsed = time.Since(rep.StartTime) }()

	if err := cfg.PrepareDirs(); err != nil {
		return rep, err
	}

	src, err := footprint.Open(cfg.FootprintPath, cfg.IDField, c.FootprintFallback)
	if err != nil {
		return rep, fmt.Errorf("%w: footprints: %v", config.ErrMissingInput, err)
	}
	rep.Source = src
	c.Metrics.FootprintsLoaded.Set(float64(len(src.Footprints)))
	c.Metrics.FootprintsReject.Set(float64(len(src.Rejected)))
	for _, r := range src.Rejected {
		c.Log.Warn("footprint_rejected", "row", r.Row, "id", r.ID, "err", r.Err)
	}
	c.Log.Info("footprints_loaded", "file", filepath.Base(src.Path), "usable", len(src.Footprints), "rejected", len(src.Rejected))
	rep.EPSG = c.resolveEPSG(src)

	sep, err := c.separator()
	if err != nil {
		return rep, err
	}
	files, err := sep.Separate(ctx, cfg.GMLPath, cfg.FragmentDir())
	if err != nil {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		return rep, fmt.Errorf("%w: fragments: %v", config.ErrMissingInput, err)
	}
	meshes := c.loadFragments(files, rep)
	faces := spatial.ProjectAll(meshes)
	rep.Faces = len(faces)
	c.Log.Info("fragments_loaded", "files", rep.Fragments, "faces", rep.Faces, "malformed_lines", rep.MalformedLines)

	if err := clearMerged(cfg.MergedDir()); err != nil {
		return rep, err
	}
	pipe := &building.Pipeline{
		Matcher:   spatial.NewMatcher(c.Predicate, cfg.Buffer),
		Height:    cfg.ExtrusionHeight,
		Workers:   cfg.Workers,
		MergedDir: cfg.MergedDir(),
		Log:       c.Log,
		Metrics:   c.Metrics,
	}
	rep.Buildings, err = pipe.Run(ctx, src.Footprints, faces)
	if err != nil {
		return rep, err
	}

	classifier, err := cityjson.NewClassifier(cfg.Classifier, cfg.GroundTolerance)
	if err != nil {
		return rep, err
	}
	asm := cityjson.NewAssembler(classifier, c.Log)
	rep.Assembly, err = asm.AssembleDir(ctx, cfg.MergedDir())
	if err != nil {
		return rep, err
	}
	c.Metrics.MalformedLines.Add(float64(rep.Assembly.MalformedLines))
	c.Metrics.CityObjects.Add(float64(asm.Len()))

	doc := asm.Document(footprint.ReferenceSystem(rep.EPSG), src.Extent())
	rep.DocumentPath = filepath.Join(cfg.DocumentDir(), cityjson.FileName)
	if err := doc.Save(rep.DocumentPath); err != nil {
		return rep, fmt.Errorf("write document: %w", err)
	}
	c.Log.Info("document_written", "path", rep.DocumentPath, "city_objects", asm.Len(), "vertices", len(doc.Vertices))

	if cfg.MetricsPath != "" {
		if err := c.Metrics.WriteTextfile(cfg.MetricsPath); err != nil {
			c.Log.Warn("metrics_write_failed", "path", cfg.MetricsPath, "err", err)
		}
	}
	if cfg.CatalogPath != "" {
		if err := c.record(rep, asm.Len()); err != nil {
			c.Log.Warn("catalog_write_failed", "path", cfg.CatalogPath, "err", err)
		}
	}
	return rep, nil
}

func (c *Converter) separator() (separator.Separator, error) {
	if c.Separator != nil {
		return c.Separator, nil
	}
	if c.Config.MeshDir != "" {
		return separator.Static{Dir: c.Config.MeshDir}, nil
	}
	cmd := c.Config.SeparatorCmd
	if cmd == "" {
		cmd = separator.DefaultCommand
	}
	return separator.NewExec(cmd, c.Log)
}

// resolveEPSG picks the override, then the code named by the footprint file, then
// GDAL identification of its WKT, then DefaultEPSG.
func (c *Converter) resolveEPSG(src *footprint.Source) int {
	if c.Config.EPSG > 0 {
		return c.Config.EPSG
	}
	if src.EPSG > 0 {
		return src.EPSG
	}
	if src.WKT != "" && c.IdentifyEPSG != nil {
		if code, err := c.IdentifyEPSG(src.WKT); err == nil && code > 0 {
			return code
		}
	}
	c.Log.Warn("crs_unknown", "file", filepath.Base(src.Path), "epsg", DefaultEPSG)
	return DefaultEPSG
}

func (c *Converter) loadFragments(files []string, rep *Report) []*mesh.Mesh {
	meshes := make([]*mesh.Mesh, 0, len(files))
	for _, path := range files {
		m, skipped, err := mesh.ReadObj(path)
		rep.MalformedLines += len(skipped)
		c.Metrics.MalformedLines.Add(float64(len(skipped)))
		for _, le := range skipped {
			c.Log.Debug("mesh_line_skipped", "file", filepath.Base(path), "line", le.Line, "reason", le.Reason)
		}
		if err != nil {
			rep.FailedFiles = append(rep.FailedFiles, FailedFile{Name: filepath.Base(path), Error: err.Error()})
			c.Log.Warn("fragment_unreadable", "file", filepath.Base(path), "err", err)
			continue
		}
		rep.Fragments++
		meshes = append(meshes, m)
	}
	return meshes
}

// clearMerged removes merged meshes left by an earlier run so they do not end up in
// this run's document.
func clearMerged(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), cityjson.MergedPrefix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func (c *Converter) record(rep *Report, cityObjects int) error {
	cat, err := catalog.Open(c.Config.CatalogPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	run := &catalog.Run{
		ID:            rep.RunID,
		StartedAt:     rep.StartTime,
		FinishedAt:    time.Now(),
		FootprintPath: c.Config.FootprintPath,
		MeshDir:       c.Config.FragmentDir(),
		Document:      rep.DocumentPath,
		EPSG:          rep.EPSG,
		Buffer:        c.Config.Buffer,
		Height:        c.Config.ExtrusionHeight,
		Footprints:    len(rep.Source.Footprints),
		Rejected:      len(rep.Source.Rejected),
		Merged:        rep.Buildings.Merged,
		NoMatch:       rep.Buildings.NoMatch,
		Failed:        rep.Buildings.Failed,
		CityObjects:   cityObjects,
		Status:        "ok",
	}
	records := make([]catalog.BuildingRecord, 0, len(rep.Buildings.Results))
	for _, r := range rep.Buildings.Results {
		rec := catalog.BuildingRecord{
			BuildingID: r.BuildingID,
			Status:     string(r.Status),
			Faces:      r.Faces,
			Vertices:   r.Vertices,
			MergedFile: r.File,
			SharedWith: strings.Join(r.SharedWith, ","),
			DurationMS: float64(r.Duration.Microseconds()) / 1000,
		}
		if r.Err != nil {
			rec.Message = r.Err.Error()
		}
		records = append(records, rec)
	}
	return cat.RecordRun(run, records)
}
