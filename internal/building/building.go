// Package building claims mesh faces for each footprint, extrudes them and writes one
// merged mesh per building.
package building

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"cityjson-gen/internal/cityjson"
	"cityjson-gen/internal/footprint"
	"cityjson-gen/internal/logger"
	"cityjson-gen/internal/mesh"
	"cityjson-gen/internal/metrics"
	"cityjson-gen/internal/spatial"

	"golang.org/x/sync/errgroup"
)

// ErrNoMatch is recorded for a footprint that claims no face.
var ErrNoMatch = errors.New("no mesh face intersects footprint")

// Status is the outcome of one building.
type Status string

const (
	StatusMerged  Status = "merged"
	StatusNoMatch Status = "no_match"
	StatusFailed  Status = "failed"
)

// Result is the outcome for one footprint.
type Result struct {
	BuildingID string
	Status     Status
	Faces      int
	Vertices   int
	File       string
	// SharedWith lists buildings that claimed one of these faces first.
	SharedWith []string
	Err        error
	Duration   time.Duration
}

// Summary collects the results of a Run in footprint order.
type Summary struct {
	Results     []Result
	Merged      int
	NoMatch     int
	Failed      int
	SharedFaces int
	Elapsed     time.Duration
}

// Pipeline matches, extrudes and merges faces for a set of footprints.
type Pipeline struct {
	Matcher   *spatial.Matcher
	Height    float64
	Workers   int
	MergedDir string
	Log       *slog.Logger
	// Metrics may be nil.
	Metrics *metrics.Run
}

// Run processes every footprint against faces on a pool of p.Workers goroutines. A
// failing building never stops the others; only cancellation of ctx does, in which
// case the buildings not yet started are left out of the summary and ctx's error is
// returned with it.
func (p *Pipeline) Run(ctx context.Context, footprints []footprint.Footprint, faces []spatial.ProjectedFace) (*Summary, error) {
	start := time.Now()
	log := p.Log
	if log == nil {
		log = logger.L()
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	claims := spatial.NewClaims()
	results := make([]Result, len(footprints))
	started := make([]bool, len(footprints))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range footprints {
		if gctx.Err() != nil {
			break
		}
		i := i
		started[i] = true
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				started[i] = false
				return err
			}
			results[i] = p.process(&footprints[i], faces, claims, log)
			return nil
		})
	}
	err := g.Wait()

	sum := &Summary{SharedFaces: claims.Shared()}
	for i, r := range results {
		if !started[i] {
			continue
		}
		switch r.Status {
		case StatusMerged:
			sum.Merged++
		case StatusNoMatch:
			sum.NoMatch++
		case StatusFailed:
			sum.Failed++
		}
		sum.Results = append(sum.Results, r)
	}
	sum.Elapsed = time.Since(start)
	if p.Metrics != nil {
		p.Metrics.SharedFaces.Add(float64(sum.SharedFaces))
	}
	if err == nil {
		err = ctx.Err()
	}
	return sum, err
}

// Process runs one footprint on its own, without overlap bookkeeping.
func (p *Pipeline) Process(fp *footprint.Footprint, faces []spatial.ProjectedFace) Result {
	log := p.Log
	if log == nil {
		log = logger.L()
	}
	return p.process(fp, faces, nil, log)
}

func (p *Pipeline) process(fp *footprint.Footprint, faces []spatial.ProjectedFace, claims *spatial.Claims, log *slog.Logger) Result {
	start := time.Now()
	res := Result{BuildingID: fp.ID}
	defer func() {
		res.Duration = time.Since(start)
		if p.Metrics != nil {
			p.Metrics.ObserveBuilding(string(res.Status), res.Faces, res.Duration)
		}
	}()

	matched := p.Matcher.Match(fp, faces)
	if len(matched) == 0 {
		res.Status, res.Err = StatusNoMatch, ErrNoMatch
		log.Info("building_no_match", "building", fp.ID)
		return res
	}
	if claims != nil {
		if others := claims.Claim(fp.ID, matched); len(others) > 0 {
			res.SharedWith = others
			log.Debug("building_faces_shared", "building", fp.ID, "with", strings.Join(others, ","))
		}
	}

	extruded := make([]*mesh.Mesh, 0, len(matched))
	for _, mf := range matched {
		e, err := mesh.Extrude(mf.Mesh, mf.Face, p.Height)
		if err != nil {
			res.Status, res.Err = StatusFailed, fmt.Errorf("extrude %s face %d: %w", mf.Mesh.Name, mf.Face, err)
			log.Warn("building_failed", "building", fp.ID, "err", res.Err)
			return res
		}
		extruded = append(extruded, e)
	}

	name := strings.TrimSuffix(MergedFileName(fp.ID), ".obj")
	merged := mesh.Merge(name, extruded...)
	res.Faces, res.Vertices = len(merged.Faces), len(merged.Vertices)

	path := filepath.Join(p.MergedDir, MergedFileName(fp.ID))
	if err := mesh.SaveObj(path, merged); err != nil {
		res.Status, res.Err = StatusFailed, fmt.Errorf("write merged mesh: %w", err)
		log.Warn("building_failed", "building", fp.ID, "err", res.Err)
		return res
	}
	res.Status, res.File = StatusMerged, path
	log.Debug("building_merged", "building", fp.ID, "faces", res.Faces, "file", filepath.Base(path))
	return res
}

// MergedFileName is the file written for a building. Path separators in the id are
// replaced so the file stays inside the merged directory.
func MergedFileName(id string) string {
	return cityjson.MergedPrefix + footprint.FileSafeID(id) + ".obj"
}
