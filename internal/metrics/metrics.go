package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run holds the counters of one conversion run on its own registry, so several runs in
// one process (tests) never collide on the default registry.
type Run struct {
	Registry *prometheus.Registry

	BuildingsTotal   *prometheus.CounterVec
	FacesMatched     prometheus.Counter
	SharedFaces      prometheus.Counter
	MalformedLines   prometheus.Counter
	CityObjects      prometheus.Counter
	FootprintsLoaded prometheus.Gauge
	FootprintsReject prometheus.Gauge
	BuildingDuration prometheus.Histogram
}

// New registers a fresh set of run metrics.
func New() *Run {
	r := &Run{
		Registry: prometheus.NewRegistry(),
		BuildingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cityjson_buildings_total",
			Help: "Buildings handled by the match/extrude/merge stage by outcome",
		}, []string{"status"}),
		FacesMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cityjson_faces_matched_total",
			Help: "Mesh faces claimed by a footprint",
		}),
		SharedFaces: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cityjson_faces_shared_total",
			Help: "Face claims on faces another footprint already claimed",
		}),
		MalformedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cityjson_malformed_mesh_lines_total",
			Help: "OBJ lines skipped because they could not be parsed",
		}),
		CityObjects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cityjson_city_objects_total",
			Help: "City objects written to the document",
		}),
		FootprintsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cityjson_footprints_loaded",
			Help: "Usable footprints read from the footprint source",
		}),
		FootprintsReject: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cityjson_footprints_rejected",
			Help: "Footprints rejected for missing geometry or a missing/duplicate id",
		}),
		BuildingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cityjson_building_duration_ms",
			Help:    "Match, extrude, merge and export time per building in milliseconds",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
		}),
	}
	r.Registry.MustRegister(
		r.BuildingsTotal,
		r.FacesMatched,
		r.SharedFaces,
		r.MalformedLines,
		r.CityObjects,
		r.FootprintsLoaded,
		r.FootprintsReject,
		r.BuildingDuration,
	)
	return r
}

// ObserveBuilding records one building outcome.
func (r *Run) ObserveBuilding(status string, faces int, d time.Duration) {
	r.BuildingsTotal.WithLabelValues(status).Inc()
	r.FacesMatched.Add(float64(faces))
	r.BuildingDuration.Observe(float64(d.Microseconds()) / 1000)
}

// WriteTextfile writes the registry in the text exposition format, for the node
// exporter textfile collector.
func (r *Run) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}
