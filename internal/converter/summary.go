package converter

import (
	"fmt"
	"io"

	"cityjson-gen/internal/building"
)

// PrintSummary writes the human-readable end-of-run report.
func (r *Report) PrintSummary(w io.Writer) {
	fmt.Fprintln(w, "\n=== OBJ to CityJSON Summary ===")
	fmt.Fprintf(w, "Processing completed in %.2f seconds\n", r.Elapsed.Seconds())
	if r.Source != nil {
		fmt.Fprintf(w, "Footprints: %d usable, %d rejected\n", len(r.Source.Footprints), len(r.Source.Rejected))
	}
	fmt.Fprintf(w, "Fragments read: %d (%d faces, %d malformed lines)\n", r.Fragments, r.Faces, r.MalformedLines)
	if b := r.Buildings; b != nil {
		fmt.Fprintf(w, "Buildings merged: %d\n", b.Merged)
		fmt.Fprintf(w, "Buildings without faces: %d\n", b.NoMatch)
		fmt.Fprintf(w, "Buildings failed: %d\n", b.Failed)
		if b.SharedFaces > 0 {
			fmt.Fprintf(w, "Faces claimed by more than one building: %d\n", b.SharedFaces)
		}
	}
	fmt.Fprintf(w, "City objects written: %d\n", r.Assembly.Buildings)
	if r.Assembly.Skipped > 0 || r.Assembly.Degraded > 0 {
		fmt.Fprintf(w, "Merged files skipped: %d, roof-only buildings: %d\n", r.Assembly.Skipped, r.Assembly.Degraded)
	}
	if r.DocumentPath != "" {
		fmt.Fprintf(w, "Document: %s (EPSG:%d)\n", r.DocumentPath, r.EPSG)
	}

	if len(r.FailedFiles) > 0 {
		fmt.Fprintln(w, "\nFailed files:")
		for _, f := range r.FailedFiles {
			fmt.Fprintf(w, "- %s: %s\n", f.Name, f.Error)
		}
	}
	if r.Buildings != nil && r.Buildings.Failed > 0 {
		fmt.Fprintln(w, "\nFailed buildings:")
		for _, b := range r.Buildings.Results {
			if b.Err != nil && b.Status == building.StatusFailed {
				fmt.Fprintf(w, "- %s: %v\n", b.BuildingID, b.Err)
			}
		}
	}
	fmt.Fprintln(w, "===============================")
}
