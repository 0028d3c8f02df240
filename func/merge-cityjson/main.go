package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cityjson-gen/internal/cityjson"
	"cityjson-gen/internal/logger"
)

const Version = "1.0.0"

// DocumentMerger combines the CityJSON documents of several runs, e.g. one per tile.
type DocumentMerger struct {
	Log *slog.Logger
}

// GetDocumentFiles finds the .json and .city.json files directly inside dir.
func (m *DocumentMerger) GetDocumentFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// LoadValid loads every file that parses as a CityJSON document and skips the rest.
func (m *DocumentMerger) LoadValid(files []string) ([]*cityjson.Document, []string) {
	var docs []*cityjson.Document
	var used []string
	for _, f := range files {
		doc, err := cityjson.Load(f)
		if err != nil {
			m.Log.Warn("document_skipped", "file", filepath.Base(f), "err", err)
			continue
		}
		if doc.Type != cityjson.DocumentType {
			m.Log.Warn("document_skipped", "file", filepath.Base(f), "type", doc.Type)
			continue
		}
		m.Log.Debug("document_loaded", "file", filepath.Base(f), "city_objects", len(doc.CityObjects), "vertices", len(doc.Vertices))
		docs = append(docs, doc)
		used = append(used, f)
	}
	return docs, used
}

// MergeFiles merges every document in inputDir into outputFile.
func (m *DocumentMerger) MergeFiles(inputDir, outputFile, prefix string) (*cityjson.Document, error) {
	files, err := m.GetDocumentFiles(inputDir)
	if err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(outputFile)
	kept := files[:0]
	for _, f := range files {
		if fa, _ := filepath.Abs(f); fa != abs {
			kept = append(kept, f)
		}
	}
	docs, used := m.LoadValid(kept)
	if len(docs) == 0 {
		return nil, fmt.Errorf("no valid CityJSON documents found in %s", inputDir)
	}
	m.Log.Info("documents_found", "valid", len(used), "candidates", len(kept))

	merged, err := cityjson.Combine(prefix, docs...)
	if err != nil {
		return nil, err
	}
	if err := merged.Save(outputFile); err != nil {
		return nil, fmt.Errorf("failed to write output file: %w", err)
	}
	return merged, nil
}

func main() {
	var inputDir = flag.String("input", "", "Directory containing CityJSON documents to merge (required)")
	var outputFile = flag.String("output", "", "Output path for the merged document (required)")
	var prefix = flag.String("prefix", "", "Prefix prepended to every city object id")
	var debug = flag.Bool("debug", false, "Enable debug logging")
	var help = flag.Bool("help", false, "Show help message")
	flag.Parse()

	if *help {
		fmt.Printf("CityJSON Merger v%s\n", Version)
		fmt.Println("Merges CityJSON documents sharing one reference system into a single document")
		fmt.Println("\nUsage:")
		fmt.Printf("  %s -input <dir> -output <merged.json> [options]\n\n", os.Args[0])
		fmt.Println("Optional arguments:")
		fmt.Println("  -prefix   Prefix for city object ids")
		fmt.Println("  -debug    Enable debug logging")
		fmt.Println("  -help     Show this help message")
		os.Exit(0)
	}
	if *inputDir == "" || *outputFile == "" {
		fmt.Println("Error: -input and -output are required")
		fmt.Println("Use -help for usage information")
		os.Exit(1)
	}

	start := time.Now()
	m := &DocumentMerger{Log: logger.SetupWriter(os.Stderr, *debug)}
	merged, err := m.MergeFiles(*inputDir, *outputFile, *prefix)
	if err != nil {
		m.Log.Error("merge_failed", "err", err)
		os.Exit(1)
	}

	fmt.Println("\n=== CityJSON Merger Summary ===")
	fmt.Printf("Completed in %.2f seconds\n", time.Since(start).Seconds())
	fmt.Printf("City objects: %d\n", len(merged.CityObjects))
	fmt.Printf("Vertices: %d\n", len(merged.Vertices))
	fmt.Printf("Reference system: %s\n", merged.Metadata.ReferenceSystem)
	fmt.Printf("Output: %s\n", *outputFile)
	fmt.Println("===============================")
}
