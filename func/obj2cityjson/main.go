package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cityjson-gen/internal/config"
	"cityjson-gen/internal/converter"
	"cityjson-gen/internal/logger"
	"cityjson-gen/internal/ogr"
)

const Version = "1.0.0"

func printHelp() {
	fmt.Printf("OBJ to CityJSON v%s\n", Version)
	fmt.Println("Builds a CityJSON LOD1 document from OBJ face fragments and building footprints")
	fmt.Println("\nUsage:")
	fmt.Printf("  %s -bo <footprints> (-gml <city.gml> | -obj <fragment_dir>) [-o <output_dir>] [options]\n\n", os.Args[0])
	fmt.Println("Required arguments:")
	fmt.Println("  -bo          Building footprints (shp, geojson or any OGR vector format)")
	fmt.Println("  -gml         CityGML file to split into OBJ fragments, or")
	fmt.Println("  -obj         Directory of existing OBJ fragments")
	fmt.Println("\nOptional arguments:")
	fmt.Println("  -o           Output directory (default ./output)")
	fmt.Println("  -id-field    Footprint id attribute (default id)")
	fmt.Println("  -buffer      Face buffer distance before intersecting (default 0.001)")
	fmt.Println("  -height      Extrusion offset for matched faces (default 1000)")
	fmt.Println("  -epsg        Output EPSG code, overriding the footprint CRS")
	fmt.Println("  -workers     Buildings processed in parallel")
	fmt.Println("  -classifier  position or normal")
	fmt.Println("  -geometry    planar or gdal")
	fmt.Println("  -separator   Splitter command with {input} and {output} placeholders")
	fmt.Println("  -catalog     SQLite run catalog")
	fmt.Println("  -metrics     Prometheus textfile output")
	fmt.Println("  -debug       Enable debug logging")
	fmt.Println("\nEvery option can also be set through a C2J_* environment variable or .env file.")
	fmt.Println("\nExample:")
	fmt.Printf("  %s -bo ./footprints.shp -gml ./city.gml -o ./output\n", os.Args[0])
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printHelp()
			return 0
		}
		return 2
	}
	if cfg.Help {
		printHelp()
		return 0
	}

	log := logger.SetupWriter(os.Stderr, cfg.Debug)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid_config", "err", err)
		fmt.Println("Use -help for usage information")
		return 1
	}
	log.Debug("config", "footprints", cfg.FootprintPath, "gml", cfg.GMLPath, "fragments", cfg.FragmentDir(),
		"output", cfg.OutputDir, "buffer", cfg.Buffer, "height", cfg.ExtrusionHeight, "workers", cfg.Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("OBJ to CityJSON v%s\n", Version)
	fmt.Println("=======================")

	conv := converter.New(cfg, log)
	conv.FootprintFallback = ogr.ReadFootprints
	conv.IdentifyEPSG = ogr.IdentifyEPSG
	if cfg.Geometry == "gdal" {
		conv.Predicate = ogr.Predicate{}
	}

	rep, err := conv.Run(ctx)
	if rep != nil {
		rep.PrintSummary(os.Stdout)
	}
	if err != nil {
		log.Error("conversion_failed", "err", err)
		return 1
	}
	return 0
}
