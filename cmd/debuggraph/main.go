package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/azybler/route-snapper/pkg/logging"
	"github.com/azybler/route-snapper/pkg/snapper"
)

func main() {
	input := flag.String("input", "", "Path to a map blob (.bin)")
	output := flag.String("output", "debug.geojson", "Output GeoJSON file path")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: debuggraph --input <map.bin> [--output debug.geojson]")
		os.Exit(1)
	}

	blob, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}

	logger := logging.NewStdLogger()
	s, err := snapper.New(blob, logger)
	if err != nil {
		log.Fatalf("Failed to load map: %v", err)
	}

	data := s.DebugRenderGraph()
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Fatalf("Failed to write output file: %v", err)
	}
	log.Printf("Wrote %s (%d nodes, %d edges)", *output, s.Map.NumNodes(), s.Map.NumEdges())
}
