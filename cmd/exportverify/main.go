// Command exportverify validates a checksum manifest emitted alongside a
// generated chart bundle, so spec.md §8 scenario 6's determinism promise
// (identical audio + seed + options reproduce a bit-identical chart) is
// mechanically checkable offline. Adapted from the teacher's
// cmd/exportverify/main.go, pointed at internal/chart's checksum manifest
// instead of internal/exporter's DJ playlist-bundle one.
package main

import (
	"flag"
	"log"
	"path/filepath"

	"github.com/cartomix/rhythmengine/internal/chart"
)

func main() {
	manifest := flag.String("manifest", "", "path to checksums txt emitted by cmd/chartgen")
	dir := flag.String("dir", "", "directory containing the chart files (defaults to manifest dir)")
	flag.Parse()

	if *manifest == "" {
		log.Fatal("manifest path required")
	}

	base := *dir
	if base == "" {
		base = filepath.Dir(*manifest)
	}

	if err := chart.VerifyChecksumManifest(*manifest, base); err != nil {
		log.Fatalf("verify failed: %v", err)
	}

	log.Printf("checksums OK for manifest %s", *manifest)
}
