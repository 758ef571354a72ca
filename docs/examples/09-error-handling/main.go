package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/beetlebugorg/seacharts/pkg/enc"
)

func load(regions ...string) (*enc.ENC, error) {
	opts := enc.DefaultOptions()
	opts.Regions = regions

	chart, err := enc.New(opts)
	if err == nil {
		return chart, nil
	}

	var (
		unknown  *enc.UnknownRegionError
		missing  *enc.ArchiveNotFoundError
		noLayer  *enc.LayerNotFoundError
		mismatch *enc.CacheMismatchError
	)
	switch {
	case errors.As(err, &unknown):
		return nil, fmt.Errorf("pick one of %v: %w", enc.SupportedRegions(), err)
	case errors.As(err, &missing):
		return nil, fmt.Errorf("download %s from Kartverket first: %w", missing.Path, err)
	case errors.As(err, &noLayer):
		return nil, fmt.Errorf("archive lacks layer %s: %w", noLayer.Layer, err)
	case errors.As(err, &mismatch):
		return nil, fmt.Errorf("cached shapefiles disagree on %v, rerun with NewData: %w", mismatch.Fields, err)
	}
	return nil, err
}

func main() {
	if _, err := load("Atlantis"); err != nil {
		log.Printf("Expected error: %v", err)
	}

	chart, err := load("Nordland")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Loaded %d features\n", len(chart.Features()))
}
