package main

import (
	"fmt"
	"log"

	"github.com/paulmach/orb"

	"github.com/beetlebugorg/seacharts/pkg/enc"
)

func main() {
	opts := enc.DefaultOptions()
	opts.Categories = []string{"seabed", "land", "rocks"}
	opts.Depths = []float64{0, 5, 10, 20}
	center := orb.Point{40000, 6955000}
	opts.Origin, opts.Center = nil, &center
	opts.Size = [2]float64{5000, 5000}

	chart, err := enc.New(opts)
	if err != nil {
		log.Fatal(err)
	}

	// Areas shallower than a 5 m draught
	hazards := chart.HazardousAreas(5)
	fmt.Printf("Hazardous areas: %d\n", len(hazards))

	// Features near the center
	near := orb.Bound{Min: orb.Point{center[0] - 500, center[1] - 500}, Max: orb.Point{center[0] + 500, center[1] + 500}}
	for _, f := range chart.Surface.InBounds(near) {
		fmt.Printf("%s %s %.0f m²\n", f.Category(), f.Kind(), f.Area())
	}

	for _, f := range chart.Details.Rocks() {
		fmt.Printf("rock at %v\n", f.Coordinates())
	}
}
