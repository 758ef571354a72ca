package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/seacharts/pkg/enc"
)

func main() {
	// Defaults: a 20 km window in Møre og Romsdal, data under ./data
	chart, err := enc.New(enc.DefaultOptions())
	if err != nil {
		log.Fatal(err)
	}

	b := chart.Window()
	fmt.Printf("Window: [%.0f,%.0f] to [%.0f,%.0f]\n", b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	fmt.Printf("Regions: %v\n", chart.Regions())

	for _, c := range chart.Collections() {
		fmt.Printf("%s: %d features\n", c.Name(), c.Len())
	}

	for _, f := range chart.Ocean.Seabed() {
		depth, _ := f.Depth()
		fmt.Printf("  seabed %gm: %.0f m²\n", depth, f.Area())
	}
}
