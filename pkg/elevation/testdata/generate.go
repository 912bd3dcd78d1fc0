//go:build ignore

// Generates hills.egrd, a small synthetic grid used by manual runs of
// terratool. Run with: go run generate.go
package main

import (
	"log"
	"math"

	"github.com/Faultbox/terratiler/pkg/elevation"
	"github.com/Faultbox/terratiler/pkg/tiling"
)

func main() {
	bounds := tiling.Extent{MinLon: 10, MinLat: 45, MaxLon: 12, MaxLat: 47}
	g, err := elevation.Synthetic(129, 129, bounds, func(lon, lat float64) float64 {
		return 800 + 600*math.Sin(lon*math.Pi)*math.Cos(lat*math.Pi)
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := elevation.WriteFile("hills.egrd", g); err != nil {
		log.Fatal(err)
	}
}
