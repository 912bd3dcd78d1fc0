// terratool builds and inspects quantized-mesh terrain tile sets.
package main

import (
	"fmt"
	"os"

	"github.com/Faultbox/terratiler/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "build":
		cmdBuild(args)
	case "tiles":
		cmdTiles(args)
	case "inspect", "info":
		cmdInspect(args)
	case "grid":
		cmdGrid(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`terratool - quantized-mesh terrain pyramid builder

Usage:
  terratool <command> [options]

Commands:
  build [options] [grid.egrd]             Build a tile pyramid from an elevation grid
  tiles [options] <depth> <bbox>          List the tiles covering a bbox (minLon,minLat,maxLon,maxLat)
  inspect [options] <file.terrain>        Show the header and counts of a tile
  grid [options] <out.egrd>               Write a synthetic elevation grid
  config [options] [grid.egrd]            Print or save the effective job configuration

Examples:
  terratool grid -cols 257 -rows 257 hills.egrd
  terratool config -max-depth 12 -o terratiler.yaml hills.egrd
  terratool build -config terratiler.yaml -max-depth 12 hills.egrd
  terratool tiles -geojson 6 10,45,12,47 > tiles.geojson
  terratool inspect tiles/8/271/183.terrain`)
}

// errorf prints an error and returns the exit status for it.
func errorf(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return 1
}

// fatalf prints an error, flushes the logger and exits.
func fatalf(format string, args ...any) {
	code := errorf(format, args...)
	logger.Sync()
	os.Exit(code)
}
