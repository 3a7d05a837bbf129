package main

import (
	"fmt"
	"os"

	"github.com/agiangrant/gallery/cmd/gallery/commands"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "init":
		err = commands.Init(args)
	case "inspect":
		err = commands.Inspect(args)
	case "crawl":
		err = commands.Crawl(args)
	case "version", "-v", "--version":
		fmt.Printf("gallery version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gallery - static gallery runtime tools

Usage: gallery <command> [options]

Commands:
  init            Write a default gallery.toml
  inspect         Parse an album page and print its items and layout
  crawl           Load every page of an album through infinite scroll
  version         Print version information
  help            Show this help message

Examples:
  gallery init                                  Create gallery.toml
  gallery inspect album.html                    Summarise a saved page
  gallery inspect -geojson map.json album.html  Also export the map markers
  gallery crawl -url 'https://example.com/trip/page/{page}/'

Configuration:
  Commands read gallery.toml (or a YAML file given with -config).
  Run 'gallery init' to create one with the default settings.`)
}
