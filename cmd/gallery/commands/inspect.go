package commands

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/agiangrant/gallery"
	"github.com/agiangrant/gallery/lightbox"
	"github.com/agiangrant/gallery/mapsync"
	"github.com/agiangrant/gallery/markup"
)

// Inspect implements the 'gallery inspect' command. It parses a saved album
// page, packs it with the configured masonry settings and prints one line per
// item.
func Inspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	configFile := fs.String("config", gallery.DefaultConfigFile, "Config file (TOML or YAML)")
	geojson := fs.String("geojson", "", "Write map markers to this file as GeoJSON")
	meta := fs.Bool("meta", false, "Print lightbox metadata lines under each item")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: gallery inspect [options] <page.html | ->")
	}

	config, err := gallery.LoadConfig(*configFile)
	if err != nil {
		return err
	}
	log, err := gallery.NewLogger(config.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	doc, err := readDocument(fs.Arg(0), config.MarkupOptions())
	if err != nil {
		return err
	}
	for _, p := range doc.Problems {
		log.Warn("markup problem", zap.Error(p))
	}

	provider := mapsync.NewGeoJSON()
	g, err := gallery.NewFromDocument(doc, config,
		gallery.WithMapProvider(provider),
		gallery.WithLogger(log))
	if err != nil {
		return err
	}
	if err := g.Start(); err != nil {
		return err
	}
	defer g.Close()

	m := g.Masonry()
	fmt.Printf("%d items, %d columns, %.0fx%.0f px\n", g.Items().Len(), m.Columns(), m.Width(), m.Height())
	if doc.Grid.Found {
		fmt.Printf("page %d of %d\n", doc.Grid.CurrentPage, doc.Grid.TotalPages)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKIND\tX\tY\tW\tH\tGEO\tTITLE")
	positions := m.Positions()
	for _, it := range g.Items().Items() {
		r := positions[it.Index]
		geo := "-"
		if it.Geo != nil {
			geo = fmt.Sprintf("%.4f,%.4f", it.Geo.Lat, it.Geo.Lng)
		}
		fmt.Fprintf(tw, "%d\t%s\t%.0f\t%.0f\t%.0f\t%.0f\t%s\t%s\n",
			it.Index, it.Kind, r.X, r.Y, r.Width, r.Height, geo, it.Title)
		if *meta {
			for _, line := range lightbox.MetadataFor(it, config.Lightbox.Separator).Exif {
				fmt.Fprintf(tw, "\t\t\t\t\t\t\t  %s\n", line)
			}
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if *geojson != "" {
		if g.Map() == nil {
			return fmt.Errorf("page has no #%s map container", config.Map.ContainerID)
		}
		data, err := json.MarshalIndent(provider.Map(config.Map.ContainerID), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode markers: %w", err)
		}
		if err := os.WriteFile(*geojson, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", *geojson, err)
		}
		fmt.Printf("  ✓ Wrote %d markers to %s\n", g.Map().Markers(), *geojson)
	}
	return nil
}

func readDocument(path string, opts markup.Options) (*markup.Document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	doc, err := markup.Parse(r, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}
