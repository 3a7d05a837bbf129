package commands

import (
	"flag"
	"fmt"
	"os"

	"github.com/agiangrant/gallery"
)

// Init implements the 'gallery init' command
func Init(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", gallery.DefaultConfigFile, "Config file to write")
	url := fs.String("url", "", "Page URL template containing {page}")
	force := fs.Bool("force", false, "Overwrite an existing file")
	fs.Parse(args)

	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", *path)
	}

	config := gallery.DefaultConfig()
	config.Scroll.URLTemplate = *url
	if err := config.Validate(); err != nil {
		return err
	}

	if err := gallery.SaveConfig(*path, config); err != nil {
		return err
	}
	fmt.Printf("  ✓ Created %s\n", *path)
	return nil
}
