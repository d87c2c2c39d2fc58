package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/mimir-sbom/mimir/internal/cache"
	"github.com/mimir-sbom/mimir/internal/extractor"
	"github.com/mimir-sbom/mimir/version"
)

func main() {
	app := &cli.App{
		Name:  "mimir",
		Usage: "extract software-composition metadata from ELF binaries",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Value: false,
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Value:   false,
				Usage:   "emit JSON instead of a summary",
			},
			&cli.BoolFlag{
				Name:  "include-system-libs",
				Value: false,
				Usage: "also process runtime/system libraries",
			},
			&cli.IntFlag{
				Name:  "cache-size",
				Value: cache.DefaultMaxSize,
				Usage: "maximum metadata cache entries",
			},
			&cli.DurationFlag{
				Name:  "cache-age",
				Value: cache.DefaultMaxAge,
				Usage: "maximum metadata cache entry age",
			},
			&cli.StringFlag{
				Name:  "cache-file",
				Usage: "load/save the metadata cache at this path",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "extract",
				Usage:     "extract source files, compile units, functions and symbols",
				ArgsUsage: "BINARY...",
				Action:    runExtract,
			},
			{
				Name:      "sources",
				Usage:     "print compiled source file names",
				ArgsUsage: "BINARY",
				Action:    runField((*extractor.Extractor).ExtractSourceFiles),
			},
			{
				Name:      "functions",
				Usage:     "print function names",
				ArgsUsage: "BINARY",
				Action:    runField((*extractor.Extractor).ExtractFunctions),
			},
			{
				Name:      "units",
				Usage:     "print compile unit names",
				ArgsUsage: "BINARY",
				Action:    runField((*extractor.Extractor).ExtractCompileUnits),
			},
			{
				Name:      "symbols",
				Usage:     "print defined symbols from the symbol table",
				ArgsUsage: "BINARY",
				Action:    runSymbols,
			},
			{
				Name:      "check",
				Usage:     "report whether a binary carries DWARF debug info",
				ArgsUsage: "BINARY",
				Action:    runCheck,
			},
			{
				Name:  "version",
				Usage: "show version",
				Action: func(c *cli.Context) error {
					fmt.Print(version.String())
					return nil
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newExtractor(c *cli.Context) *extractor.Extractor {
	return extractor.New(extractor.Options{
		Verbose:           c.Bool("debug"),
		IncludeSystemLibs: c.Bool("include-system-libs"),
	})
}

func runExtract(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return cli.Exit("extract: at least one binary required", 1)
	}
	ext := newExtractor(c)
	meta := cache.NewMetadataCache(cache.MetadataCacheOptions{
		MaxSize: c.Int("cache-size"),
		MaxAge:  c.Duration("cache-age"),
	})
	cacheFile := c.String("cache-file")
	if cacheFile != "" {
		if err := meta.LoadFromFile(cacheFile); err != nil && !os.IsNotExist(err) {
			log.Debugf("cache load: %s", err)
		}
	}

	var components []*extractor.ComponentInfo
	for _, path := range c.Args().Slice() {
		if extractor.IsSystemLibrary(path) && !c.Bool("include-system-libs") {
			log.Debugf("skipping system library %s", path)
			continue
		}
		comp, ok := meta.Get(path)
		if !ok {
			var err error
			comp, err = ext.ExtractComponent(path)
			if err != nil {
				log.Warnf("extract %s: %s", path, err)
				continue
			}
			meta.Put(path, comp)
		}
		components = append(components, comp)
	}

	if cacheFile != "" {
		if err := meta.SaveToFile(cacheFile); err != nil {
			log.Warnf("cache save: %s", err)
		}
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(components)
	}
	for _, comp := range components {
		fmt.Printf("%s (%s, extracted %s)\n", comp.Path,
			humanize.Bytes(uint64(comp.FileSize)),
			comp.ExtractedAt.Format(time.RFC3339))
		fmt.Printf("  debug info: %v\n", comp.HasDebugInfo)
		fmt.Printf("  source files: %d, compile units: %d, functions: %d, symbols: %d\n",
			len(comp.SourceFiles), len(comp.CompileUnits), len(comp.Functions), len(comp.Symbols))
	}
	return nil
}

func runField(get func(*extractor.Extractor, string) ([]string, error)) cli.ActionFunc {
	return func(c *cli.Context) error {
		path := c.Args().First()
		if path == "" {
			return cli.Exit("one binary required", 1)
		}
		items, err := get(newExtractor(c), path)
		if err != nil && len(items) == 0 {
			return err
		}
		if c.Bool("json") {
			return json.NewEncoder(os.Stdout).Encode(items)
		}
		for _, item := range items {
			fmt.Println(item)
		}
		return nil
	}
}

func runSymbols(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("one binary required", 1)
	}
	symbols, err := newExtractor(c).ExtractSymbols(path)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(symbols)
	}
	for _, sym := range symbols {
		fmt.Printf("%016x %8d %s (%s)\n", sym.Value, sym.Size, sym.Name, sym.Section)
	}
	return nil
}

func runCheck(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("one binary required", 1)
	}
	ok, err := newExtractor(c).HasDebugInfo(path)
	if err != nil {
		return err
	}
	if ok {
		fmt.Printf("%s: DWARF debug info present\n", path)
	} else {
		fmt.Printf("%s: no DWARF debug info\n", path)
	}
	return nil
}
