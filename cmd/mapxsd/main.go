// Command mapxsd validates map documents against an XSD schema.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/agentflare-ai/go-mapxsd"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("mapxsd", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "path to a YAML config file")
	schemaPath := fs.String("schema", "", "path to the XSD schema")
	format := fs.String("format", "", "output format: text or json")
	workers := fs.Int("workers", 0, "number of documents validated in parallel")
	color := fs.Bool("color", false, "colorize text output")
	verbose := fs.Bool("v", false, "log debug output to stderr")

	fs.Usage = func() {
		_, _ = fmt.Fprintf(fs.Output(), "Usage: mapxsd [flags] <file>...\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	// Flags given on the command line override the config file
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "schema":
			cfg.Schema = *schemaPath
		case "format":
			cfg.Format = *format
		case "workers":
			cfg.Workers = *workers
		case "color":
			cfg.Color = *color
		case "v":
			cfg.Verbose = *verbose
		}
	})
	if err := cfg.validate(); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if cfg.Schema == "" || fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	schema, err := mapxsd.NewSchemaCache("", mapxsd.WithLogger(logger)).Get(cfg.Schema)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	docs := make([]mapxsd.Document, 0, fs.NArg())
	sources := make(map[string]string, fs.NArg())
	for _, name := range fs.Args() {
		data, err := os.ReadFile(name)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: failed to read %s: %v\n", name, err)
			return 2
		}
		docs = append(docs, mapxsd.Document{Name: name, Text: string(data)})
		sources[name] = string(data)
	}

	validator := mapxsd.NewValidator(schema, mapxsd.WithLogger(logger))
	results, err := validator.ValidateBatch(ctx, docs, cfg.Workers)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if cfg.Format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	} else {
		printText(stdout, results, sources, cfg.Color)
	}

	for _, r := range results {
		if !r.Valid() {
			return 1
		}
	}
	return 0
}

func printText(w io.Writer, results []mapxsd.Result, sources map[string]string, color bool) {
	p := message.NewPrinter(language.English)
	total, invalid := 0, 0

	for _, r := range results {
		if r.Valid() {
			_, _ = p.Fprintf(w, "%s: valid\n", r.Name)
			continue
		}
		invalid++
		total += len(r.Diagnostics)
		_, _ = p.Fprintf(w, "%s: %d issues\n\n", r.Name, len(r.Diagnostics))

		formatter := &mapxsd.ErrorFormatter{Color: color, File: r.Name}
		for _, d := range r.Diagnostics {
			_, _ = fmt.Fprintln(w, formatter.Format(d, sources[r.Name]))
		}
	}

	_, _ = p.Fprintf(w, "%d issues in %d of %d files\n", total, invalid, len(results))
}
