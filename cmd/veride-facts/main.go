package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/veridec/internal/config"
	"github.com/robert-at-pretension-io/veridec/internal/diag"
	"github.com/robert-at-pretension-io/veridec/internal/driver"
	"github.com/robert-at-pretension-io/veridec/internal/facts"
)

func main() {
	output := flag.String("output", "", "write facts JSON to file (default: stdout)")
	flag.StringVar(output, "o", "", "write facts JSON to file (shorthand)")
	deltaFrom := flag.String("delta-from", "", "previous facts JSON to compute delta from")
	deltaOut := flag.String("delta-out", "", "write delta JSON to file (requires --delta-from or --delta-cached)")
	deltaCached := flag.Bool("delta-cached", false, "compute the delta against the snapshot saved by the last veridec build")
	only := flag.String("file", "", "restrict output to rows from this source file (path relative to <path>)")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: veride-facts [--output file] [--file a.vd] [--delta-from prev.json | --delta-cached] [--delta-out delta.json] <path>")
		os.Exit(1)
	}

	path := args[0]
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	disabled := false
	cfg.Lint.Enabled = &disabled

	d := driver.New(cfg)
	d.NoWrite = true
	if *verbose {
		d.Log.SetLevel(logrus.DebugLevel)
	}
	result, err := d.Run(context.Background(), path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	exitCode := 0
	if ds := result.Diagnostics(); len(ds) > 0 {
		// Facts cover only the files that parsed; say which ones did not.
		for _, dg := range ds {
			fmt.Fprintf(os.Stderr, "%s: %s\n", dg.Span, dg.Message)
		}
		if diag.HasErrors(ds) {
			exitCode = 1
		}
	}

	tables := result.Facts
	var filter map[string]bool
	if *only != "" {
		filter = map[string]bool{filepath.ToSlash(*only): true}
		tables = facts.FilterTablesByFiles(tables, filter)
	}

	if *output != "" {
		if err := writeJSON(*output, tables); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing facts: %v\n", err)
			os.Exit(1)
		}
	} else {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(tables); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding facts: %v\n", err)
			os.Exit(1)
		}
	}

	if *deltaFrom != "" || *deltaOut != "" || *deltaCached {
		if *deltaOut == "" || (*deltaFrom == "") == !*deltaCached {
			fmt.Fprintln(os.Stderr, "Error: --delta-out needs exactly one of --delta-from or --delta-cached")
			os.Exit(1)
		}
		prev, err := previousTables(*deltaFrom, cfg, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading previous facts: %v\n", err)
			os.Exit(1)
		}
		delta := facts.ComputeDelta(prev, result.Facts)
		if filter != nil {
			delta = facts.FilterDeltaByFiles(delta, filter)
		}
		if err := writeJSON(*deltaOut, delta); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing delta: %v\n", err)
			os.Exit(1)
		}
	}

	os.Exit(exitCode)
}

// previousTables loads the snapshot to diff against: an explicit file, or
// the fact_tables.json the last build left in the cache directory.
func previousTables(deltaFrom string, cfg *config.Config, root string) (facts.Tables, error) {
	if deltaFrom != "" {
		return readTables(deltaFrom)
	}
	base := root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		base = filepath.Dir(root)
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return facts.Tables{}, err
	}
	tables, ok, err := driver.LoadFactTables(cfg.CacheDir(abs))
	if err != nil {
		return facts.Tables{}, err
	}
	if !ok {
		return facts.Merge(), nil
	}
	return tables, nil
}

func readTables(path string) (facts.Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return facts.Tables{}, err
	}
	defer func() { _ = f.Close() }()

	var tables facts.Tables
	if err := json.NewDecoder(f).Decode(&tables); err != nil {
		return facts.Tables{}, err
	}
	return tables, nil
}

func writeJSON(path string, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
