// =============================================================================
// veridec - Veride to Verilog compiler
// =============================================================================
//
// THE PIPELINE:
//   1. Lexer turns .vd text into tokens, collecting every lexical error
//   2. Parser builds the AST, resynchronising after syntax errors
//   3. Facts builder flattens the AST into relational rows
//   4. CUE Validator enforces the facts contract (crash on schema mismatch)
//   5. Code generator writes Verilog for every file without diagnostics
//   6. OPA evaluates the lint rules against the merged facts
//
// WHEN OUTPUT LOOKS WRONG:
//   Start at the beginning of the pipeline, not the end!
//   Tokens (cmd/debug -tokens) → AST (cmd/debug) → facts (veride-facts) → Verilog
// =============================================================================

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/robert-at-pretension-io/veridec/internal/config"
	"github.com/robert-at-pretension-io/veridec/internal/driver"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	verbose    bool
	jsonOutput bool
	configPath string
	outputDir  string
	noCache    bool
	timing     bool
	path       string
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: veridec [command] [options] <path>

Commands:
  init [--yaml] [-f]  Create a veride.json (or veride.yaml) configuration file
  <path>              Compile a .vd file or every .vd file under a directory

Options:
  -v, --verbose       Enable verbose logging on stderr
  -c, --config FILE   Use FILE instead of searching for a configuration
  -o, --output DIR    Write .v files under DIR instead of next to the sources
      --json          Print a JSON build report on stdout
      --no-cache      Ignore and do not update the build cache
      --timing        Write timing.jsonl next to the sources
      --version       Print the compiler version
  -h, --help          Show this help message

Configuration:
  veridec looks for configuration in:
    1. ./veride.json, ./.veride.json, ./veride.yaml, ./.veride.yaml
    2. the same names under <path>
    3. ~/.config/veride/config.json

Exit status is 1 when a file fails to compile or a lint rule reports an error.`)
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	switch args[0] {
	case "init":
		return runInit(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		printUsage(stdout)
		return 0
	case "--version", "version":
		fmt.Fprintf(stdout, "veridec %s\n", driver.Version)
		return 0
	}

	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n\n", err)
		printUsage(stderr)
		return 1
	}
	return runBuild(opts, stdout, stderr)
}

func parseArgs(args []string) (options, error) {
	var opts options
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-v", "--verbose":
			opts.verbose = true
		case "--json":
			opts.jsonOutput = true
		case "--no-cache":
			opts.noCache = true
		case "--timing":
			opts.timing = true
		case "-c", "--config", "-o", "--output":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a value", arg)
			}
			i++
			if arg == "-c" || arg == "--config" {
				opts.configPath = args[i]
			} else {
				opts.outputDir = args[i]
			}
		default:
			if len(arg) > 1 && arg[0] == '-' {
				return opts, fmt.Errorf("unknown option %s", arg)
			}
			if opts.path != "" {
				return opts, fmt.Errorf("unexpected argument %s", arg)
			}
			opts.path = arg
		}
	}
	if opts.path == "" {
		return opts, fmt.Errorf("no path given")
	}
	return opts, nil
}

func runBuild(opts options, stdout, stderr io.Writer) int {
	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.WarnLevel)
	if opts.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading config %s: %v\n", opts.configPath, err)
			return 1
		}
	} else {
		cfg, err = config.Load(opts.path)
		if err != nil {
			log.WithError(err).Warn("could not load config, using defaults")
			cfg = config.DefaultConfig()
		}
	}
	if opts.outputDir != "" {
		// -o is relative to the working directory, not to <path>
		dir, err := filepath.Abs(opts.outputDir)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		cfg.Output.Dir = dir
	}
	if opts.noCache {
		disabled := false
		cfg.Build.Cache.Enabled = &disabled
	}

	d := driver.New(cfg)
	d.Log = log
	d.Stdout = stdout
	d.Stderr = stderr
	d.JSONOutput = opts.jsonOutput
	d.Timing = opts.timing
	d.Color = useColor(stderr)

	result, err := d.Run(context.Background(), opts.path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := d.Report(result); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if result.Failed() {
		return 1
	}
	return 0
}

// useColor enables ANSI diagnostics only on a terminal and when NO_COLOR is unset.
func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func runInit(args []string, stdout, stderr io.Writer) int {
	configPath := "veride.json"
	force := false
	for _, arg := range args {
		switch arg {
		case "--yaml":
			configPath = "veride.yaml"
		case "-f", "--force":
			force = true
		default:
			fmt.Fprintf(stderr, "Error: unknown init option %s\n", arg)
			return 1
		}
	}

	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Fprintf(stdout, "Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(stdout, "Aborted.")
			return 0
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(stderr, "Error creating config: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Created %s\n", configPath)
	fmt.Fprintln(stdout, "\nEdit this file to configure:")
	fmt.Fprintln(stdout, "  - Source and exclude patterns")
	fmt.Fprintln(stdout, "  - Output directory and indentation")
	fmt.Fprintln(stdout, "  - Lint rule severities")
	return 0
}
