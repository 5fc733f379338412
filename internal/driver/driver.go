package driver

// =============================================================================
// DRIVER PHILOSOPHY: THE CORE DECIDES, THE DRIVER PLUMBS
// =============================================================================
//
// The driver turns a source tree into Verilog files and a build report. Its
// job is to:
// 1. Find the .vd sources the configuration selects
// 2. Compile independent files in parallel, reusing cached results
// 3. Check every file's fact tables against the CUE contract
// 4. Run the Rego lint rules over the merged facts
//
// The driver never second-guesses the compiler. A file either compiles to
// Verilog or produces diagnostics; the driver only records which. If the
// fact tables fail validation, the facts builder and the schema disagree:
// fix one of them, don't filter rows here.
// =============================================================================

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/robert-at-pretension-io/veridec/internal/compiler"
	"github.com/robert-at-pretension-io/veridec/internal/config"
	"github.com/robert-at-pretension-io/veridec/internal/diag"
	"github.com/robert-at-pretension-io/veridec/internal/facts"
	"github.com/robert-at-pretension-io/veridec/internal/policy"
	"github.com/robert-at-pretension-io/veridec/internal/validator"
)

// Version identifies the compiler in cache fingerprints and --version.
const Version = "0.1.0"

// Driver compiles a Veride source tree.
type Driver struct {
	// Configuration loaded from veride.json / veride.yaml
	Config *config.Config

	// Log receives progress and debug output (stderr by default)
	Log *logrus.Logger

	// Stdout receives the build report; Stderr receives rendered diagnostics
	Stdout io.Writer
	Stderr io.Writer

	// JSON output mode
	JSONOutput bool

	// Color enables ANSI escapes in rendered diagnostics
	Color bool

	// Timing output (JSONL)
	Timing     bool
	TimingPath string

	// NoWrite compiles and collects facts without writing Verilog or
	// touching the cache
	NoWrite bool
}

// New creates a Driver for cfg. A nil cfg uses the defaults.
func New(cfg *config.Config) *Driver {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	return &Driver{
		Config: cfg,
		Log:    log,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// run holds the per-Run collaborators shared by the file workers.
type run struct {
	baseDir   string
	cache     *buildCache
	timing    *timingRecorder
	validator *validator.FactsValidator
	opts      []compiler.Option
}

// Run compiles every source selected under rootPath. rootPath may also name
// a single .vd file. The returned error covers I/O, cache, contract and
// policy failures; compile errors are reported per file in the result.
func (d *Driver) Run(ctx context.Context, rootPath string) (*BuildResult, error) {
	runStart := time.Now()
	cfg := d.Config

	scanStart := time.Now()
	baseDir, sources, err := d.scan(rootPath)
	if err != nil {
		return nil, err
	}

	timing := newTimingRecorder(runStart, d.resolveTimingPath(baseDir))
	defer timing.Close()
	if err := timing.Err(); err != nil {
		d.Log.WithError(err).Warn("timing output disabled")
	}
	timing.RecordStage("scan", scanStart, "ok")
	d.Log.WithField("root", baseDir).Infof("found %d source files", len(sources))

	fv, err := validator.NewFactsValidator()
	if err != nil {
		return nil, fmt.Errorf("loading facts schema: %w", err)
	}

	st := &run{
		baseDir:   baseDir,
		timing:    timing,
		validator: fv,
		opts: []compiler.Option{
			compiler.WithIndent(cfg.Output.Indent),
			compiler.WithMaxDepth(cfg.Build.MaxNestingDepth),
		},
	}
	if cfg.CacheEnabled() && !d.NoWrite {
		st.cache = newBuildCache(cfg.CacheDir(baseDir), d.fingerprint())
		if err := st.cache.Load(); err != nil {
			d.Log.WithError(err).Warn("ignoring unreadable cache")
			st.cache = newBuildCache(cfg.CacheDir(baseDir), d.fingerprint())
		}
	}

	compileStart := time.Now()
	files := make([]FileResult, len(sources))
	tables := make([]facts.Tables, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.parallelism())
	for i, path := range sources {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fr, t, err := d.buildFile(st, path)
			if err != nil {
				return err
			}
			files[i] = fr
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		timing.RecordStage("compile", compileStart, "error")
		return nil, err
	}
	timing.RecordStage("compile", compileStart, "ok")

	var parts []facts.Tables
	for i, fr := range files {
		if fr.Status != StatusFailed {
			parts = append(parts, tables[i])
		}
	}
	merged := facts.Merge(parts...)

	if st.cache != nil {
		keep := make(map[string]bool, len(files))
		for _, fr := range files {
			keep[fr.Path] = true
		}
		if err := st.cache.Save(keep); err != nil {
			return nil, fmt.Errorf("saving cache: %w", err)
		}
		if err := SaveFactTables(st.cache.dir, merged); err != nil {
			return nil, err
		}
	}

	result := &BuildResult{
		Files:      files,
		Violations: []policy.Violation{},
		Facts:      merged,
	}

	if cfg.LintEnabled() {
		policyStart := time.Now()
		evaluated, status, err := d.evaluatePolicy(ctx, st, merged)
		if err != nil {
			timing.RecordStage("policy", policyStart, "error")
			return nil, err
		}
		result.Violations = policy.ApplyConfig(evaluated, cfg).Violations
		timing.RecordStage("policy", policyStart, status)
	}

	result.Summary = summarize(result.Files, result.Violations)
	timing.RecordStage("total", runStart, "ok")
	d.Log.WithFields(logrus.Fields{
		"compiled": result.Summary.Compiled,
		"cached":   result.Summary.Cached,
		"failed":   result.Summary.Failed,
		"elapsed":  formatDuration(time.Since(runStart)),
	}).Info("build finished")
	return result, nil
}

// buildFile compiles one source. Compile errors end up in the FileResult;
// the returned error is reserved for I/O and contract failures.
func (d *Driver) buildFile(st *run, path string) (FileResult, facts.Tables, error) {
	start := time.Now()
	rel := d.relPath(st.baseDir, path)
	outPath := d.Config.OutputPath(path, st.baseDir)

	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, facts.Tables{}, fmt.Errorf("reading %s: %w", rel, err)
	}
	src := string(data)
	hash := hashBytes(data)
	fr := FileResult{Path: rel, Diagnostics: []diag.Diagnostic{}, source: src}

	if st.cache != nil {
		cached, cachedOut, ok, err := st.cache.Get(rel, hash)
		if err != nil {
			d.Log.WithError(err).WithField("file", rel).Debug("cache miss")
		}
		if ok && cachedOut == outPath {
			fr.Status = StatusCached
			fr.Output = d.relPath(st.baseDir, outPath)
			st.timing.RecordFile("compile", rel, StatusCached, start)
			d.Log.WithField("file", rel).Debug("cached")
			return fr, cached, nil
		}
	}

	u := compiler.Parse(rel, src, st.opts...)
	if !u.OK() {
		fr.Status = StatusFailed
		fr.Diagnostics = u.Diagnostics
		if st.cache != nil {
			st.cache.Forget(rel)
		}
		st.timing.RecordFile("compile", rel, StatusFailed, start)
		d.Log.WithField("file", rel).Debugf("%d diagnostics", len(u.Diagnostics))
		return fr, facts.Tables{}, nil
	}

	tables := facts.Build(rel, src, u.Module)
	if err := st.validator.Validate(tables); err != nil {
		return FileResult{}, facts.Tables{}, fmt.Errorf("facts for %s violate the schema: %w", rel, err)
	}

	if d.NoWrite {
		fr.Status = StatusCompiled
		st.timing.RecordFile("compile", rel, StatusCompiled, start)
		return fr, tables, nil
	}

	compiler.Generate(u, st.opts...)
	if err := writeFileAtomic(outPath, []byte(u.Verilog)); err != nil {
		return FileResult{}, facts.Tables{}, fmt.Errorf("writing output for %s: %w", rel, err)
	}
	if st.cache != nil {
		if err := st.cache.Put(rel, hash, outPath, u.Verilog, tables); err != nil {
			d.Log.WithError(err).WithField("file", rel).Warn("cache write failed")
		}
	}

	fr.Status = StatusCompiled
	fr.Output = d.relPath(st.baseDir, outPath)
	st.timing.RecordFile("compile", rel, StatusCompiled, start)
	d.Log.WithField("file", rel).Debugf("compiled in %s", formatDuration(time.Since(start)))
	return fr, tables, nil
}

// evaluatePolicy runs the lint rules over merged, reusing the previous
// result when neither the facts nor the rules changed.
func (d *Driver) evaluatePolicy(ctx context.Context, st *run, merged facts.Tables) (*policy.Result, string, error) {
	policyDir := d.Config.Lint.PolicyDir

	var inputHash string
	if st.cache != nil {
		hash, err := policyInputHash(merged, policyDir)
		if err != nil {
			return nil, "", fmt.Errorf("loading policies: %w", err)
		}
		inputHash = hash
		entry, err := loadPolicyCache(st.cache.dir)
		if err != nil {
			d.Log.WithError(err).Debug("ignoring policy cache")
		}
		if policyCacheValid(entry, inputHash) {
			d.Log.Debug("policy result cached")
			return &entry.Result, StatusCached, nil
		}
	}

	engine, err := policy.New(ctx, policyDir)
	if err != nil {
		return nil, "", fmt.Errorf("loading policies: %w", err)
	}
	evaluated, err := engine.Evaluate(ctx, merged)
	if err != nil {
		return nil, "", fmt.Errorf("evaluating policies: %w", err)
	}

	if st.cache != nil {
		if err := savePolicyCache(st.cache.dir, policyCacheEntry{InputHash: inputHash, Result: *evaluated}); err != nil {
			d.Log.WithError(err).Warn("policy cache write failed")
		}
	}
	return evaluated, "ok", nil
}

// scan returns the directory paths are reported relative to and the
// sources to compile.
func (d *Driver) scan(rootPath string) (string, []string, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return "", nil, fmt.Errorf("resolving %s: %w", rootPath, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, fmt.Errorf("reading %s: %w", rootPath, err)
	}
	if !info.IsDir() {
		if !strings.EqualFold(filepath.Ext(abs), config.SourceExt) {
			return "", nil, fmt.Errorf("%s is not a %s file", rootPath, config.SourceExt)
		}
		return filepath.Dir(abs), []string{abs}, nil
	}

	sources, err := d.Config.ResolveSources(abs)
	if err != nil {
		return "", nil, fmt.Errorf("finding sources: %w", err)
	}
	return abs, sources, nil
}

func (d *Driver) relPath(baseDir, path string) string {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (d *Driver) parallelism() int {
	if n := d.Config.Build.MaxParallelFiles; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// fingerprint changes whenever cached output could differ for the same source.
func (d *Driver) fingerprint() string {
	return fmt.Sprintf("veridec-%s indent=%d depth=%d", Version, d.Config.Output.Indent, d.Config.Build.MaxNestingDepth)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}
