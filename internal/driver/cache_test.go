package driver

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/robert-at-pretension-io/veridec/internal/facts"
)

func TestCacheReuseSkipsCompilation(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "pass.vd", passSource)
	writeSource(t, dir, "bad.vd", badSource)
	cfg := testConfig(true)

	first := runForTest(t, newTestDriver(cfg), dir)
	if first.Summary.Compiled != 1 || first.Summary.Cached != 0 {
		t.Fatalf("first run summary: %+v", first.Summary)
	}

	second := runForTest(t, newTestDriver(cfg), dir)
	if second.Summary.Cached != 1 || second.Summary.Compiled != 0 {
		t.Fatalf("second run should reuse the cache: %+v", second.Summary)
	}
	if second.Summary.Failed != 1 {
		t.Fatalf("failed files are never cached: %+v", second.Summary)
	}
	if !reflect.DeepEqual(first.Facts, second.Facts) {
		t.Fatalf("cached facts differ from compiled facts")
	}
}

func TestCacheInvalidation(t *testing.T) {
	tests := []struct {
		name   string
		change func(t *testing.T, dir string, d *Driver)
	}{
		{"source edited", func(t *testing.T, dir string, d *Driver) {
			writeSource(t, dir, "pass.vd", passSource+"\n")
		}},
		{"output edited", func(t *testing.T, dir string, d *Driver) {
			writeSource(t, dir, "pass.v", "// hand edit\n")
		}},
		{"output deleted", func(t *testing.T, dir string, d *Driver) {
			if err := os.Remove(filepath.Join(dir, "pass.v")); err != nil {
				t.Fatalf("remove: %v", err)
			}
		}},
		{"indent changed", func(t *testing.T, dir string, d *Driver) {
			d.Config.Output.Indent = 2
		}},
		{"output dir changed", func(t *testing.T, dir string, d *Driver) {
			d.Config.Output.Dir = "out"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeSource(t, dir, "pass.vd", passSource)
			runForTest(t, newTestDriver(testConfig(true)), dir)

			d := newTestDriver(testConfig(true))
			tt.change(t, dir, d)
			result := runForTest(t, d, dir)
			if result.Summary.Compiled != 1 {
				t.Fatalf("expected recompilation, got %+v", result.Summary)
			}
		})
	}
}

func TestCacheDropsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "a.vd", passSource)
	path := writeSource(t, dir, "b.vd", passSource)
	cfg := testConfig(true)
	runForTest(t, newTestDriver(cfg), dir)

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	runForTest(t, newTestDriver(cfg), dir)

	c := newBuildCache(cfg.CacheDir(dir), "")
	if err := c.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := c.index.Entries["b.vd"]; ok {
		t.Fatalf("entry for removed file survived")
	}
	if _, ok := c.index.Entries["a.vd"]; !ok {
		t.Fatalf("entry for a.vd missing")
	}
}

func TestCorruptCacheIndexIsIgnored(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "pass.vd", passSource)
	cfg := testConfig(true)
	writeSource(t, cfg.CacheDir(dir), "index.json", "{not json")

	result := runForTest(t, newTestDriver(cfg), dir)
	if result.Summary.Compiled != 1 {
		t.Fatalf("expected a fresh compile, got %+v", result.Summary)
	}
}

func TestFactTablesCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tables := facts.Merge(facts.Tables{
		Files: []facts.FileRow{{Path: "a.vd", Module: "a"}},
	})

	if err := SaveFactTables(dir, tables); err != nil {
		t.Fatalf("SaveFactTables error: %v", err)
	}

	loaded, ok, err := LoadFactTables(dir)
	if err != nil {
		t.Fatalf("LoadFactTables error: %v", err)
	}
	if !ok {
		t.Fatalf("expected cache to be present")
	}
	if !reflect.DeepEqual(tables, loaded) {
		t.Fatalf("tables mismatch: expected %#v got %#v", tables, loaded)
	}

	if _, ok, err := LoadFactTables(t.TempDir()); ok || err != nil {
		t.Fatalf("missing snapshot: ok=%v err=%v", ok, err)
	}
}

func TestBuildWritesFactSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "pass.vd", passSource)
	cfg := testConfig(true)
	result := runForTest(t, newTestDriver(cfg), dir)

	loaded, ok, err := LoadFactTables(cfg.CacheDir(dir))
	if err != nil || !ok {
		t.Fatalf("snapshot missing: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(loaded, result.Facts) {
		t.Fatalf("snapshot differs from build facts")
	}
}
