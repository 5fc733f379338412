package facts

import "testing"

func TestFilterTablesByFiles(t *testing.T) {
	tables := Tables{
		Files: []FileRow{
			{Path: "a.vd", Module: "a"},
			{Path: "b.vd", Module: "b"},
		},
		Modules: []ModuleRow{
			{Name: "a", File: "a.vd"},
			{Name: "b", File: "b.vd"},
		},
		Ports: []PortRow{
			{Module: "a", Name: "clk", File: "a.vd"},
			{Module: "b", Name: "rst", File: "b.vd"},
		},
		Switches: []SwitchRow{
			{ID: "a/comb1/switch1", File: "a.vd"},
			{ID: "b/comb1/switch1", File: "b.vd"},
		},
	}

	files := map[string]bool{"a.vd": true}
	filtered := FilterTablesByFiles(tables, files)

	if len(filtered.Files) != 1 || filtered.Files[0].Path != "a.vd" {
		t.Fatalf("expected only a.vd file row, got %#v", filtered.Files)
	}
	if len(filtered.Modules) != 1 || filtered.Modules[0].File != "a.vd" {
		t.Fatalf("expected only a.vd module rows, got %#v", filtered.Modules)
	}
	if len(filtered.Ports) != 1 || filtered.Ports[0].File != "a.vd" {
		t.Fatalf("expected only a.vd port rows, got %#v", filtered.Ports)
	}
	if len(filtered.Switches) != 1 || filtered.Switches[0].File != "a.vd" {
		t.Fatalf("expected only a.vd switch rows, got %#v", filtered.Switches)
	}
	if filtered.Nets == nil {
		t.Fatalf("expected empty nets slice, got nil")
	}
}

func TestFilterDeltaByFilesEmpty(t *testing.T) {
	delta := Delta{
		Added: Tables{
			Files: []FileRow{{Path: "a.vd"}},
		},
		Removed: Tables{
			Files: []FileRow{{Path: "b.vd"}},
		},
	}

	filtered := FilterDeltaByFiles(delta, map[string]bool{})
	if len(filtered.Added.Files) != 0 || len(filtered.Removed.Files) != 0 {
		t.Fatalf("expected empty delta, got %#v", filtered)
	}
}
