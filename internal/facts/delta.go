package facts

import (
	"strconv"
	"strings"
)

// Delta captures added and removed fact rows between two snapshots.
type Delta struct {
	Added   Tables `json:"added"`
	Removed Tables `json:"removed"`
}

// ComputeDelta computes row-level additions and removals between two snapshots.
func ComputeDelta(prev, next Tables) Delta {
	return Delta{
		Added:   diffTables(prev, next),
		Removed: diffTables(next, prev),
	}
}

// Empty reports whether the delta carries no rows.
func (d Delta) Empty() bool {
	return d.Added.Count() == 0 && d.Removed.Count() == 0
}

func diffTables(from, to Tables) Tables {
	out := emptyTables()

	out.Files = diffRows(from.Files, to.Files, func(r FileRow) string {
		return r.Path + "|" + r.Module
	})
	out.Modules = diffRows(from.Modules, to.Modules, func(r ModuleRow) string {
		return r.Name + "|" + intKey(r.Declarations) + "|" + locKey(r.File, r.Line, r.Column)
	})
	out.Ports = diffRows(from.Ports, to.Ports, func(r PortRow) string {
		return r.Module + "|" + r.Scope + "|" + r.Name + "|" + r.Direction + "|" + boolKey(r.IsReg) + "|" + intKey(r.Width) + "|" + locKey(r.File, r.Line, r.Column)
	})
	out.Nets = diffRows(from.Nets, to.Nets, func(r NetRow) string {
		return r.Module + "|" + r.Scope + "|" + r.Name + "|" + r.Kind + "|" + intKey(r.Width) + "|" + locKey(r.File, r.Line, r.Column)
	})
	out.Blocks = diffRows(from.Blocks, to.Blocks, func(r BlockRow) string {
		return r.ID + "|" + r.Module + "|" + r.Scope + "|" + intKey(r.Statements) + "|" + locKey(r.File, r.Line, r.Column)
	})
	out.Assignments = diffRows(from.Assignments, to.Assignments, func(r AssignmentRow) string {
		return r.Module + "|" + r.Scope + "|" + r.Block + "|" + r.Target + "|" + strings.Join(r.Reads, ",") + "|" + locKey(r.File, r.Line, r.Column)
	})
	out.Switches = diffRows(from.Switches, to.Switches, func(r SwitchRow) string {
		return r.ID + "|" + r.Module + "|" + r.Scope + "|" + r.Block + "|" + r.Subject + "|" + boolKey(r.Placeholder) + "|" + intKey(r.Cases) + "|" + boolKey(r.HasDefault) + "|" + locKey(r.File, r.Line, r.Column)
	})
	out.Generates = diffRows(from.Generates, to.Generates, func(r GenerateRow) string {
		return r.ID + "|" + r.Module + "|" + r.Scope + "|" + r.Condition + "|" + intKey(r.Declarations) + "|" + locKey(r.File, r.Line, r.Column)
	})

	return out
}

func emptyTables() Tables {
	return Tables{
		Files:       []FileRow{},
		Modules:     []ModuleRow{},
		Ports:       []PortRow{},
		Nets:        []NetRow{},
		Blocks:      []BlockRow{},
		Assignments: []AssignmentRow{},
		Switches:    []SwitchRow{},
		Generates:   []GenerateRow{},
	}
}

func diffRows[T any](from, to []T, key func(T) string) []T {
	fromSet := make(map[string]struct{}, len(from))
	for _, row := range from {
		fromSet[key(row)] = struct{}{}
	}
	diff := []T{}
	for _, row := range to {
		if _, ok := fromSet[key(row)]; !ok {
			diff = append(diff, row)
		}
	}
	return diff
}

func boolKey(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func intKey(v int) string { return strconv.Itoa(v) }

func locKey(file string, line, column int) string {
	return file + ":" + intKey(line) + ":" + intKey(column)
}
