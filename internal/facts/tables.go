package facts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/robert-at-pretension-io/veridec/internal/ast"
	"github.com/robert-at-pretension-io/veridec/internal/diag"
)

// Tables is the relational fact model consumed by the policy engine.
// Each slice is a relation (table) with flat rows. Nesting is expressed
// through the scope and block columns rather than through nested records.
type Tables struct {
	Files       []FileRow       `json:"files"`
	Modules     []ModuleRow     `json:"modules"`
	Ports       []PortRow       `json:"ports"`
	Nets        []NetRow        `json:"nets"`
	Blocks      []BlockRow      `json:"blocks"`
	Assignments []AssignmentRow `json:"assignments"`
	Switches    []SwitchRow     `json:"switches"`
	Generates   []GenerateRow   `json:"generates"`
}

type FileRow struct {
	Path   string `json:"path"`
	Module string `json:"module"`
}

type ModuleRow struct {
	Name         string `json:"name"`
	Declarations int    `json:"declarations"`
	File         string `json:"file"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
}

type PortRow struct {
	Module    string `json:"module"`
	Scope     string `json:"scope"`
	Name      string `json:"name"`
	Direction string `json:"direction"`
	IsReg     bool   `json:"is_reg"`
	Width     int    `json:"width"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
}

type NetRow struct {
	Module string `json:"module"`
	Scope  string `json:"scope"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Width  int    `json:"width"`
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// BlockRow is one combinatorial block.
type BlockRow struct {
	ID         string `json:"id"`
	Module     string `json:"module"`
	Scope      string `json:"scope"`
	Statements int    `json:"statements"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
}

// AssignmentRow is one assignment, including those nested in switch arms.
type AssignmentRow struct {
	Module string   `json:"module"`
	Scope  string   `json:"scope"`
	Block  string   `json:"block"`
	Target string   `json:"target"`
	Reads  []string `json:"reads"`
	File   string   `json:"file"`
	Line   int      `json:"line"`
	Column int      `json:"column"`
}

type SwitchRow struct {
	ID          string `json:"id"`
	Module      string `json:"module"`
	Scope       string `json:"scope"`
	Block       string `json:"block"`
	Subject     string `json:"subject"`
	Placeholder bool   `json:"placeholder"`
	Cases       int    `json:"cases"`
	HasDefault  bool   `json:"has_default"`
	File        string `json:"file"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
}

// GenerateRow is one conditional generate block. Its ID is the scope of
// the declarations nested inside it.
type GenerateRow struct {
	ID           string `json:"id"`
	Module       string `json:"module"`
	Scope        string `json:"scope"`
	Condition    string `json:"condition"`
	Declarations int    `json:"declarations"`
	File         string `json:"file"`
	Line         int    `json:"line"`
	Column       int    `json:"column"`
}

// builder flattens one module into rows.
type builder struct {
	file, src, module string
	tables            *Tables
	blocks, switches  int
	generates         int
}

// Build converts a parsed module into fact tables. src is the text the
// module was parsed from and is used to compute line and column numbers.
func Build(file, src string, m *ast.Module) Tables {
	tables := emptyTables()
	if m == nil {
		return tables
	}
	b := &builder{file: file, src: src, module: m.Name, tables: &tables}

	line, col := b.locate(m)
	tables.Files = append(tables.Files, FileRow{Path: file, Module: m.Name})
	tables.Modules = append(tables.Modules, ModuleRow{
		Name:         m.Name,
		Declarations: len(m.Declarations),
		File:         file,
		Line:         line,
		Column:       col,
	})
	b.declarations(m.Declarations, m.Name)
	return tables
}

func (b *builder) locate(n ast.Node) (int, int) {
	return diag.Locate(b.src, n.Pos().Start)
}

func (b *builder) declarations(decls []ast.Declaration, scope string) {
	for _, d := range decls {
		line, col := b.locate(d)
		switch d := d.(type) {
		case *ast.Port:
			b.tables.Ports = append(b.tables.Ports, PortRow{
				Module:    b.module,
				Scope:     scope,
				Name:      d.Name,
				Direction: d.Direction.String(),
				IsReg:     d.IsReg,
				Width:     d.Width,
				File:      b.file,
				Line:      line,
				Column:    col,
			})
		case *ast.Net:
			b.tables.Nets = append(b.tables.Nets, NetRow{
				Module: b.module,
				Scope:  scope,
				Name:   d.Name,
				Kind:   d.Kind.String(),
				Width:  d.Width,
				File:   b.file,
				Line:   line,
				Column: col,
			})
		case *ast.Combinatorial:
			b.blocks++
			id := fmt.Sprintf("%s/comb%d", scope, b.blocks)
			b.tables.Blocks = append(b.tables.Blocks, BlockRow{
				ID:         id,
				Module:     b.module,
				Scope:      scope,
				Statements: len(d.Statements),
				File:       b.file,
				Line:       line,
				Column:     col,
			})
			for _, s := range d.Statements {
				b.statement(s, scope, id)
			}
		case *ast.ConditionalBlock:
			b.generates++
			id := fmt.Sprintf("%s/gen%d", scope, b.generates)
			b.tables.Generates = append(b.tables.Generates, GenerateRow{
				ID:           id,
				Module:       b.module,
				Scope:        scope,
				Condition:    d.Condition,
				Declarations: len(d.Declarations),
				File:         b.file,
				Line:         line,
				Column:       col,
			})
			b.declarations(d.Declarations, id)
		}
	}
}

func (b *builder) statement(s ast.Statement, scope, block string) {
	line, col := b.locate(s)
	switch s := s.(type) {
	case *ast.Assignment:
		reads := ast.Identifiers(s.Expr)
		if reads == nil {
			reads = []string{}
		}
		b.tables.Assignments = append(b.tables.Assignments, AssignmentRow{
			Module: b.module,
			Scope:  scope,
			Block:  block,
			Target: s.Target,
			Reads:  reads,
			File:   b.file,
			Line:   line,
			Column: col,
		})
	case *ast.Switch:
		b.switches++
		b.tables.Switches = append(b.tables.Switches, SwitchRow{
			ID:          fmt.Sprintf("%s/switch%d", block, b.switches),
			Module:      b.module,
			Scope:       scope,
			Block:       block,
			Subject:     exprText(s.Subject),
			Placeholder: ast.IsPlaceholder(s.Subject),
			Cases:       len(s.Cases),
			HasDefault:  s.Default != nil,
			File:        b.file,
			Line:        line,
			Column:      col,
		})
		for _, c := range s.Cases {
			b.statement(c.Body, scope, block)
		}
		if s.Default != nil {
			b.statement(s.Default, scope, block)
		}
	}
}

func exprText(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Identifier:
		return e.Name
	case *ast.Literal:
		return e.Text
	case *ast.BinaryOp:
		return exprText(e.Left) + " " + e.Op.Symbol() + " " + exprText(e.Right)
	}
	return ""
}

// Merge concatenates per-file tables into one snapshot ordered by file.
func Merge(parts ...Tables) Tables {
	sorted := append([]Tables(nil), parts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return firstPath(sorted[i]) < firstPath(sorted[j])
	})

	out := emptyTables()
	for _, t := range sorted {
		out.Files = append(out.Files, t.Files...)
		out.Modules = append(out.Modules, t.Modules...)
		out.Ports = append(out.Ports, t.Ports...)
		out.Nets = append(out.Nets, t.Nets...)
		out.Blocks = append(out.Blocks, t.Blocks...)
		out.Assignments = append(out.Assignments, t.Assignments...)
		out.Switches = append(out.Switches, t.Switches...)
		out.Generates = append(out.Generates, t.Generates...)
	}
	return out
}

func firstPath(t Tables) string {
	if len(t.Files) == 0 {
		return ""
	}
	return t.Files[0].Path
}

// Count returns the total number of rows across all tables.
func (t Tables) Count() int {
	return len(t.Files) + len(t.Modules) + len(t.Ports) + len(t.Nets) +
		len(t.Blocks) + len(t.Assignments) + len(t.Switches) + len(t.Generates)
}

// Summary renders row counts per table, e.g. "modules=1 ports=2 ...".
func (t Tables) Summary() string {
	parts := []string{
		fmt.Sprintf("files=%d", len(t.Files)),
		fmt.Sprintf("modules=%d", len(t.Modules)),
		fmt.Sprintf("ports=%d", len(t.Ports)),
		fmt.Sprintf("nets=%d", len(t.Nets)),
		fmt.Sprintf("blocks=%d", len(t.Blocks)),
		fmt.Sprintf("assignments=%d", len(t.Assignments)),
		fmt.Sprintf("switches=%d", len(t.Switches)),
		fmt.Sprintf("generates=%d", len(t.Generates)),
	}
	return strings.Join(parts, " ")
}
