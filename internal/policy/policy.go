package policy

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/open-policy-agent/opa/rego"

	"github.com/robert-at-pretension-io/veridec/internal/config"
	"github.com/robert-at-pretension-io/veridec/internal/facts"
)

//go:embed rules/*.rego
var builtinRules embed.FS

const violationsQuery = "data.veride.lint.all_violations"

// Rules lists the built-in rule names with their default severities.
var Rules = map[string]string{
	"duplicate_declaration":     "error",
	"input_reg":                 "error",
	"assign_to_input":           "error",
	"assign_to_net":             "error",
	"output_not_driven":         "warning",
	"multiple_drivers":          "error",
	"unresolved_switch_subject": "warning",
	"empty_generate":            "warning",
	"empty_combinatorial":       "warning",
}

// Engine evaluates OPA policies against Veride facts
type Engine struct {
	query rego.PreparedEvalQuery
}

// Violation represents a policy violation
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
}

// Result contains the evaluation results
type Result struct {
	Violations []Violation `json:"violations"`
	Summary    Summary     `json:"summary"`
}

// Summary provides aggregate counts
type Summary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// ruleSources returns the built-in rules followed by the .rego files in
// policyDir, as (name, content) pairs in load order.
func ruleSources(policyDir string) ([][2]string, error) {
	var out [][2]string

	builtin, err := fs.Glob(builtinRules, "rules/*.rego")
	if err != nil {
		return nil, fmt.Errorf("finding built-in rules: %w", err)
	}
	for _, f := range builtin {
		content, err := builtinRules.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		out = append(out, [2]string{f, string(content)})
	}

	if policyDir == "" {
		return out, nil
	}
	files, err := filepath.Glob(filepath.Join(policyDir, "*.rego"))
	if err != nil {
		return nil, fmt.Errorf("finding policy files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no policy files found in %s", policyDir)
	}
	sort.Strings(files)
	for _, f := range files {
		content, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}
		out = append(out, [2]string{f, string(content)})
	}
	return out, nil
}

// Fingerprint hashes every rule New would load for policyDir, so cached
// results can be dropped when a rule changes.
func Fingerprint(policyDir string) (string, error) {
	sources, err := ruleSources(policyDir)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, src := range sources {
		h.Write([]byte(filepath.Base(src[0])))
		h.Write([]byte{0})
		h.Write([]byte(src[1]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// New creates a policy engine from the built-in rules plus every .rego file
// in policyDir. An empty policyDir loads the built-in rules only. Extra
// rules join package veride.lint and add to the violations set.
func New(ctx context.Context, policyDir string) (*Engine, error) {
	sources, err := ruleSources(policyDir)
	if err != nil {
		return nil, err
	}
	var modules []func(*rego.Rego)
	for _, src := range sources {
		modules = append(modules, rego.Module(src[0], src[1]))
	}

	opts := append(modules, rego.Query(violationsQuery))
	query, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing violations query: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the policies against the fact tables. Violations come back
// sorted by file, line and rule with the rules' default severities.
func (e *Engine) Evaluate(ctx context.Context, tables facts.Tables) (*Result, error) {
	inputMap, err := structToMap(tables)
	if err != nil {
		return nil, fmt.Errorf("converting input: %w", err)
	}

	rs, err := e.query.Eval(ctx, rego.EvalInput(inputMap))
	if err != nil {
		return nil, fmt.Errorf("evaluating violations: %w", err)
	}

	result := &Result{Violations: []Violation{}}
	if len(rs) > 0 && len(rs[0].Expressions) > 0 {
		violations, ok := rs[0].Expressions[0].Value.([]interface{})
		if ok {
			for _, v := range violations {
				vmap, ok := v.(map[string]interface{})
				if !ok {
					continue
				}
				result.Violations = append(result.Violations, Violation{
					Rule:     getString(vmap, "rule"),
					Severity: getString(vmap, "severity"),
					File:     getString(vmap, "file"),
					Line:     getInt(vmap, "line"),
					Column:   getInt(vmap, "column"),
					Message:  getString(vmap, "message"),
				})
			}
		}
	}

	SortViolations(result.Violations)
	result.Summary = Summarize(result.Violations)
	return result, nil
}

// ApplyConfig drops violations for rules set to "off" or files matched by
// lint.ignorePatterns, and replaces severities overridden in lint.rules.
func ApplyConfig(result *Result, cfg *config.Config) *Result {
	out := &Result{Violations: []Violation{}}
	for _, v := range result.Violations {
		if !cfg.IsRuleEnabled(v.Rule) || cfg.ShouldIgnoreFile(v.File) {
			continue
		}
		v.Severity = cfg.GetRuleSeverity(v.Rule, v.Severity)
		out.Violations = append(out.Violations, v)
	}
	out.Summary = Summarize(out.Violations)
	return out
}

// SortViolations orders violations by file, line, column and rule.
func SortViolations(vs []Violation) {
	sort.Slice(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
}

// Summarize counts violations by severity.
func Summarize(vs []Violation) Summary {
	s := Summary{TotalViolations: len(vs)}
	for _, v := range vs {
		switch v.Severity {
		case "error":
			s.Errors++
		case "warning":
			s.Warnings++
		case "info":
			s.Info++
		}
	}
	return s
}

// Helper functions
func structToMap(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	err = json.Unmarshal(data, &result)
	return result, err
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]interface{}, key string) int {
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		case json.Number:
			i, _ := n.Int64()
			return int(i)
		}
	}
	return 0
}
