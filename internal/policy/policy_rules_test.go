package policy_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/robert-at-pretension-io/veridec/internal/compiler"
	"github.com/robert-at-pretension-io/veridec/internal/facts"
	"github.com/robert-at-pretension-io/veridec/internal/policy"
)

type ruleManifest map[string]string

func TestPolicyRuleFixtures(t *testing.T) {
	repoRoot := findRepoRoot(t)
	fixturesDir := filepath.Join(repoRoot, "testdata", "policy_rules")
	manifest := loadManifest(t, filepath.Join(fixturesDir, "manifest.json"))

	byFile := map[string][]string{}
	for rule, file := range manifest {
		byFile[file] = append(byFile[file], rule)
	}

	for relFile, rules := range byFile {
		relFile := relFile
		rules := rules
		t.Run(relFile, func(t *testing.T) {
			result := lintFile(t, filepath.Join(fixturesDir, relFile))
			for _, rule := range rules {
				if !hasRule(result, rule) {
					t.Fatalf("expected rule %q for %s; got rules: %v", rule, relFile, collectRules(result))
				}
			}
		})
	}
}

func TestPolicyRuleNegativeFixtures(t *testing.T) {
	repoRoot := findRepoRoot(t)
	fixturesDir := filepath.Join(repoRoot, "testdata", "policy_rules")
	negative := loadManifest(t, filepath.Join(fixturesDir, "manifest_negative.json"))

	for rule, relFile := range negative {
		rule := rule
		relFile := relFile
		t.Run(rule, func(t *testing.T) {
			result := lintFile(t, filepath.Join(fixturesDir, relFile))
			if hasRule(result, rule) {
				t.Fatalf("rule %q fired on %s: %v", rule, relFile, result.Violations)
			}
		})
	}
}

func TestPolicyRuleManifestsCoverRules(t *testing.T) {
	repoRoot := findRepoRoot(t)
	fixturesDir := filepath.Join(repoRoot, "testdata", "policy_rules")
	manifest := loadManifest(t, filepath.Join(fixturesDir, "manifest.json"))
	negative := loadManifest(t, filepath.Join(fixturesDir, "manifest_negative.json"))

	var missing []string
	for rule := range policy.Rules {
		if _, ok := manifest[rule]; !ok {
			missing = append(missing, rule)
		}
		if _, ok := negative[rule]; !ok {
			missing = append(missing, rule+" (negative)")
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		t.Fatalf("policy rules missing from manifests: %v", missing)
	}

	var extra []string
	for rule := range manifest {
		if _, ok := policy.Rules[rule]; !ok {
			extra = append(extra, rule)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		t.Fatalf("manifest contains unknown rules: %v", extra)
	}
}

func TestRuleDefaultSeverities(t *testing.T) {
	repoRoot := findRepoRoot(t)
	fixturesDir := filepath.Join(repoRoot, "testdata", "policy_rules")
	manifest := loadManifest(t, filepath.Join(fixturesDir, "manifest.json"))

	for rule, relFile := range manifest {
		result := lintFile(t, filepath.Join(fixturesDir, relFile))
		for _, v := range result.Violations {
			if v.Rule != rule {
				continue
			}
			if want := policy.Rules[rule]; v.Severity != want {
				t.Errorf("%s: severity = %q, want %q", rule, v.Severity, want)
			}
			if v.Line < 1 || v.Column < 1 {
				t.Errorf("%s: violation has no position: %+v", rule, v)
			}
		}
	}
}

func loadManifest(t *testing.T, path string) ruleManifest {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	var manifest ruleManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		t.Fatalf("parse manifest: %v", err)
	}

	return manifest
}

func lintFile(t *testing.T, filePath string) *policy.Result {
	t.Helper()
	src, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	name := filepath.Base(filePath)
	return lintSource(t, name, string(src))
}

func lintSource(t *testing.T, name, src string) *policy.Result {
	t.Helper()
	u := compiler.Parse(name, src)
	if !u.OK() {
		t.Fatalf("fixture %s does not parse: %v", name, u.Diagnostics)
	}

	engine, err := policy.New(context.Background(), "")
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	result, err := engine.Evaluate(context.Background(), facts.Build(name, src, u.Module))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	return result
}

func hasRule(result *policy.Result, rule string) bool {
	for _, v := range result.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

func collectRules(result *policy.Result) []string {
	rules := make([]string, 0, len(result.Violations))
	for _, v := range result.Violations {
		rules = append(rules, v.Rule)
	}
	return rules
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	dir := start
	for {
		candidate := filepath.Join(dir, "testdata", "policy_rules", "manifest.json")
		if _, err := os.Stat(candidate); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("repo root not found from %s", start)
		}
		dir = parent
	}
}
