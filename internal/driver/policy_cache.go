package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robert-at-pretension-io/veridec/internal/facts"
	"github.com/robert-at-pretension-io/veridec/internal/policy"
)

const policyCacheVersion = 1

// policyCacheEntry holds the raw engine result (before lint config is
// applied) for one combination of fact tables and rules.
type policyCacheEntry struct {
	Version   int           `json:"version"`
	InputHash string        `json:"input_hash"`
	Result    policy.Result `json:"result"`
}

func policyCachePath(dir string) string {
	return filepath.Join(dir, "policy_cache.json")
}

func loadPolicyCache(dir string) (*policyCacheEntry, error) {
	data, err := os.ReadFile(policyCachePath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entry policyCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parse policy cache: %w", err)
	}
	return &entry, nil
}

func savePolicyCache(dir string, entry policyCacheEntry) error {
	entry.Version = policyCacheVersion
	if err := writeJSONAtomic(policyCachePath(dir), entry); err != nil {
		return fmt.Errorf("write policy cache: %w", err)
	}
	return nil
}

func policyCacheValid(entry *policyCacheEntry, inputHash string) bool {
	return entry != nil && entry.Version == policyCacheVersion && entry.InputHash == inputHash
}

// policyInputHash covers everything the engine result depends on: the
// merged fact tables and the rule sources. Severity overrides and ignores
// are applied afterwards, so they stay out of the hash.
func policyInputHash(tables facts.Tables, policyDir string) (string, error) {
	rules, err := policy.Fingerprint(policyDir)
	if err != nil {
		return "", err
	}
	payload := struct {
		Rules  string       `json:"rules"`
		Tables facts.Tables `json:"tables"`
	}{rules, tables}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal policy input: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
