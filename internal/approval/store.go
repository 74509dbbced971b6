// Package approval implements the approval & safety classifier:
// resolveCommandApproval, a one-shot per-run allowlist, and a persisted
// rule store. The persisted store is a goleveldb database keyed by the
// command's stable signature under a single flat key prefix, since there
// is only one record kind here.
package approval

import (
	"encoding/json"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/zace-run/zace/internal/agentcore"
)

const rulePrefix = "rule|"

// Rule is the persisted record for one approval signature.
type Rule struct {
	Signature string                 `json:"signature"`
	Command   string                 `json:"command"`
	Scope     agentcore.ApprovalScope `json:"scope"`
	Decision  string                 `json:"decision"` // "allow" | "deny"
}

// Store is the goleveldb-backed persisted-rule store at
// .zace/runtime/approvals.db.
type Store struct {
	db *leveldb.DB
}

// Open opens (or creates) the approval database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := leveldb.OpenFile(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("open approval store at %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Lookup returns the persisted rule for signature, if any.
func (s *Store) Lookup(signature string) (*Rule, bool) {
	raw, err := s.db.Get([]byte(rulePrefix+signature), nil)
	if err != nil {
		return nil, false
	}
	var r Rule
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, false
	}
	return &r, true
}

// Put persists a rule, keyed by its signature.
func (s *Store) Put(r Rule) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Put([]byte(rulePrefix+r.Signature), data, nil)
}

// Delete removes a persisted rule. `zace approvals deny` does not use it;
// it overwrites the rule with Put instead.
func (s *Store) Delete(signature string) error {
	return s.db.Delete([]byte(rulePrefix+signature), nil)
}

// List returns every persisted rule, used by `zace approvals list`.
func (s *Store) List() []Rule {
	var rules []Rule
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		key := string(iter.Key())
		if len(key) < len(rulePrefix) || key[:len(rulePrefix)] != rulePrefix {
			continue
		}
		var r Rule
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			continue
		}
		rules = append(rules, r)
	}
	return rules
}
