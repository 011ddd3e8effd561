package identity

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Replacement is a single character substitution of an encoding rule.
type Replacement struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// EncodingRule describes one historical scheme used to turn an email into a
// document-store key.
type EncodingRule struct {
	Name         string        `yaml:"name"`
	Replacements []Replacement `yaml:"replacements"`
}

// Apply encodes s under the rule.
func (r EncodingRule) Apply(s string) string {
	for _, rep := range r.Replacements {
		s = strings.ReplaceAll(s, rep.From, rep.To)
	}
	return s
}

// AliasTable is the ordered set of encoding rules tried during matching and
// key probing. The first rule is the current scheme. The table is safe for
// concurrent use; Replace swaps the rule set atomically when the alias file
// is reloaded.
type AliasTable struct {
	mu    sync.RWMutex
	rules []EncodingRule
}

// DefaultAliasTable returns the compiled-in historical encodings:
//
//	underscore  user@example.com -> user_example_com   (current scheme)
//	comma       user@example.com -> user_example,com   (legacy medication keys)
//	at-word     user@example.com -> user_at_example_com (oldest account keys)
func DefaultAliasTable() *AliasTable {
	return &AliasTable{rules: []EncodingRule{
		{
			Name: "underscore",
			Replacements: []Replacement{
				{From: "@", To: "_"},
				{From: ".", To: "_"},
			},
		},
		{
			Name: "comma",
			Replacements: []Replacement{
				{From: "@", To: "_"},
				{From: ".", To: ","},
			},
		},
		{
			Name: "at-word",
			Replacements: []Replacement{
				{From: "@", To: "_at_"},
				{From: ".", To: "_"},
			},
		},
	}}
}

// LoadAliasTable reads a rule table from a YAML file.
func LoadAliasTable(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias table: %w", err)
	}
	return ParseAliasTable(data)
}

// ParseAliasTable decodes a rule table from YAML.
func ParseAliasTable(data []byte) (*AliasTable, error) {
	var doc struct {
		Rules []EncodingRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse alias table: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("alias table defines no rules")
	}
	for _, rule := range doc.Rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("alias table rule missing name")
		}
		if len(rule.Replacements) == 0 {
			return nil, fmt.Errorf("alias table rule %q has no replacements", rule.Name)
		}
	}
	return &AliasTable{rules: doc.Rules}, nil
}

// Rules returns a snapshot of the current rule set.
func (t *AliasTable) Rules() []EncodingRule {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rules := make([]EncodingRule, len(t.rules))
	copy(rules, t.rules)
	return rules
}

// Encode returns s encoded under every rule, in rule order.
func (t *AliasTable) Encode(s string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.rules))
	for _, rule := range t.rules {
		out = append(out, rule.Apply(s))
	}
	return out
}

// Replace swaps the rule set. Used by the config watcher on reload.
func (t *AliasTable) Replace(rules []EncodingRule) {
	if len(rules) == 0 {
		return
	}
	t.mu.Lock()
	t.rules = rules
	t.mu.Unlock()
}
