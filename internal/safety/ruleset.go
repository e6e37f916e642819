// Package safety recognizes service-impacting commands before they reach a
// device. Classification is advisory; the submission policy decides whether a
// flagged command needs operator confirmation.
package safety

import (
	"fmt"
	"regexp"
)

// Rule is one auditable entry of the rule table. Pattern is matched
// case-insensitively and anchored to the start of the trimmed command.
type Rule struct {
	Name    string
	Pattern string

	re *regexp.Regexp
}

// RuleSet is an immutable, versioned rule table. Build one with NewRuleSet
// and inject it into a Classifier; tests substitute their own sets.
type RuleSet struct {
	version string
	rules   []Rule
}

func NewRuleSet(version string, rules []Rule) (*RuleSet, error) {
	compiled := make([]Rule, 0, len(rules))
	for _, r := range rules {
		re, err := regexp.Compile(`(?i)^` + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		r.re = re
		compiled = append(compiled, r)
	}
	return &RuleSet{version: version, rules: compiled}, nil
}

func (rs *RuleSet) Version() string {
	return rs.version
}

// Rules returns a copy of the table for audit listings.
func (rs *RuleSet) Rules() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// match returns the first rule matching the trimmed command, if any. Specific
// rules are listed before general ones so the reported rule name is the most
// precise match.
func (rs *RuleSet) match(command string) (Rule, bool) {
	for _, r := range rs.rules {
		if r.re.MatchString(command) {
			return r, true
		}
	}
	return Rule{}, false
}

// DefaultRuleSet returns the built-in table. It is a live list, not an
// exhaustive safety guarantee; extend it as new platforms join the fleet.
func DefaultRuleSet() *RuleSet {
	rs, err := NewRuleSet("v1", []Rule{
		{Name: "reload", Pattern: `reload\b`},
		{Name: "reboot", Pattern: `reboot\b`},
		{Name: "write-erase", Pattern: `write\s+erase\b`},
		{Name: "erase", Pattern: `erase\b`},
		{Name: "zeroize", Pattern: `request\s+system\s+zeroize\b`},
		{Name: "format", Pattern: `format\b`},
		{Name: "config-replace", Pattern: `configure\s+replace\b`},
		{Name: "rollback", Pattern: `rollback\b`},
		{Name: "no-shutdown", Pattern: `no\s+shutdown\b`},
		{Name: "shutdown", Pattern: `shutdown\b`},
		{Name: "router-remove", Pattern: `no\s+router\b`},
		{Name: "router-add", Pattern: `router\b`},
		{Name: "vrf-remove", Pattern: `no\s+(ip\s+)?vrf\b`},
		{Name: "vrf", Pattern: `(ip\s+)?vrf\b`},
		{Name: "license", Pattern: `license\b`},
		{Name: "debug", Pattern: `(un)?debug\b`},
		{Name: "copy-startup", Pattern: `copy\s+\S+\s+startup-config\b`},
		{Name: "write-mem", Pattern: `write\b`},
		{Name: "commit", Pattern: `commit\b`},
	})
	if err != nil {
		// the built-in table is covered by tests; a compile failure here is
		// a programming error
		panic(err)
	}
	return rs
}
