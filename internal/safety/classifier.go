package safety

import "strings"

// Classification is the verdict for one command. Derived fresh on every call
// and never cached, so it always reflects the exact text submitted.
type Classification struct {
	Command   string
	Dangerous bool
	Rule      string
}

type Classifier struct {
	rules *RuleSet
}

func NewClassifier(rules *RuleSet) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns one verdict per input command, in input order.
func (c *Classifier) Classify(commands []string) []Classification {
	out := make([]Classification, 0, len(commands))
	for _, cmd := range commands {
		trimmed := strings.TrimSpace(cmd)
		cls := Classification{Command: cmd}
		if rule, ok := c.rules.match(trimmed); ok {
			cls.Dangerous = true
			cls.Rule = rule.Name
		}
		out = append(out, cls)
	}
	return out
}

// Dangerous returns the subset of commands flagged by the rule table.
func (c *Classifier) Dangerous(commands []string) []string {
	var flagged []string
	for _, cls := range c.Classify(commands) {
		if cls.Dangerous {
			flagged = append(flagged, cls.Command)
		}
	}
	return flagged
}

// Version reports the rule table version, for audit logs.
func (c *Classifier) Version() string {
	return c.rules.Version()
}
