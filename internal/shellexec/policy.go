package shellexec

import (
	"fmt"
	"regexp"
)

// Policy decides whether a command is allowed to run at all, independent of
// the approval workflow in internal/approval — this is a hard allow/deny
// list (e.g. "never run rm -rf /"), not a per-signature prompt.
type Policy struct {
	allow []*regexp.Regexp
	deny  []*regexp.Regexp
}

// NewPolicy compiles the allow/deny pattern lists from config. A command
// matching any deny pattern is rejected even if it also matches an allow
// pattern — deny always wins.
func NewPolicy(allowPatterns, denyPatterns []string) (*Policy, error) {
	p := &Policy{}
	for _, pat := range allowPatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid allow pattern %q: %w", pat, err)
		}
		p.allow = append(p.allow, re)
	}
	for _, pat := range denyPatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid deny pattern %q: %w", pat, err)
		}
		p.deny = append(p.deny, re)
	}
	return p, nil
}

// Check reports whether command may run. If an allow list is configured and
// non-empty, command must match at least one allow pattern.
func (p *Policy) Check(command string) (bool, string) {
	for _, re := range p.deny {
		if re.MatchString(command) {
			return false, fmt.Sprintf("command matches deny pattern %q", re.String())
		}
	}
	if len(p.allow) == 0 {
		return true, ""
	}
	for _, re := range p.allow {
		if re.MatchString(command) {
			return true, ""
		}
	}
	return false, "command matches no configured allow pattern"
}

// maskingPatterns are command suffixes that would let a failing gate report
// success. Used by internal/gate, kept here because it is a property of the
// command string itself, the same layer that owns policy matching.
var maskingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\|\|\s*true\b`),
	regexp.MustCompile(`\|\|\s*echo\b`),
	regexp.MustCompile(`;\s*true\b`),
	regexp.MustCompile(`&&\s*true\b`),
	regexp.MustCompile(`\bexit\s+0\b`),
}

// IsMasking reports whether command contains a pattern that could convert a
// non-zero exit into a reported success.
func IsMasking(command string) bool {
	for _, re := range maskingPatterns {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}
