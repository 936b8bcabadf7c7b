package ratelimit

import "strings"

// unlimited is returned for the health check.
var unlimited = Rule{}

// Match returns the rule for a request, or nil when the default applies.
func Match(path, method string, rules []Rule) *Rule {
	if path == "/health" {
		return &unlimited
	}
	for i := range rules {
		if rules[i].Method == method && strings.HasSuffix(path, rules[i].Suffix) {
			return &rules[i]
		}
	}
	return nil
}
