package auth

import (
	"path"
	"strings"
)

// DefaultPublicPaths lists the routes reachable without credentials.
var DefaultPublicPaths = []string{
	"/api/auth/register",
	"/api/auth/login",
	"/swagger-ui/**",
	"/v3/api-docs/**",
	"/swagger-ui.html",
	"/health/**",
}

// RouteRule marks a path pattern as public or protected.
type RouteRule struct {
	Pattern string
	Public  bool
}

// Matches reports whether p satisfies the rule pattern. Supported forms are
// exact paths, a trailing "/**" for whole subtrees and path.Match globs.
func (r RouteRule) Matches(p string) bool {
	if prefix, ok := strings.CutSuffix(r.Pattern, "/**"); ok {
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	}
	if r.Pattern == p {
		return true
	}
	if strings.ContainsAny(r.Pattern, "*?[") {
		ok, err := path.Match(r.Pattern, p)
		return err == nil && ok
	}
	return false
}

// RoutePolicy is an ordered rule table; the first matching rule wins and
// unmatched paths are protected. Matching ignores case, like the default
// fiber router.
type RoutePolicy struct {
	rules []RouteRule
}

// NewRoutePolicy builds a policy whose public rules come from patterns, in
// order. A nil slice selects DefaultPublicPaths; an empty one makes every
// route protected.
func NewRoutePolicy(publicPatterns []string) *RoutePolicy {
	if publicPatterns == nil {
		publicPatterns = DefaultPublicPaths
	}
	rules := make([]RouteRule, 0, len(publicPatterns))
	for _, p := range publicPatterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		rules = append(rules, RouteRule{Pattern: strings.ToLower(p), Public: true})
	}
	return &RoutePolicy{rules: rules}
}

// NewRoutePolicyFromRules builds a policy from explicit rules.
func NewRoutePolicyFromRules(rules ...RouteRule) *RoutePolicy {
	out := make([]RouteRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, RouteRule{Pattern: strings.ToLower(r.Pattern), Public: r.Public})
	}
	return &RoutePolicy{rules: out}
}

// IsPublic classifies a request path.
func (p *RoutePolicy) IsPublic(requestPath string) bool {
	cleaned := strings.ToLower(path.Clean("/" + requestPath))
	for _, rule := range p.rules {
		if rule.Matches(cleaned) {
			return rule.Public
		}
	}
	return false
}

// Rules returns a copy of the rule table.
func (p *RoutePolicy) Rules() []RouteRule {
	return append([]RouteRule(nil), p.rules...)
}
