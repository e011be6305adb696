package guard

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Route is one entry of a [Table].
//
// Pattern is a slash-separated path; a segment of "*" matches any single
// segment and a trailing "/**" matches any suffix. Public routes are open to
// everyone. Otherwise the route requires a login and, when Roles is
// non-empty, one of Roles.
type Route struct {
	Pattern string   `yaml:"pattern"`
	Roles   []string `yaml:"roles,omitempty"`
	Public  bool     `yaml:"public,omitempty"`
	Title   string   `yaml:"title,omitempty"`
}

// Table resolves paths against routes.
type Table struct {
	auth   Authority
	routes Routes
	table  []compiled
}

type compiled struct {
	Route
	segments []string
	prefix   bool
	guard    Guard
}

// NewTable compiles routes. Duplicate patterns are rejected.
func NewTable(auth Authority, routes Routes, entries []Route) (*Table, error) {
	routes = routes.withDefaults()
	t := &Table{auth: auth, routes: routes}
	seen := make(map[string]bool, len(entries))
	for _, r := range entries {
		p := cleanPath(r.Pattern)
		if seen[p] {
			return nil, fmt.Errorf("guard: duplicate route pattern %q", r.Pattern)
		}
		seen[p] = true

		c := compiled{Route: r}
		c.Pattern = p
		if strings.HasSuffix(p, "/**") {
			c.prefix = true
			p = strings.TrimSuffix(p, "/**")
		}
		c.segments = splitPath(p)
		switch {
		case r.Public:
			c.guard = nil
		case len(r.Roles) > 0:
			c.guard = RequireRoles(auth, routes, r.Roles...)
		default:
			c.guard = Authenticated(auth, routes)
		}
		t.table = append(t.table, c)
	}
	sort.SliceStable(t.table, func(i, j int) bool {
		return t.table[i].specificity() > t.table[j].specificity()
	})
	return t, nil
}

// specificity orders literal segments before wildcards and exact patterns
// before prefixes.
func (c compiled) specificity() int {
	score := 0
	for _, s := range c.segments {
		if s == "*" {
			score += 1
		} else {
			score += 4
		}
	}
	score *= 2
	if !c.prefix {
		score++
	}
	return score
}

func (c compiled) match(segs []string) bool {
	if len(segs) < len(c.segments) || (!c.prefix && len(segs) != len(c.segments)) {
		return false
	}
	for i, s := range c.segments {
		if s != "*" && s != segs[i] {
			return false
		}
	}
	return true
}

// Lookup returns the most specific route matching p.
func (t *Table) Lookup(p string) (Route, bool) {
	c, ok := t.lookup(p)
	return c.Route, ok
}

func (t *Table) lookup(p string) (compiled, bool) {
	segs := splitPath(cleanPath(p))
	for _, c := range t.table {
		if c.match(segs) {
			return c, true
		}
	}
	return compiled{}, false
}

// Navigate applies the guard of the route matching target. Unknown paths
// redirect to the login route. target may carry a query string; only its
// path is matched.
func (t *Table) Navigate(ctx context.Context, target string) Decision {
	p := target
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	c, ok := t.lookup(p)
	if !ok {
		return Decision{Redirect: t.routes.Login}
	}
	if c.guard == nil {
		return Allowed
	}
	return c.guard.Check(ctx, target)
}

// Routes returns the table entries in match order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.table))
	for i, c := range t.table {
		out[i] = c.Route
	}
	return out
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
