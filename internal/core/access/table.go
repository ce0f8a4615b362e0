// Package access holds the path-prefix → allowed-roles table. The edge
// middleware and the in-page guard both read the same Table so the two
// layers cannot disagree.
package access

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/evently/evently-web/internal/core/domain"
)

var ErrInvalidTable = errors.New("invalid access table")

// Rule restricts every path under Prefix to Roles.
type Rule struct {
	Prefix string        `yaml:"prefix"`
	Roles  []domain.Role `yaml:"roles"`
	// RequireVerified additionally requires a verified email.
	RequireVerified bool `yaml:"require_verified"`
}

// Allows reports whether role is in the rule's role set.
func (r Rule) Allows(role domain.Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Table is a validated set of rules, sorted longest prefix first.
type Table struct {
	rules []Rule
}

// DefaultRules is the table the front end ships with.
func DefaultRules() []Rule {
	return []Rule{
		{Prefix: "/dashboard/organizer", Roles: []domain.Role{domain.RoleOrganizer}},
		{Prefix: "/dashboard/customer", Roles: []domain.Role{domain.RoleCustomer}},
		{Prefix: "/profile", Roles: []domain.Role{domain.RoleCustomer, domain.RoleOrganizer}},
	}
}

// Default returns the shipped table. It panics only if DefaultRules is
// itself invalid, which the tests rule out.
func Default() *Table {
	t, err := New(DefaultRules())
	if err != nil {
		panic(err)
	}
	return t
}

// New validates rules and builds a Table.
func New(rules []Rule) (*Table, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no rules", ErrInvalidTable)
	}

	seen := make(map[string]struct{}, len(rules))
	out := make([]Rule, 0, len(rules))
	for i, r := range rules {
		prefix := normalize(r.Prefix)
		if prefix == "" || !strings.HasPrefix(prefix, "/") || prefix == "/" {
			return nil, fmt.Errorf("%w: rule %d: prefix %q must start with / and name a path", ErrInvalidTable, i, r.Prefix)
		}
		if _, dup := seen[prefix]; dup {
			return nil, fmt.Errorf("%w: duplicate prefix %q", ErrInvalidTable, prefix)
		}
		seen[prefix] = struct{}{}

		if len(r.Roles) == 0 {
			return nil, fmt.Errorf("%w: prefix %q has no roles", ErrInvalidTable, prefix)
		}
		roles := make([]domain.Role, 0, len(r.Roles))
		for _, raw := range r.Roles {
			role, err := domain.ParseRole(string(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: prefix %q: %v", ErrInvalidTable, prefix, err)
			}
			roles = append(roles, role)
		}
		out = append(out, Rule{Prefix: prefix, Roles: roles, RequireVerified: r.RequireVerified})
	}

	sort.SliceStable(out, func(i, j int) bool { return len(out[i].Prefix) > len(out[j].Prefix) })
	return &Table{rules: out}, nil
}

type fileFormat struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads a YAML override of the table:
//
//	rules:
//	  - prefix: /dashboard/organizer
//	    roles: [ORGANIZER]
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read access table: %w", err)
	}
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	return New(f.Rules)
}

// Lookup returns the rule protecting path. Prefixes match whole segments:
// "/profile" covers "/profile" and "/profile/edit" but not "/profiles".
func (t *Table) Lookup(path string) (Rule, bool) {
	path = normalize(path)
	for _, r := range t.rules {
		if path == r.Prefix || strings.HasPrefix(path, r.Prefix+"/") {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the table's rules.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

func normalize(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
