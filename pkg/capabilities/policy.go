// Package capabilities implements the builtin-module import policy.
package capabilities

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
)

// Wildcard in an allow list admits every module.
const Wildcard = "*"

// Policy defines which builtin modules a program may import.
type Policy struct {
	allowAll bool
	allowed  mapset.Set[string]
	denied   mapset.Set[string]
}

// New builds a policy from allow and deny lists. An empty allow list, or
// one containing "*", admits every module. Deny overrides allow.
func New(allow, deny []string) *Policy {
	p := &Policy{
		allowed: mapset.NewThreadUnsafeSet[string](),
		denied:  mapset.NewThreadUnsafeSet[string](deny...),
	}
	if len(allow) == 0 {
		p.allowAll = true
	}
	for _, m := range allow {
		if m == Wildcard {
			p.allowAll = true
			continue
		}
		p.allowed.Add(m)
	}
	return p
}

// Allows reports whether module may be imported. A nil policy allows
// nothing.
func (p *Policy) Allows(module string) bool {
	if p == nil || p.denied.Contains(module) {
		return false
	}
	return p.allowAll || p.allowed.Contains(module)
}

// Filter returns the modules from known that the policy admits, sorted.
func (p *Policy) Filter(known []string) []string {
	out := make([]string, 0, len(known))
	for _, m := range known {
		if p.Allows(m) {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// AllowAll returns a policy that permits every module.
func AllowAll() *Policy {
	return New(nil, nil)
}

// DenyAll returns a policy that permits no module.
func DenyAll() *Policy {
	return &Policy{
		allowed: mapset.NewThreadUnsafeSet[string](),
		denied:  mapset.NewThreadUnsafeSet[string](),
	}
}
