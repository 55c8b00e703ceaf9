// Package policy makes role-based authorization decisions for the request
// pipeline. Decisions are a pure function of (role, resource, action) over a
// loaded rule set; there is no implicit role hierarchy and no superuser
// bypass beyond the rules the set explicitly contains.
package policy

import (
	"fmt"
	"sync"
)

// Rule names one allowed (role, resource, action) combination. Anything not
// covered by a rule is denied.
type Rule struct {
	Role     string
	Resource string
	Action   string
}

// Set is a loaded policy set. Lookups are O(1); the zero value denies
// everything.
type Set map[Rule]struct{}

// NewSet builds a Set from explicit rules.
func NewSet(rules []Rule) Set {
	set := make(Set, len(rules))
	for _, r := range rules {
		set[r] = struct{}{}
	}
	return set
}

// Allows reports whether the set contains the exact tuple.
func (s Set) Allows(role, resource, action string) bool {
	_, ok := s[Rule{Role: role, Resource: resource, Action: action}]
	return ok
}

// Enforcer is the authorization decision point consumed by the request
// pipeline. Implementations must be safe for concurrent use.
type Enforcer interface {
	Enforce(role, resource, action string) bool
}

// Loader supplies the current rule set, e.g. from a database table or a
// bundled policy file.
type Loader func() ([]Rule, error)

// Engine is an Enforcer over a reloadable Set. Enforce takes a read lock so
// concurrent decisions never block each other; Reload swaps the set
// atomically under a write lock, so in-flight decisions observe either the
// old or the new set entirely.
type Engine struct {
	mu     sync.RWMutex
	set    Set
	loader Loader
}

// NewEngine loads the initial rule set through loader and returns an Engine.
func NewEngine(loader Loader) (*Engine, error) {
	if loader == nil {
		return nil, fmt.Errorf("policy: loader is required")
	}
	e := &Engine{loader: loader}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Enforce reports whether the current set allows the tuple.
func (e *Engine) Enforce(role, resource, action string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.set.Allows(role, resource, action)
}

// Reload re-reads the rule set through the loader and swaps it in atomically.
// On loader failure the previous set stays active.
func (e *Engine) Reload() error {
	rules, err := e.loader()
	if err != nil {
		return fmt.Errorf("policy: reload failed: %w", err)
	}
	set := NewSet(rules)

	e.mu.Lock()
	e.set = set
	e.mu.Unlock()
	return nil
}

// Len returns the number of rules in the active set.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.set)
}

// Static is a fixed-rule Enforcer used when no policy backend is wired, e.g.
// in early bootstrap or integration tests. It is selected at composition
// time, never via build flags.
type Static struct {
	set Set
}

// NewStatic builds a Static enforcer from a fixed rule list.
func NewStatic(rules []Rule) *Static {
	return &Static{set: NewSet(rules)}
}

// Enforce reports whether the fixed set allows the tuple.
func (s *Static) Enforce(role, resource, action string) bool {
	return s.set.Allows(role, resource, action)
}

// AllowAll permits every tuple. Test composition only; never wire it into a
// production pipeline.
type AllowAll struct{}

// Enforce always returns true.
func (AllowAll) Enforce(role, resource, action string) bool { return true }
