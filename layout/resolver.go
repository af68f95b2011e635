package layout

import (
	"fmt"

	"github.com/pkg/errors"
)

// FactKey names one version-dependent structural detail.
type FactKey string

// UnsupportedVersionError reports that no rule covers the fingerprint for
// a requested fact.
type UnsupportedVersionError struct {
	Fingerprint Fingerprint
	Key         FactKey
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("no layout rule for fact %q on %s", e.Key, e.Fingerprint)
}

// Predicate decides whether a rule applies to a fingerprint.
type Predicate func(Fingerprint) bool

// Always matches every fingerprint. Used for the catch-all last rule of
// facts that have been stable across all modeled releases.
func Always(Fingerprint) bool { return true }

// ServerAtLeast matches fingerprints of server version >= major.minor.
func ServerAtLeast(major, minor int) Predicate {
	return func(fp Fingerprint) bool { return fp.Server.AtLeast(major, minor) }
}

// ServerBefore matches fingerprints of server version < major.minor.
func ServerBefore(major, minor int) Predicate {
	return func(fp Fingerprint) bool { return fp.Server.Before(major, minor) }
}

// ServerPatchAtLeast matches fingerprints within the major.minor release
// series at patch level >= patch. Used for behavior backported into the
// tail of an older series, e.g. 4.4.15 within 4.4.
func ServerPatchAtLeast(major, minor, patch int) Predicate {
	return func(fp Fingerprint) bool {
		return fp.Server.Major == major && fp.Server.Minor == minor && fp.Server.Patch >= patch
	}
}

// Rule is one (predicate, fact value) row of the rule table.
type Rule struct {
	When  Predicate
	Value interface{}
}

// RuleTable maps each fact key to its ordered rule list. Rules are
// evaluated in order and the first match wins, so more specific
// predicates belong before broader ones.
type RuleTable map[FactKey][]Rule

// Add appends a rule for key.
func (t RuleTable) Add(key FactKey, when Predicate, value interface{}) {
	t[key] = append(t[key], Rule{When: when, Value: value})
}

// Resolver resolves layout facts for one fingerprint. Facts are memoized
// for the life of the resolver, which callers scope to a debugging
// session; reattaching to a different binary means a new resolver.
//
// A Resolver is owned by the single command thread; it performs no
// locking.
type Resolver struct {
	fp    Fingerprint
	rules RuleTable
	memo  map[FactKey]interface{}
}

// NewResolver returns a resolver over the given rule table.
func NewResolver(fp Fingerprint, rules RuleTable) *Resolver {
	return &Resolver{fp: fp, rules: rules, memo: make(map[FactKey]interface{})}
}

// Fingerprint returns the fingerprint this resolver answers for.
func (r *Resolver) Fingerprint() Fingerprint { return r.fp }

// Fact resolves the fact for key. Fails with *UnsupportedVersionError if
// no rule matches; it never falls back to an unrelated version's layout.
func (r *Resolver) Fact(key FactKey) (interface{}, error) {
	if v, ok := r.memo[key]; ok {
		return v, nil
	}
	for _, rule := range r.rules[key] {
		if rule.When(r.fp) {
			r.memo[key] = rule.Value
			return rule.Value, nil
		}
	}
	return nil, &UnsupportedVersionError{Fingerprint: r.fp, Key: key}
}

// Uint resolves key as a uint64.
func (r *Resolver) Uint(key FactKey) (uint64, error) {
	v, err := r.Fact(key)
	if err != nil {
		return 0, err
	}
	u, ok := v.(uint64)
	if !ok {
		return 0, errors.Errorf("fact %q is %T, not uint64", key, v)
	}
	return u, nil
}

// String resolves key as a string.
func (r *Resolver) String(key FactKey) (string, error) {
	v, err := r.Fact(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("fact %q is %T, not string", key, v)
	}
	return s, nil
}

// Strings resolves key as a name table.
func (r *Resolver) Strings(key FactKey) ([]string, error) {
	v, err := r.Fact(key)
	if err != nil {
		return nil, err
	}
	ss, ok := v.([]string)
	if !ok {
		return nil, errors.Errorf("fact %q is %T, not []string", key, v)
	}
	return ss, nil
}

// Bool resolves key as a feature flag.
func (r *Resolver) Bool(key FactKey) (bool, error) {
	v, err := r.Fact(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.Errorf("fact %q is %T, not bool", key, v)
	}
	return b, nil
}
