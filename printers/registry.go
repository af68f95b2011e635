package printers

import (
	"regexp"

	"github.com/pkg/errors"
)

// Collection is a named group of printer factories that is enabled or
// disabled as a unit.
type Collection struct {
	name    string
	enabled bool
	exact   map[string]Factory
	ordered []patternEntry
}

type patternEntry struct {
	re *regexp.Regexp
	f  Factory
}

// AddExact registers a factory for one fully-qualified type name.
func (c *Collection) AddExact(typeName string, f Factory) {
	c.exact[typeName] = f
}

// AddPattern registers a factory for every type name the pattern matches.
// Patterns are consulted in registration order, after all exact entries.
func (c *Collection) AddPattern(pattern string, f Factory) {
	c.ordered = append(c.ordered, patternEntry{re: regexp.MustCompile(pattern), f: f})
}

// CollectionStatus is the externally visible state of one collection.
type CollectionStatus struct {
	Name    string
	Enabled bool
	Size    int
}

// Registry resolves type names to printer factories across an ordered list
// of collections. It is not safe for concurrent use; the decoding engine
// runs on a single command thread.
type Registry struct {
	collections []*Collection
}

func NewRegistry() *Registry {
	return &Registry{}
}

// NewCollection creates and attaches an empty collection. Collections are
// consulted in creation order.
func (r *Registry) NewCollection(name string, enabled bool) *Collection {
	c := &Collection{
		name:    name,
		enabled: enabled,
		exact:   make(map[string]Factory),
	}
	r.collections = append(r.collections, c)
	return c
}

// SetEnabled flips one collection's flag.
func (r *Registry) SetEnabled(name string, enabled bool) error {
	for _, c := range r.collections {
		if c.name == name {
			c.enabled = enabled
			return nil
		}
	}
	return errors.Errorf("no printer collection named %q", name)
}

// Collections reports every collection's state in creation order.
func (r *Registry) Collections() []CollectionStatus {
	out := make([]CollectionStatus, 0, len(r.collections))
	for _, c := range r.collections {
		out = append(out, CollectionStatus{
			Name:    c.name,
			Enabled: c.enabled,
			Size:    len(c.exact) + len(c.ordered),
		})
	}
	return out
}

// Lookup resolves a type name to a factory. Exact entries in any enabled
// collection win over every pattern; patterns are tried in registration
// order. A nil return means no enabled collection claims the type.
func (r *Registry) Lookup(typeName string) Factory {
	for _, c := range r.collections {
		if !c.enabled {
			continue
		}
		if f, ok := c.exact[typeName]; ok {
			return f
		}
	}
	for _, c := range r.collections {
		if !c.enabled {
			continue
		}
		for _, e := range c.ordered {
			if e.re.MatchString(typeName) {
				return e.f
			}
		}
	}
	return nil
}
