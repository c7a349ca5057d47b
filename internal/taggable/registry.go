// Package taggable binds tag contexts to entity types and tracks the tag lists
// of individual records.
package taggable

import (
	"errors"
	"fmt"
	"slices"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/config"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
)

var (
	ErrUnknownType    = errors.New("unknown taggable type")
	ErrUnknownContext = errors.New("unknown tag context")
)

// Registry holds the taggable entity types of a process. References are
// resolved to their type through it.
type Registry struct {
	defaults *config.Tagging
	types    map[string]*Type
	names    []string
}

// NewRegistry returns an empty registry whose contexts fall back to defaults.
func NewRegistry(defaults *config.Tagging) *Registry {
	if defaults == nil {
		defaults = config.DefaultTagging()
	}
	return &Registry{defaults: defaults, types: make(map[string]*Type)}
}

// Register returns the type called name, adding it on first use.
func (r *Registry) Register(name string) *Type {
	if t, ok := r.types[name]; ok {
		return t
	}
	t := &Type{name: name, defaults: r.defaults, contexts: make(map[string]*binding)}
	r.types[name] = t
	r.names = append(r.names, name)
	return t
}

func (r *Registry) Lookup(name string) (*Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Resolve returns the type ref points at.
func (r *Registry) Resolve(ref models.Reference) (*Type, error) {
	t, ok := r.types[ref.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, ref.Type)
	}
	return t, nil
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, 0, len(r.names))
	for _, name := range slices.Clone(r.names) {
		out = append(out, r.types[name])
	}
	return out
}
