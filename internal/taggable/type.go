package taggable

import (
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/config"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

// Type is a taggable entity type and its tag contexts.
type Type struct {
	name     string
	defaults *config.Tagging
	contexts map[string]*binding
	order    []string
}

// binding is what a context contributes to its entity type.
type binding struct {
	def *tagtype.TagType
	// names a caller may use for the context besides its identifier
	aliases []string
}

func (t *Type) Name() string { return t.name }

// Taggable declares contexts on the type, all sharing opts. Declaring an
// existing context again replaces its options.
func (t *Type) Taggable(opts tagtype.Options, contexts ...string) *Type {
	for _, context := range contexts {
		def := tagtype.New(t.name, context, opts, t.defaults)
		b := &binding{def: def, aliases: []string{def.ListName(), def.TagsName()}}
		if _, ok := t.contexts[context]; !ok {
			t.order = append(t.order, context)
		}
		t.contexts[context] = b
	}
	return t
}

// TagType returns the definition of context. Contexts can also be named by
// their list name ("skill_list") or tags name ("skill_tags").
func (t *Type) TagType(context string) (*tagtype.TagType, error) {
	if b, ok := t.contexts[context]; ok {
		return b.def, nil
	}
	for _, name := range t.order {
		if slices.Contains(t.contexts[name].aliases, context) {
			return t.contexts[name].def, nil
		}
	}
	return nil, fmt.Errorf("%w: %q on %s", ErrUnknownContext, context, t.name)
}

// Contexts returns the context identifiers in declaration order.
func (t *Type) Contexts() []string { return slices.Clone(t.order) }

func (t *Type) TagTypes() []*tagtype.TagType {
	out := make([]*tagtype.TagType, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.contexts[name].def)
	}
	return out
}

// Ref points at the entity of this type with the given id.
func (t *Type) Ref(id primitive.ObjectID) models.Reference {
	return models.NewReference(t.name, id)
}

// NewRecord starts an unsaved record with a fresh id. Contexts with a default
// list start with it.
func (t *Type) NewRecord() *Record {
	r := t.record(primitive.NewObjectID(), false)
	for _, def := range t.TagTypes() {
		if defaults := def.Default(); len(defaults) > 0 {
			_ = r.state(def).set(models.Reference{}, defaults)
		}
	}
	return r
}

// Record returns a persisted record whose lists are not loaded yet.
func (t *Type) Record(id primitive.ObjectID) *Record {
	return t.record(id, true)
}

func (t *Type) record(id primitive.ObjectID, persisted bool) *Record {
	r := &Record{typ: t, id: id, persisted: persisted, states: make(map[string]*listState)}
	for _, def := range t.TagTypes() {
		r.states[def.Context()] = newListState(def)
	}
	return r
}
