// Package tagtype describes one tag context declared on an entity type and
// resolves its options against the global defaults.
package tagtype

import (
	"slices"

	"github.com/jinzhu/inflection"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/config"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/parser"
)

// Options are the per-context overrides. Nil pointers, a nil Parser and empty
// collection names fall back to config.Tagging.
type Options struct {
	Parser             parser.Parser
	PreserveTagOrder   *bool
	ForceLowercase     *bool
	ForceParameterize  *bool
	RemoveUnusedTags   *bool
	StrictCaseMatch    *bool
	TagsCollection     string
	TaggingsCollection string

	// Tagger enables one tag list per tagging owner.
	Tagger bool
	// Default is applied to new entities whose list was never set.
	Default []string
}

// Bool returns a pointer to b, for Options fields.
func Bool(b bool) *bool {
	return &b
}

// TagType is the read-only definition of a tag context such as "skills" on
// "User".
type TagType struct {
	ownerType string
	context   string
	options   Options
	defaults  *config.Tagging
}

// New defines context on ownerType. A nil defaults uses config.DefaultTagging.
func New(ownerType, context string, opts Options, defaults *config.Tagging) *TagType {
	if defaults == nil {
		defaults = config.DefaultTagging()
	}
	opts.Default = slices.Clone(opts.Default)
	return &TagType{
		ownerType: ownerType,
		context:   context,
		options:   opts,
		defaults:  defaults,
	}
}

func (t *TagType) OwnerType() string { return t.ownerType }

func (t *TagType) Context() string { return t.context }

func (t *TagType) Parser() parser.Parser {
	if t.options.Parser != nil {
		return t.options.Parser
	}
	if t.defaults.Parser != nil {
		return t.defaults.Parser
	}
	return parser.GenericParser{}
}

func (t *TagType) PreserveTagOrder() bool {
	return resolve(t.options.PreserveTagOrder, t.defaults.PreserveTagOrder)
}

func (t *TagType) ForceLowercase() bool {
	return resolve(t.options.ForceLowercase, t.defaults.ForceLowercase)
}

func (t *TagType) ForceParameterize() bool {
	return resolve(t.options.ForceParameterize, t.defaults.ForceParameterize)
}

func (t *TagType) RemoveUnusedTags() bool {
	return resolve(t.options.RemoveUnusedTags, t.defaults.RemoveUnusedTags)
}

// StrictCaseMatch only affects how list entries are deduplicated.
func (t *TagType) StrictCaseMatch() bool {
	return resolve(t.options.StrictCaseMatch, t.defaults.StrictCaseMatch)
}

func (t *TagType) TagsCollection() string {
	if t.options.TagsCollection != "" {
		return t.options.TagsCollection
	}
	return t.defaults.TagsCollection
}

func (t *TagType) TaggingsCollection() string {
	if t.options.TaggingsCollection != "" {
		return t.options.TaggingsCollection
	}
	return t.defaults.TaggingsCollection
}

func (t *TagType) Tagger() bool { return t.options.Tagger }

func (t *TagType) Default() []string { return slices.Clone(t.options.Default) }

func resolve(override *bool, fallback bool) bool {
	if override != nil {
		return *override
	}
	return fallback
}

// SingleName is the singular context name: "skills" gives "skill".
func (t *TagType) SingleName() string {
	return inflection.Singular(t.context)
}

// ListName is the accessor name of the context's list, e.g. "skill_list".
func (t *TagType) ListName() string {
	return t.SingleName() + "_list"
}

// AllListName names the list flattened across all taggers, e.g. "all_skill_list".
func (t *TagType) AllListName() string {
	return "all_" + t.ListName()
}

// TaggingsName names the context's taggings association, e.g. "skill_taggings".
func (t *TagType) TaggingsName() string {
	return t.SingleName() + "_taggings"
}

// TagsName names the context's tags association, e.g. "skill_tags".
func (t *TagType) TagsName() string {
	return t.SingleName() + "_tags"
}

// ConflictsWith reports whether querying t and other together is ill-defined
// because they parse, order, fold or store tags differently.
func (t *TagType) ConflictsWith(other *TagType) bool {
	return !parser.Same(t.Parser(), other.Parser()) ||
		t.PreserveTagOrder() != other.PreserveTagOrder() ||
		t.ForceLowercase() != other.ForceLowercase() ||
		t.ForceParameterize() != other.ForceParameterize() ||
		t.TaggingsCollection() != other.TaggingsCollection()
}
