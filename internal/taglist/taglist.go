// Package taglist holds the cleaned, ordered working set of tag names for one
// context on one entity.
package taglist

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/parser"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

// ErrFrozen is returned when a frozen list is mutated.
var ErrFrozen = errors.New("can't modify frozen tag list")

// Options control how added or removed values are read. Values are parsed when
// Parse is set or a Parser is given; Parser overrides the context's parser.
type Options struct {
	Parse  bool
	Parser parser.Parser
}

// OptionsFromMap decodes string-keyed options, rejecting unknown keys.
func OptionsFromMap(m map[string]any) (Options, error) {
	var opts Options
	if err := tagtype.AssertValidKeys(m, "parse", "parser"); err != nil {
		return opts, err
	}
	if v, ok := m["parse"]; ok {
		b, ok := v.(bool)
		if !ok {
			return opts, fmt.Errorf("%w: parse must be a bool, got %T", tagtype.ErrInvalidOption, v)
		}
		opts.Parse = b
	}
	if v, ok := m["parser"]; ok {
		p, ok := v.(parser.Parser)
		if !ok {
			return opts, fmt.Errorf("%w: parser must implement parser.Parser, got %T", tagtype.ErrInvalidOption, v)
		}
		opts.Parser = p
	}
	return opts, nil
}

func (o Options) apply(def *tagtype.TagType, values []string) []string {
	if !o.Parse && o.Parser == nil {
		return values
	}
	p := o.Parser
	if p == nil {
		p = def.Parser()
	}
	return p.Parse(values...)
}

// TagList is an ordered, deduplicated list of tag names bound to a tag context
// and, for tagger contexts, to one tagger.
type TagList struct {
	def      *tagtype.TagType
	tags     []string
	tagger   models.Reference
	frozen   bool
	onChange func(*TagList)
}

// New builds a list for def from values, read according to opts.
func New(def *tagtype.TagType, opts Options, values ...string) *TagList {
	l := &TagList{def: def}
	l.tags = l.clean(opts.apply(def, values))
	return l
}

// Parse builds a list for def, parsing values with the context's parser.
func Parse(def *tagtype.TagType, values ...string) *TagList {
	return New(def, Options{Parse: true}, values...)
}

func (l *TagList) TagType() *tagtype.TagType { return l.def }

// Tagger is the owner of the list; zero for untagged lists.
func (l *TagList) Tagger() models.Reference { return l.tagger }

// Tags returns a copy of the entries.
func (l *TagList) Tags() []string { return slices.Clone(l.tags) }

func (l *TagList) Len() int { return len(l.tags) }

func (l *TagList) Empty() bool { return len(l.tags) == 0 }

func (l *TagList) Contains(tag string) bool { return slices.Contains(l.tags, tag) }

// OnChange registers fn to run after every successful mutation.
func (l *TagList) OnChange(fn func(*TagList)) { l.onChange = fn }

// Freeze makes every later mutation fail with ErrFrozen.
func (l *TagList) Freeze() { l.frozen = true }

func (l *TagList) Frozen() bool { return l.frozen }

// Add appends values and re-cleans the list.
func (l *TagList) Add(values ...string) error {
	return l.AddWithOptions(Options{}, values...)
}

func (l *TagList) AddWithOptions(opts Options, values ...string) error {
	if l.frozen {
		return ErrFrozen
	}
	l.tags = l.clean(append(l.tags, opts.apply(l.def, values)...))
	l.changed()
	return nil
}

// Remove drops every entry equal to one of values once values are cleaned the
// same way the list is.
func (l *TagList) Remove(values ...string) error {
	return l.RemoveWithOptions(Options{}, values...)
}

func (l *TagList) RemoveWithOptions(opts Options, values ...string) error {
	if l.frozen {
		return ErrFrozen
	}
	drop := New(l.def, opts, values...)
	l.tags = slices.DeleteFunc(l.tags, drop.Contains)
	l.changed()
	return nil
}

// Set replaces the entries with values parsed by the context's parser.
func (l *TagList) Set(values ...string) error {
	if l.frozen {
		return ErrFrozen
	}
	l.tags = l.clean(l.def.Parser().Parse(values...))
	l.changed()
	return nil
}

// Clear removes every entry.
func (l *TagList) Clear() error {
	if l.frozen {
		return ErrFrozen
	}
	l.tags = nil
	l.changed()
	return nil
}

func (l *TagList) changed() {
	if l.onChange != nil {
		l.onChange(l)
	}
}

// Concat returns a new list with l's entries followed by the entries of other
// that l does not already hold.
func (l *TagList) Concat(other *TagList) *TagList {
	out := &TagList{def: l.def, tagger: l.tagger}
	out.tags = out.clean(append(l.Tags(), other.tags...))
	return out
}

// Clone returns an unfrozen copy without change hooks.
func (l *TagList) Clone() *TagList {
	return &TagList{def: l.def, tags: l.Tags(), tagger: l.tagger}
}

// Equal compares entries in order for order-preserving contexts and as sorted
// sequences otherwise.
func (l *TagList) Equal(other *TagList) bool {
	return l.EqualTags(other.tags)
}

func (l *TagList) EqualTags(tags []string) bool {
	if l.def.PreserveTagOrder() {
		return slices.Equal(l.tags, tags)
	}
	a, b := l.Tags(), slices.Clone(tags)
	sort.Strings(a)
	sort.Strings(b)
	return slices.Equal(a, b)
}

// String joins the entries with the context parser.
func (l *TagList) String() string {
	return l.def.Parser().Stringify(l.tags)
}

func (l *TagList) clean(values []string) []string {
	lower := cases.Lower(language.Und)
	fold := cases.Fold()
	seen := linkedhashmap.New()

	for _, v := range values {
		v = strings.TrimSpace(v)
		if l.def.ForceLowercase() {
			v = lower.String(v)
		}
		if l.def.ForceParameterize() {
			v = Parameterize(v)
		}
		if v == "" {
			continue
		}
		key := v
		if !l.def.StrictCaseMatch() {
			key = fold.String(v)
		}
		if _, found := seen.Get(key); !found {
			seen.Put(key, v)
		}
	}

	out := make([]string, 0, seen.Size())
	for _, v := range seen.Values() {
		out = append(out, v.(string))
	}
	return out
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Parameterize lowercases s, transliterates accented letters to ASCII and
// collapses every other run of characters into a single dash.
func Parameterize(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
	s = strings.ToLower(s)
	s = nonAlphanumeric.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
