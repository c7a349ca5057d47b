package taglist

import (
	"slices"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

// TaggerTagList maps taggers to their own tag list for one context. The zero
// Reference is the default tagger.
//
// Get on an absent tagger returns a fresh list bound to that tagger; it is only
// kept once it is mutated.
type TaggerTagList struct {
	def      *tagtype.TagType
	lists    map[string]*TagList
	order    []string
	onChange func(*TagList)
}

func NewTaggerTagList(def *tagtype.TagType) *TaggerTagList {
	return &TaggerTagList{def: def, lists: make(map[string]*TagList)}
}

// OnChange registers fn to run after any tagger's list is mutated.
func (t *TaggerTagList) OnChange(fn func(*TagList)) { t.onChange = fn }

// Get returns the list of tagger.
func (t *TaggerTagList) Get(tagger models.Reference) *TagList {
	if l, ok := t.lists[tagger.Key()]; ok {
		return l
	}
	l := &TagList{def: t.def, tagger: tagger}
	l.OnChange(t.commit)
	return l
}

// Set replaces tagger's list with values parsed by the context's parser.
func (t *TaggerTagList) Set(tagger models.Reference, values ...string) error {
	return t.Get(tagger).Set(values...)
}

// Load installs tags as tagger's list without reporting a change.
func (t *TaggerTagList) Load(tagger models.Reference, tags []string) {
	l := New(t.def, Options{}, tags...)
	l.tagger = tagger
	l.OnChange(t.commit)
	t.store(l)
}

func (t *TaggerTagList) commit(l *TagList) {
	t.store(l)
	if t.onChange != nil {
		t.onChange(l)
	}
}

func (t *TaggerTagList) store(l *TagList) {
	key := l.tagger.Key()
	if _, ok := t.lists[key]; !ok {
		t.order = append(t.order, key)
	}
	t.lists[key] = l
}

// Taggers returns the taggers holding a committed list, in commit order.
func (t *TaggerTagList) Taggers() []models.Reference {
	out := make([]models.Reference, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.lists[key].tagger)
	}
	return out
}

// Lists returns the committed lists in commit order.
func (t *TaggerTagList) Lists() []*TagList {
	out := make([]*TagList, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.lists[key])
	}
	return out
}

// Flatten returns the union of every tagger's list, default tagger first.
func (t *TaggerTagList) Flatten() *TagList {
	out := &TagList{def: t.def}
	keys := slices.Clone(t.order)
	if i := slices.Index(keys, ""); i > 0 {
		keys = append([]string{""}, slices.Delete(keys, i, i+1)...)
	}
	var all []string
	for _, key := range keys {
		all = append(all, t.lists[key].tags...)
	}
	out.tags = out.clean(all)
	return out
}
