package taggable

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taglist"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

// Record is one entity of a taggable type together with the tag lists of its
// contexts and what they held when last loaded or saved.
type Record struct {
	typ       *Type
	id        primitive.ObjectID
	persisted bool
	states    map[string]*listState
}

func (r *Record) Type() *Type { return r.typ }

func (r *Record) ID() primitive.ObjectID { return r.id }

func (r *Record) Ref() models.Reference { return r.typ.Ref(r.id) }

// Persisted reports whether the record has been saved or was loaded.
func (r *Record) Persisted() bool { return r.persisted }

func (r *Record) lookup(context string) (*listState, error) {
	def, err := r.typ.TagType(context)
	if err != nil {
		return nil, err
	}
	return r.state(def), nil
}

func (r *Record) state(def *tagtype.TagType) *listState {
	return r.states[def.Context()]
}

// TagList returns the live list of context. For tagger contexts it is the
// list of the default tagger.
func (r *Record) TagList(context string) (*taglist.TagList, error) {
	s, err := r.lookup(context)
	if err != nil {
		return nil, err
	}
	return s.get(models.Reference{}), nil
}

// SetTagList replaces the list of context with values parsed by its parser.
func (r *Record) SetTagList(context string, values ...string) error {
	s, err := r.lookup(context)
	if err != nil {
		return err
	}
	return s.set(models.Reference{}, values)
}

// TaggerTagList returns the per-tagger lists of a tagger context, or nil for
// contexts without taggers.
func (r *Record) TaggerTagList(context string) (*taglist.TaggerTagList, error) {
	s, err := r.lookup(context)
	if err != nil {
		return nil, err
	}
	return s.taggers, nil
}

// AllTagList returns every tag of context regardless of tagger.
func (r *Record) AllTagList(context string) (*taglist.TagList, error) {
	s, err := r.lookup(context)
	if err != nil {
		return nil, err
	}
	if s.taggers != nil {
		return s.taggers.Flatten(), nil
	}
	return s.list.Clone(), nil
}

// TagListPresent reports whether context holds any tag.
func (r *Record) TagListPresent(context string) (bool, error) {
	all, err := r.AllTagList(context)
	if err != nil {
		return false, err
	}
	return !all.Empty(), nil
}

// TagListChanged reports whether context differs from what was last loaded
// or saved.
func (r *Record) TagListChanged(context string) (bool, error) {
	s, err := r.lookup(context)
	if err != nil {
		return false, err
	}
	return len(s.changedLists()) > 0, nil
}

// TagListWas returns the tags that context held when last loaded or saved.
func (r *Record) TagListWas(context string) ([]string, error) {
	s, err := r.lookup(context)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, l := range s.original {
		out = append(out, l.Tags()...)
	}
	return out, nil
}

// ResetTagList drops unsaved changes of context.
func (r *Record) ResetTagList(context string) error {
	s, err := r.lookup(context)
	if err != nil {
		return err
	}
	s.reset()
	return nil
}

// ChangedContexts returns the contexts with unsaved changes in declaration
// order.
func (r *Record) ChangedContexts() []*tagtype.TagType {
	var out []*tagtype.TagType
	for _, def := range r.typ.TagTypes() {
		if len(r.state(def).changedLists()) > 0 {
			out = append(out, def)
		}
	}
	return out
}

// ChangedLists returns the lists of def that differ from their saved state,
// one per tagger.
func (r *Record) ChangedLists(def *tagtype.TagType) []*taglist.TagList {
	return r.state(def).changedLists()
}

// LoadTagList installs tags as tagger's saved list of def.
func (r *Record) LoadTagList(def *tagtype.TagType, tagger models.Reference, tags []string) {
	r.state(def).load(tagger, tags)
	r.persisted = true
}

// MarkSaved records the current lists as the saved state.
func (r *Record) MarkSaved() {
	for _, s := range r.states {
		s.snapshot()
	}
	r.persisted = true
}

// listState is the list (or per-tagger lists) of one context on one record.
type listState struct {
	def      *tagtype.TagType
	list     *taglist.TagList
	taggers  *taglist.TaggerTagList
	original []*taglist.TagList
}

func newListState(def *tagtype.TagType) *listState {
	s := &listState{def: def}
	s.reset()
	return s
}

func (s *listState) get(tagger models.Reference) *taglist.TagList {
	if s.taggers != nil {
		return s.taggers.Get(tagger)
	}
	return s.list
}

func (s *listState) set(tagger models.Reference, values []string) error {
	return s.get(tagger).Set(values...)
}

func (s *listState) load(tagger models.Reference, tags []string) {
	if s.taggers != nil {
		s.taggers.Load(tagger, tags)
	} else {
		s.list = taglist.New(s.def, taglist.Options{}, tags...)
	}
	s.snapshot()
}

func (s *listState) lists() []*taglist.TagList {
	if s.taggers != nil {
		return s.taggers.Lists()
	}
	return []*taglist.TagList{s.list}
}

func (s *listState) snapshot() {
	current := s.lists()
	s.original = make([]*taglist.TagList, len(current))
	for i, l := range current {
		s.original[i] = l.Clone()
	}
}

func (s *listState) reset() {
	if s.def.Tagger() {
		s.taggers = taglist.NewTaggerTagList(s.def)
		for _, l := range s.original {
			s.taggers.Load(l.Tagger(), l.Tags())
		}
		return
	}
	s.list = taglist.New(s.def, taglist.Options{})
	for _, l := range s.original {
		s.list = taglist.New(s.def, taglist.Options{}, l.Tags()...)
	}
}

func (s *listState) changedLists() []*taglist.TagList {
	saved := make(map[string][]string, len(s.original))
	for _, l := range s.original {
		saved[l.Tagger().Key()] = l.Tags()
	}
	var out []*taglist.TagList
	for _, l := range s.lists() {
		if !l.EqualTags(saved[l.Tagger().Key()]) {
			out = append(out, l)
		}
	}
	return out
}
