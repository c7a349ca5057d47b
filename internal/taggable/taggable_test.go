package taggable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

func newRegistry() *Registry {
	r := NewRegistry(nil)
	r.Register("Article").
		Taggable(tagtype.Options{}, "tags", "skills").
		Taggable(tagtype.Options{Tagger: true}, "languages").
		Taggable(tagtype.Options{Default: []string{"draft"}}, "states")
	return r
}

func TestRegistry(t *testing.T) {
	r := newRegistry()

	article, ok := r.Lookup("Article")
	require.True(t, ok)
	assert.Same(t, article, r.Register("Article"))
	assert.Equal(t, []string{"tags", "skills", "languages", "states"}, article.Contexts())

	_, ok = r.Lookup("User")
	assert.False(t, ok)

	resolved, err := r.Resolve(models.NewReference("Article", primitive.NewObjectID()))
	require.NoError(t, err)
	assert.Same(t, article, resolved)

	_, err = r.Resolve(models.NewReference("User", primitive.NewObjectID()))
	assert.ErrorIs(t, err, ErrUnknownType)

	assert.Len(t, r.Types(), 1)
}

func TestTagTypeLookup(t *testing.T) {
	article := newRegistry().Register("Article")

	def, err := article.TagType("skills")
	require.NoError(t, err)
	assert.Equal(t, "skills", def.Context())
	assert.Equal(t, "Article", def.OwnerType())

	byList, err := article.TagType("skill_list")
	require.NoError(t, err)
	assert.Same(t, def, byList)

	byTags, err := article.TagType("skill_tags")
	require.NoError(t, err)
	assert.Same(t, def, byTags)

	_, err = article.TagType("colors")
	assert.ErrorIs(t, err, ErrUnknownContext)
}

func TestRedeclaringContextReplacesOptions(t *testing.T) {
	article := NewRegistry(nil).Register("Article")
	article.Taggable(tagtype.Options{}, "tags")
	article.Taggable(tagtype.Options{PreserveTagOrder: tagtype.Bool(true)}, "tags")

	def, err := article.TagType("tags")
	require.NoError(t, err)
	assert.True(t, def.PreserveTagOrder())
	assert.Equal(t, []string{"tags"}, article.Contexts())
}

func TestRecordGetSet(t *testing.T) {
	rec := newRegistry().Register("Article").NewRecord()
	assert.False(t, rec.Persisted())
	assert.False(t, rec.ID().IsZero())
	assert.Equal(t, "Article", rec.Ref().Type)

	require.NoError(t, rec.SetTagList("tags", "go, mongo"))
	list, err := rec.TagList("tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "mongo"}, list.Tags())

	present, err := rec.TagListPresent("tags")
	require.NoError(t, err)
	assert.True(t, present)

	present, err = rec.TagListPresent("skills")
	require.NoError(t, err)
	assert.False(t, present)

	assert.ErrorIs(t, rec.SetTagList("colors", "red"), ErrUnknownContext)
}

func TestRecordDefaults(t *testing.T) {
	rec := newRegistry().Register("Article").NewRecord()

	list, err := rec.TagList("states")
	require.NoError(t, err)
	assert.Equal(t, []string{"draft"}, list.Tags())

	changed, err := rec.TagListChanged("states")
	require.NoError(t, err)
	assert.True(t, changed)

	persisted := newRegistry().Register("Article").Record(primitive.NewObjectID())
	list, err = persisted.TagList("states")
	require.NoError(t, err)
	assert.True(t, list.Empty())
}

func TestRecordChangeTracking(t *testing.T) {
	article := newRegistry().Register("Article")
	rec := article.Record(primitive.NewObjectID())
	tags, _ := article.TagType("tags")

	rec.LoadTagList(tags, models.Reference{}, []string{"a", "b"})
	assert.Empty(t, rec.ChangedContexts())

	list, err := rec.TagList("tags")
	require.NoError(t, err)
	require.NoError(t, list.Add("c"))

	changed, err := rec.TagListChanged("tags")
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, rec.ChangedContexts(), 1)
	assert.Equal(t, "tags", rec.ChangedContexts()[0].Context())

	was, err := rec.TagListWas("tags")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, was)

	// Reordering is no change in an unordered context.
	require.NoError(t, rec.SetTagList("tags", "b, a"))
	changed, _ = rec.TagListChanged("tags")
	assert.False(t, changed)

	require.NoError(t, rec.SetTagList("tags", "z"))
	require.NoError(t, rec.ResetTagList("tags"))
	list, _ = rec.TagList("tags")
	assert.Equal(t, []string{"a", "b"}, list.Tags())

	require.NoError(t, rec.SetTagList("tags", "z"))
	rec.MarkSaved()
	assert.Empty(t, rec.ChangedContexts())
	was, _ = rec.TagListWas("tags")
	assert.Equal(t, []string{"z"}, was)
}

func TestRecordTaggerContext(t *testing.T) {
	article := newRegistry().Register("Article")
	rec := article.Record(primitive.NewObjectID())
	languages, _ := article.TagType("languages")
	alice := models.NewReference("User", primitive.NewObjectID())
	bob := models.NewReference("User", primitive.NewObjectID())

	rec.LoadTagList(languages, alice, []string{"go"})

	taggers, err := rec.TaggerTagList("languages")
	require.NoError(t, err)
	require.NotNil(t, taggers)

	// Reading bob's list does not commit it.
	assert.True(t, taggers.Get(bob).Empty())
	assert.Equal(t, []models.Reference{alice}, taggers.Taggers())
	assert.Empty(t, rec.ChangedContexts())

	require.NoError(t, taggers.Get(bob).Add("rust", "go"))
	changed := rec.ChangedLists(languages)
	require.Len(t, changed, 1)
	assert.Equal(t, bob, changed[0].Tagger())

	all, err := rec.AllTagList("languages")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "rust"}, all.Tags())

	require.NoError(t, rec.ResetTagList("languages"))
	taggers, _ = rec.TaggerTagList("languages")
	assert.Equal(t, []models.Reference{alice}, taggers.Taggers())
	assert.Equal(t, []string{"go"}, taggers.Get(alice).Tags())

	untagged, err := rec.TaggerTagList("tags")
	require.NoError(t, err)
	assert.Nil(t, untagged)
}
