package services

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

var duplicateKey = mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}

// fakeTagRepo keeps tags in memory with the lookup rules of the Mongo store.
type fakeTagRepo struct {
	tags    []models.Tag
	findErr error
}

func (f *fakeTagRepo) scoped(def *tagtype.TagType) []*models.Tag {
	var out []*models.Tag
	for i := range f.tags {
		t := &f.tags[i]
		if t.TaggableType == def.OwnerType() && t.Context == def.Context() {
			out = append(out, t)
		}
	}
	return out
}

func (f *fakeTagRepo) find(def *tagtype.TagType, name string) *models.Tag {
	for _, t := range f.scoped(def) {
		if t.Name == name || (!def.StrictCaseMatch() && strings.EqualFold(t.Name, name)) {
			return t
		}
	}
	return nil
}

func (f *fakeTagRepo) byName(def *tagtype.TagType, name string) *models.Tag {
	for _, t := range f.scoped(def) {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func (f *fakeTagRepo) FindOrCreateAll(_ context.Context, def *tagtype.TagType, owner models.Reference, names []string) ([]models.Tag, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []models.Tag
	for _, name := range names {
		if t := f.find(def, name); t != nil {
			out = append(out, *t)
			continue
		}
		tag := models.Tag{
			ID:           primitive.NewObjectID(),
			Name:         name,
			Context:      def.Context(),
			TaggableType: def.OwnerType(),
			OwnerType:    owner.Type,
			OwnerID:      owner.ID,
		}
		f.tags = append(f.tags, tag)
		out = append(out, tag)
	}
	return out, nil
}

func (f *fakeTagRepo) FindByID(_ context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (*models.Tag, error) {
	for _, t := range f.scoped(def) {
		if t.ID == tagID {
			tag := *t
			return &tag, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (f *fakeTagRepo) FindByContext(_ context.Context, def *tagtype.TagType) ([]models.Tag, error) {
	var out []models.Tag
	for _, t := range f.scoped(def) {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeTagRepo) Update(_ context.Context, def *tagtype.TagType, tagID primitive.ObjectID, updateFields bson.M) (*mongo.UpdateResult, error) {
	name, _ := updateFields["name"].(string)
	if other := f.byName(def, name); other != nil && other.ID != tagID {
		return nil, duplicateKey
	}
	for _, t := range f.scoped(def) {
		if t.ID == tagID {
			t.Name = name
			return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
		}
	}
	return &mongo.UpdateResult{}, nil
}

func (f *fakeTagRepo) Delete(_ context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (*mongo.DeleteResult, error) {
	before := len(f.tags)
	f.remove(func(t models.Tag) bool { return t.ID == tagID && t.Context == def.Context() })
	return &mongo.DeleteResult{DeletedCount: int64(before - len(f.tags))}, nil
}

// IncrementTaggingsCount bumps each listed tag once however often it is
// listed, like an UpdateMany over an $in filter.
func (f *fakeTagRepo) IncrementTaggingsCount(_ context.Context, _ *tagtype.TagType, tagIDs []primitive.ObjectID, delta int) error {
	for i := range f.tags {
		for _, id := range tagIDs {
			if f.tags[i].ID == id {
				f.tags[i].TaggingsCount += delta
				break
			}
		}
	}
	return nil
}

func (f *fakeTagRepo) DeleteUnused(_ context.Context, _ *tagtype.TagType, tagIDs []primitive.ObjectID) (int64, error) {
	before := len(f.tags)
	f.remove(func(t models.Tag) bool {
		for _, id := range tagIDs {
			if t.ID == id && t.TaggingsCount <= 0 {
				return true
			}
		}
		return false
	})
	return int64(before - len(f.tags)), nil
}

func (f *fakeTagRepo) remove(drop func(models.Tag) bool) {
	kept := f.tags[:0]
	for _, t := range f.tags {
		if !drop(t) {
			kept = append(kept, t)
		}
	}
	f.tags = kept
}

// fakeTaggingRepo keeps taggings in memory.
type fakeTaggingRepo struct {
	rows      []models.Tagging
	createErr error
	pipelines int
}

func sameTagger(row models.Tagging, tagger *models.Reference) bool {
	switch {
	case tagger == nil:
		return true
	case tagger.IsZero():
		return row.TaggerID.IsZero()
	default:
		return row.Tagger() == *tagger
	}
}

func (f *fakeTaggingRepo) of(def *tagtype.TagType, taggable models.Reference, tagger *models.Reference) func(models.Tagging) bool {
	return func(row models.Tagging) bool {
		return row.TaggableType == taggable.Type && row.TaggableID == taggable.ID &&
			row.Context == def.Context() && sameTagger(row, tagger)
	}
}

func (f *fakeTaggingRepo) Create(_ context.Context, _ *tagtype.TagType, tagging *models.Tagging) (*models.Tagging, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if tagging.ID.IsZero() {
		tagging.ID = primitive.NewObjectID()
	}
	if err := tagging.Validate(); err != nil {
		return nil, err
	}
	f.rows = append(f.rows, *tagging)
	return tagging, nil
}

func (f *fakeTaggingRepo) FindByTaggable(_ context.Context, def *tagtype.TagType, taggable models.Reference, tagger *models.Reference) ([]models.Tagging, error) {
	var out []models.Tagging
	for _, row := range f.rows {
		if f.of(def, taggable, tagger)(row) {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func (f *fakeTaggingRepo) DeleteByTagNames(_ context.Context, def *tagtype.TagType, taggable models.Reference, tagger *models.Reference, names []string) ([]models.Tagging, error) {
	match := f.of(def, taggable, tagger)
	return f.remove(func(row models.Tagging) bool {
		if !match(row) {
			return false
		}
		for _, name := range names {
			if row.TagName == name {
				return true
			}
		}
		return false
	}), nil
}

func (f *fakeTaggingRepo) DeleteByTaggable(ctx context.Context, def *tagtype.TagType, taggable models.Reference) ([]models.Tagging, error) {
	removed, _ := f.FindByTaggable(ctx, def, taggable, nil)
	f.remove(f.of(def, taggable, nil))
	return removed, nil
}

func (f *fakeTaggingRepo) DeleteByTag(_ context.Context, _ *tagtype.TagType, tagID primitive.ObjectID) (int64, error) {
	return int64(len(f.remove(func(row models.Tagging) bool { return row.TagID == tagID }))), nil
}

func (f *fakeTaggingRepo) RenameTag(_ context.Context, _ *tagtype.TagType, tagID primitive.ObjectID, name string) (int64, error) {
	var n int64
	for i := range f.rows {
		if f.rows[i].TagID == tagID {
			f.rows[i].TagName = name
			n++
		}
	}
	return n, nil
}

func (f *fakeTaggingRepo) AggregateIDs(context.Context, string, mongo.Pipeline) ([]primitive.ObjectID, error) {
	f.pipelines++
	return nil, nil
}

func (f *fakeTaggingRepo) remove(drop func(models.Tagging) bool) []models.Tagging {
	var removed, kept []models.Tagging
	for _, row := range f.rows {
		if drop(row) {
			removed = append(removed, row)
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return removed
}

func (f *fakeTaggingRepo) names(def *tagtype.TagType, taggable models.Reference, tagger *models.Reference) []string {
	rows, _ := f.FindByTaggable(context.Background(), def, taggable, tagger)
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = row.TagName
	}
	return out
}

var errStore = errors.New("store unavailable")
