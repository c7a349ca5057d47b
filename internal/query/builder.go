// Package query builds filters selecting the entities of a taggable type by
// the tags they carry.
package query

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/metrics"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taggable"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taglist"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

var (
	ErrConflictingContexts = errors.New("contexts cannot be queried together")
	ErrUnknownContext      = taggable.ErrUnknownContext
)

// Aggregator runs an aggregation over a taggings collection and returns the
// _id of every resulting document.
type Aggregator interface {
	AggregateIDs(ctx context.Context, collection string, pipeline mongo.Pipeline) ([]primitive.ObjectID, error)
}

type Builder struct {
	typ *taggable.Type
	agg Aggregator
}

func NewBuilder(typ *taggable.Type, agg Aggregator) *Builder {
	return &Builder{typ: typ, agg: agg}
}

// TaggedWith returns a filter on _id matching the entities selected by tags
// and opts.
func (b *Builder) TaggedWith(ctx context.Context, opts Options, tags ...string) (bson.M, error) {
	ids, err := b.IDs(ctx, opts, tags...)
	if err != nil {
		return nil, err
	}
	return bson.M{"_id": bson.M{"$in": ids}}, nil
}

// IDs returns the ids of the entities selected by tags and opts, ascending.
func (b *Builder) IDs(ctx context.Context, opts Options, tags ...string) ([]primitive.ObjectID, error) {
	defs, err := b.contexts(opts.On)
	if err != nil {
		return nil, err
	}
	q := &search{
		agg:        b.agg,
		collection: defs[0].TaggingsCollection(),
		base:       b.baseFilter(defs, opts),
		tags:       taglist.New(defs[0], taglist.Options{Parse: opts.Parse, Parser: opts.Parser}, tags...).Tags(),
		wild:       opts.Wild,
		strict:     strictCase(defs),
	}

	mode := opts.Mode()
	metrics.TaggedWithQueriesTotal.WithLabelValues(mode.String()).Inc()
	log.Debug().Str("taggable_type", b.typ.Name()).Str("mode", mode.String()).Strs("tags", q.tags).Msg("Building tagged-with query")

	var ids []primitive.ObjectID
	switch mode {
	case Any:
		ids, err = q.any(ctx)
	case MatchAll:
		ids, err = q.matchAll(ctx)
	case Exclude:
		ids, err = q.exclude(ctx)
	default:
		ids, err = q.all(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("tagged-with %s query: %w", mode, err)
	}
	return ids, nil
}

// contexts resolves the searched contexts and checks they can be combined.
func (b *Builder) contexts(on []string) ([]*tagtype.TagType, error) {
	if len(on) == 0 {
		defs := b.typ.TagTypes()
		if len(defs) == 0 {
			return nil, fmt.Errorf("%w: %s declares no tag context", ErrUnknownContext, b.typ.Name())
		}
		return checkConflicts(defs)
	}
	defs := make([]*tagtype.TagType, 0, len(on))
	for _, name := range on {
		def, err := b.typ.TagType(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return checkConflicts(defs)
}

func checkConflicts(defs []*tagtype.TagType) ([]*tagtype.TagType, error) {
	for _, def := range defs[1:] {
		if defs[0].ConflictsWith(def) {
			return nil, fmt.Errorf("%w: %q and %q", ErrConflictingContexts, defs[0].Context(), def.Context())
		}
	}
	return defs, nil
}

// strictCase reports whether names are compared exactly, which holds only when
// every searched context matches case strictly.
func strictCase(defs []*tagtype.TagType) bool {
	for _, def := range defs {
		if !def.StrictCaseMatch() {
			return false
		}
	}
	return true
}

func (b *Builder) baseFilter(defs []*tagtype.TagType, opts Options) bson.M {
	contexts := make(bson.A, 0, len(defs))
	for _, def := range defs {
		contexts = append(contexts, def.Context())
	}
	filter := bson.M{
		"taggable_type": b.typ.Name(),
		"context":       bson.M{"$in": contexts},
	}

	window := bson.M{}
	if opts.StartAt != nil {
		window["$gte"] = primitive.NewDateTimeFromTime(*opts.StartAt)
	}
	if opts.EndAt != nil {
		window["$lt"] = primitive.NewDateTimeFromTime(*opts.EndAt)
	}
	if len(window) > 0 {
		filter["created_at"] = window
	}
	return filter
}

// search is one tagged-with query. Counts are of distinct tag names per
// entity, whatever the number of taggings behind them.
type search struct {
	agg        Aggregator
	collection string
	base       bson.M
	tags       []string
	wild       bool
	strict     bool
}

func (s *search) all(ctx context.Context) ([]primitive.ObjectID, error) {
	if len(s.tags) == 0 {
		return []primitive.ObjectID{}, nil
	}
	if !s.wild {
		return s.run(ctx, s.tagFilter(s.tags...), bson.M{"$eq": len(s.tags)})
	}

	// A pattern may match several names, so every pattern is matched on its own.
	var ids []primitive.ObjectID
	for i, tag := range s.tags {
		matched, err := s.run(ctx, s.tagFilter(tag), bson.M{"$gt": 0})
		if err != nil {
			return nil, err
		}
		if i == 0 {
			ids = matched
		} else {
			ids = intersect(ids, matched)
		}
		if len(ids) == 0 {
			break
		}
	}
	return ids, nil
}

func (s *search) any(ctx context.Context) ([]primitive.ObjectID, error) {
	if len(s.tags) == 0 {
		return []primitive.ObjectID{}, nil
	}
	return s.run(ctx, s.tagFilter(s.tags...), bson.M{"$gt": 0})
}

func (s *search) matchAll(ctx context.Context) ([]primitive.ObjectID, error) {
	all, err := s.all(ctx)
	if err != nil || len(all) == 0 {
		return all, err
	}
	others, err := s.run(ctx, s.base, bson.M{"$ne": len(s.tags)})
	if err != nil {
		return nil, err
	}
	return minus(all, others), nil
}

func (s *search) exclude(ctx context.Context) ([]primitive.ObjectID, error) {
	tagged, err := s.run(ctx, s.base, bson.M{"$gt": 0})
	if err != nil || len(tagged) == 0 {
		return tagged, err
	}
	matching, err := s.any(ctx)
	if err != nil {
		return nil, err
	}
	return minus(tagged, matching), nil
}

// term is the tag_name condition for one tag: a substring pattern when wild,
// the name itself under strict case, and an anchored case-insensitive pattern
// otherwise.
func (s *search) term(tag string) any {
	switch {
	case s.wild:
		return primitive.Regex{Pattern: regexp.QuoteMeta(tag), Options: "i"}
	case s.strict:
		return tag
	default:
		return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(tag) + "$", Options: "i"}
	}
}

func (s *search) tagFilter(tags ...string) bson.M {
	names := make(bson.A, 0, len(tags))
	for _, tag := range tags {
		names = append(names, s.term(tag))
	}
	filter := bson.M{"tag_name": bson.M{"$in": names}}
	for k, v := range s.base {
		filter[k] = v
	}
	return filter
}

func (s *search) run(ctx context.Context, match, count bson.M) ([]primitive.ObjectID, error) {
	ids, err := s.agg.AggregateIDs(ctx, s.collection, Pipeline(match, count))
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	return ids, nil
}

// Pipeline groups the taggings selected by match per entity and tag name, then
// counts the names of each entity and keeps the entities whose count
// satisfies count.
func Pipeline(match, count bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"taggable_id": "$taggable_id", "tag_name": "$tag_name"},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$_id.taggable_id",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$match", Value: bson.M{"count": count}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
}

// intersect returns the ids of a also in b, in the order of a.
func intersect(a, b []primitive.ObjectID) []primitive.ObjectID {
	set := linkedhashset.New()
	for _, id := range b {
		set.Add(id)
	}
	out := make([]primitive.ObjectID, 0, len(a))
	for _, id := range a {
		if set.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// minus returns the ids of a missing from b, in the order of a.
func minus(a, b []primitive.ObjectID) []primitive.ObjectID {
	set := linkedhashset.New()
	for _, id := range a {
		set.Add(id)
	}
	for _, id := range b {
		set.Remove(id)
	}
	out := make([]primitive.ObjectID, 0, set.Size())
	for _, v := range set.Values() {
		out = append(out, v.(primitive.ObjectID))
	}
	return out
}
