package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/diff"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/query"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/repositories"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taggable"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taglist"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

// TaggingService keeps the taggings of records in line with their tag lists.
type TaggingService interface {
	// Save reconciles every changed list of rec with its taggings.
	Save(ctx context.Context, rec *taggable.Record) error
	// Load fills the lists of rec from its taggings.
	Load(ctx context.Context, rec *taggable.Record) error
	// Destroy removes every tagging of rec.
	Destroy(ctx context.Context, rec *taggable.Record) error
	TaggedWith(ctx context.Context, typ *taggable.Type, opts query.Options, tags ...string) ([]primitive.ObjectID, error)
}

type taggingServiceImpl struct {
	tagRepo     repositories.TagRepository
	taggingRepo repositories.TaggingRepository
}

func NewTaggingService(tagRepo repositories.TagRepository, taggingRepo repositories.TaggingRepository) TaggingService {
	return &taggingServiceImpl{tagRepo: tagRepo, taggingRepo: taggingRepo}
}

func (s *taggingServiceImpl) Save(ctx context.Context, rec *taggable.Record) error {
	changed := rec.ChangedContexts()
	log.Debug().Str("taggable", rec.Ref().Key()).Int("contexts", len(changed)).Msg("Attempting to save tag lists")

	for _, def := range changed {
		for _, list := range rec.ChangedLists(def) {
			if err := s.reconcile(ctx, rec.Ref(), list); err != nil {
				log.Error().Err(err).Str("taggable", rec.Ref().Key()).Str("context", def.Context()).Msg("Failed to save tag list")
				return err
			}
		}
	}
	rec.MarkSaved()
	return nil
}

// reconcile applies one list: the taggings of tags that left it are destroyed
// and the taggings of tags that joined it are created in list order.
func (s *taggingServiceImpl) reconcile(ctx context.Context, ref models.Reference, list *taglist.TagList) error {
	def := list.TagType()
	tagger := list.Tagger()

	tags, err := s.tagRepo.FindOrCreateAll(ctx, def, tagger, list.Tags())
	if err != nil {
		return err
	}
	taggings, err := s.taggingRepo.FindByTaggable(ctx, def, ref, &tagger)
	if err != nil {
		return err
	}
	current := make([]models.Tag, len(taggings))
	for i, tagging := range taggings {
		current[i] = tagging.Tag()
	}

	d := diff.New(def, tags, current)
	if d.Empty() {
		return nil
	}

	if len(d.OldTags) > 0 {
		removed, err := s.taggingRepo.DeleteByTagNames(ctx, def, ref, &tagger, d.OldTagNames())
		if err != nil {
			return err
		}
		if err := s.release(ctx, def, removed); err != nil {
			return err
		}
	}

	base := time.Now()
	for i, tag := range d.NewTags {
		tagging := &models.Tagging{
			TagID:        tag.ID,
			TagName:      tag.Name,
			Context:      def.Context(),
			TaggableType: ref.Type,
			TaggableID:   ref.ID,
			TaggerType:   tagger.Type,
			TaggerID:     tagger.ID,
			CreatedAt:    primitive.NewDateTimeFromTime(base.Add(time.Duration(i) * time.Millisecond)),
		}
		if _, err := s.taggingRepo.Create(ctx, def, tagging); err != nil {
			return err
		}
	}
	if err := s.tagRepo.IncrementTaggingsCount(ctx, def, tagIDs(d.NewTags), 1); err != nil {
		return err
	}

	log.Info().Str("taggable", ref.Key()).Str("context", def.Context()).
		Strs("removed", d.OldTagNames()).Int("added", len(d.NewTags)).Msg("Tag list saved")
	return nil
}

func (s *taggingServiceImpl) Load(ctx context.Context, rec *taggable.Record) error {
	defs := rec.Type().TagTypes()
	log.Debug().Str("taggable", rec.Ref().Key()).Int("contexts", len(defs)).Msg("Attempting to load tag lists")

	type result struct {
		Taggings []models.Tagging
		Err      error
	}

	results := make([]result, len(defs))
	var wg sync.WaitGroup
	wg.Add(len(defs))

	for i, def := range defs {
		go func() {
			defer wg.Done()
			taggings, err := s.taggingRepo.FindByTaggable(ctx, def, rec.Ref(), nil)
			results[i] = result{Taggings: taggings, Err: err}
		}()
	}
	wg.Wait()

	for i, def := range defs {
		if err := results[i].Err; err != nil {
			log.Error().Err(err).Str("taggable", rec.Ref().Key()).Str("context", def.Context()).Msg("Failed to load tag list")
			return err
		}
		if !def.Tagger() {
			names := make([]string, len(results[i].Taggings))
			for j, tagging := range results[i].Taggings {
				names[j] = tagging.TagName
			}
			rec.LoadTagList(def, models.Reference{}, names)
			continue
		}
		for _, group := range groupByTagger(results[i].Taggings) {
			rec.LoadTagList(def, group.tagger, group.names)
		}
	}
	return nil
}

type taggerNames struct {
	tagger models.Reference
	names  []string
}

// groupByTagger splits taggings by tagger, keeping first-seen order.
func groupByTagger(taggings []models.Tagging) []taggerNames {
	var groups []taggerNames
	index := make(map[string]int)
	for _, tagging := range taggings {
		tagger := tagging.Tagger()
		i, ok := index[tagger.Key()]
		if !ok {
			i = len(groups)
			index[tagger.Key()] = i
			groups = append(groups, taggerNames{tagger: tagger})
		}
		groups[i].names = append(groups[i].names, tagging.TagName)
	}
	return groups
}

func (s *taggingServiceImpl) Destroy(ctx context.Context, rec *taggable.Record) error {
	for _, def := range rec.Type().TagTypes() {
		removed, err := s.taggingRepo.DeleteByTaggable(ctx, def, rec.Ref())
		if err != nil {
			log.Error().Err(err).Str("taggable", rec.Ref().Key()).Str("context", def.Context()).Msg("Failed to destroy taggings")
			return err
		}
		if len(removed) == 0 {
			continue
		}
		if err := s.release(ctx, def, removed); err != nil {
			return err
		}
		log.Info().Str("taggable", rec.Ref().Key()).Str("context", def.Context()).Int("taggings", len(removed)).Msg("Taggings destroyed")
	}
	return nil
}

func (s *taggingServiceImpl) TaggedWith(ctx context.Context, typ *taggable.Type, opts query.Options, tags ...string) ([]primitive.ObjectID, error) {
	ids, err := query.NewBuilder(typ, s.taggingRepo).IDs(ctx, opts, tags...)
	if err != nil {
		log.Warn().Err(err).Str("taggable_type", typ.Name()).Strs("tags", tags).Msg("Tagged-with query failed")
		return nil, err
	}
	return ids, nil
}

// release takes the removed taggings off their tags' counters, one per
// tagging, and drops tags left unused when the context asks for it.
func (s *taggingServiceImpl) release(ctx context.Context, def *tagtype.TagType, removed []models.Tagging) error {
	if len(removed) == 0 {
		return nil
	}
	perTag := make(map[primitive.ObjectID]int)
	var ids []primitive.ObjectID
	for _, tagging := range removed {
		if perTag[tagging.TagID] == 0 {
			ids = append(ids, tagging.TagID)
		}
		perTag[tagging.TagID]++
	}

	// One $inc per distinct decrement.
	byCount := make(map[int][]primitive.ObjectID)
	var counts []int
	for _, id := range ids {
		n := perTag[id]
		if byCount[n] == nil {
			counts = append(counts, n)
		}
		byCount[n] = append(byCount[n], id)
	}
	for _, n := range counts {
		if err := s.tagRepo.IncrementTaggingsCount(ctx, def, byCount[n], -n); err != nil {
			return err
		}
	}

	if def.RemoveUnusedTags() {
		if _, err := s.tagRepo.DeleteUnused(ctx, def, ids); err != nil {
			return err
		}
	}
	return nil
}

func tagIDs(tags []models.Tag) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, len(tags))
	for i, tag := range tags {
		ids[i] = tag.ID
	}
	return ids
}
