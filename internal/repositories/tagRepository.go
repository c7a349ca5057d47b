package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/database"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/metrics"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/utils"
)

// findOrCreateAttempts bounds retries of FindOrCreateAll after a duplicate key.
const findOrCreateAttempts = 3

type TagRepository interface {
	FindOrCreateAll(ctx context.Context, def *tagtype.TagType, owner models.Reference, names []string) ([]models.Tag, error)
	FindByID(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (*models.Tag, error)
	FindByContext(ctx context.Context, def *tagtype.TagType) ([]models.Tag, error)
	Update(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID, updateFields bson.M) (*mongo.UpdateResult, error)
	Delete(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (*mongo.DeleteResult, error)
	IncrementTaggingsCount(ctx context.Context, def *tagtype.TagType, tagIDs []primitive.ObjectID, delta int) error
	DeleteUnused(ctx context.Context, def *tagtype.TagType, tagIDs []primitive.ObjectID) (int64, error)
}

type tagRepository struct {
	db database.Service
}

func NewTagRepository(db database.Service) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) collection(def *tagtype.TagType) *mongo.Collection {
	return r.db.Collection(def.TagsCollection())
}

func scope(def *tagtype.TagType) bson.M {
	return bson.M{"taggable_type": def.OwnerType(), "context": def.Context()}
}

// FindOrCreateAll resolves names to tags in the given order, creating the
// missing ones. Names match case-insensitively unless the context is strict.
// A duplicate key while creating means another writer won the race; the whole
// lookup is retried a bounded number of times before giving up with a
// DuplicateTagError.
func (r *tagRepository) FindOrCreateAll(ctx context.Context, def *tagtype.TagType, owner models.Reference, names []string) ([]models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 1; attempt <= findOrCreateAttempts; attempt++ {
		tags, err := r.findOrCreateAll(ctx, def, owner, names)
		if err == nil {
			return tags, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		lastErr = err
		metrics.DuplicateTagRetriesTotal.WithLabelValues(def.Context()).Inc()
		log.Warn().Err(err).Str("context", def.Context()).Int("attempt", attempt).Strs("names", names).Msg("Tag created concurrently, retrying find-or-create")
	}
	return nil, &DuplicateTagError{
		Context:  def.Context(),
		Names:    names,
		Attempts: findOrCreateAttempts,
		Err:      lastErr,
	}
}

func (r *tagRepository) findOrCreateAll(ctx context.Context, def *tagtype.TagType, owner models.Reference, names []string) ([]models.Tag, error) {
	existing, err := r.findByNames(ctx, def, names)
	if err != nil {
		return nil, err
	}

	exact := make(map[string]models.Tag, len(existing))
	folded := make(map[string]models.Tag, len(existing))
	remember := func(tag models.Tag) {
		exact[tag.Name] = tag
		if _, ok := folded[strings.ToLower(tag.Name)]; !ok {
			folded[strings.ToLower(tag.Name)] = tag
		}
	}
	for _, tag := range existing {
		remember(tag)
	}

	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		if tag, ok := exact[name]; ok {
			tags = append(tags, tag)
			continue
		}
		if tag, ok := folded[strings.ToLower(name)]; ok && !def.StrictCaseMatch() {
			tags = append(tags, tag)
			continue
		}

		now := primitive.NewDateTimeFromTime(time.Now())
		tag := models.Tag{
			ID:           primitive.NewObjectID(),
			Name:         name,
			Context:      def.Context(),
			TaggableType: def.OwnerType(),
			OwnerType:    owner.Type,
			OwnerID:      owner.ID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := r.create(ctx, def, &tag); err != nil {
			return nil, err
		}
		remember(tag)
		tags = append(tags, tag)
	}
	return tags, nil
}

func (r *tagRepository) findByNames(ctx context.Context, def *tagtype.TagType, names []string) ([]models.Tag, error) {
	status := "success"
	defer utils.ObserveQuery("findByNames", "tag", &status)()

	filter := scope(def)
	filter["name"] = bson.M{"$in": names}

	// Case-insensitive lookups run under the collation of the tag_name_ci index.
	opts := options.Find()
	if !def.StrictCaseMatch() {
		opts.SetCollation(database.CaseInsensitive)
	}
	cursor, err := r.collection(def).Find(ctx, filter, opts)
	if err != nil {
		utils.QueryFailed("findByNames", "tag", &status)
		return nil, fmt.Errorf("failed to retrieve tags: %w", err)
	}
	defer cursor.Close(ctx)

	var tags []models.Tag
	if err := cursor.All(ctx, &tags); err != nil {
		utils.QueryFailed("findByNames", "tag", &status)
		return nil, fmt.Errorf("error decoding tags: %w", err)
	}
	return tags, nil
}

func (r *tagRepository) create(ctx context.Context, def *tagtype.TagType, tag *models.Tag) error {
	status := "success"
	defer utils.ObserveQuery("create", "tag", &status)()

	if err := tag.Validate(); err != nil {
		utils.QueryFailed("create", "tag", &status)
		return fmt.Errorf("invalid tag: %w", err)
	}
	if _, err := r.collection(def).InsertOne(ctx, tag); err != nil {
		utils.QueryFailed("create", "tag", &status)
		if mongo.IsDuplicateKeyError(err) {
			return err
		}
		log.Error().Err(err).Str("tag_name", tag.Name).Str("context", def.Context()).Msg("Failed to insert tag")
		return fmt.Errorf("failed to insert tag: %w", err)
	}
	metrics.TagCreatedTotal.WithLabelValues(def.Context()).Inc()
	log.Debug().Str("tag_id", tag.ID.Hex()).Str("tag_name", tag.Name).Str("context", def.Context()).Msg("Tag created")
	return nil
}

func (r *tagRepository) FindByID(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (*models.Tag, error) {
	status := "success"
	defer utils.ObserveQuery("findByID", "tag", &status)()

	filter := scope(def)
	filter["_id"] = tagID

	var tag models.Tag
	if err := r.collection(def).FindOne(ctx, filter).Decode(&tag); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			utils.QueryFailed("findByID", "tag", &status)
		}
		return nil, err
	}
	return &tag, nil
}

func (r *tagRepository) FindByContext(ctx context.Context, def *tagtype.TagType) ([]models.Tag, error) {
	status := "success"
	defer utils.ObserveQuery("findByContext", "tag", &status)()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection(def).Find(ctx, scope(def), opts)
	if err != nil {
		utils.QueryFailed("findByContext", "tag", &status)
		return nil, fmt.Errorf("failed to retrieve tags: %w", err)
	}
	defer cursor.Close(ctx)

	var tags []models.Tag
	if err := cursor.All(ctx, &tags); err != nil {
		utils.QueryFailed("findByContext", "tag", &status)
		return nil, fmt.Errorf("error decoding tags: %w", err)
	}
	return tags, nil
}

func (r *tagRepository) Update(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID, updateFields bson.M) (*mongo.UpdateResult, error) {
	status := "success"
	defer utils.ObserveQuery("update", "tag", &status)()

	filter := scope(def)
	filter["_id"] = tagID
	updateFields["updated_at"] = primitive.NewDateTimeFromTime(time.Now())

	result, err := r.collection(def).UpdateOne(ctx, filter, bson.M{"$set": updateFields})
	if err != nil {
		utils.QueryFailed("update", "tag", &status)
		if mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}
	return result, nil
}

func (r *tagRepository) Delete(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (*mongo.DeleteResult, error) {
	status := "success"
	defer utils.ObserveQuery("delete", "tag", &status)()

	filter := scope(def)
	filter["_id"] = tagID

	result, err := r.collection(def).DeleteOne(ctx, filter)
	if err != nil {
		utils.QueryFailed("delete", "tag", &status)
		return nil, fmt.Errorf("failed to delete tag: %w", err)
	}
	metrics.TagRemovedTotal.WithLabelValues(def.Context()).Add(float64(result.DeletedCount))
	return result, nil
}

func (r *tagRepository) IncrementTaggingsCount(ctx context.Context, def *tagtype.TagType, tagIDs []primitive.ObjectID, delta int) error {
	if len(tagIDs) == 0 {
		return nil
	}
	status := "success"
	defer utils.ObserveQuery("incrementTaggingsCount", "tag", &status)()

	filter := bson.M{"_id": bson.M{"$in": tagIDs}}
	update := bson.M{"$inc": bson.M{"taggings_count": delta}}
	if _, err := r.collection(def).UpdateMany(ctx, filter, update); err != nil {
		utils.QueryFailed("incrementTaggingsCount", "tag", &status)
		return fmt.Errorf("failed to update taggings count: %w", err)
	}
	return nil
}

// DeleteUnused removes those of tagIDs that no tagging references any more.
func (r *tagRepository) DeleteUnused(ctx context.Context, def *tagtype.TagType, tagIDs []primitive.ObjectID) (int64, error) {
	if len(tagIDs) == 0 {
		return 0, nil
	}
	status := "success"
	defer utils.ObserveQuery("deleteUnused", "tag", &status)()

	filter := bson.M{"_id": bson.M{"$in": tagIDs}, "taggings_count": bson.M{"$lte": 0}}
	result, err := r.collection(def).DeleteMany(ctx, filter)
	if err != nil {
		utils.QueryFailed("deleteUnused", "tag", &status)
		return 0, fmt.Errorf("failed to delete unused tags: %w", err)
	}
	metrics.TagRemovedTotal.WithLabelValues(def.Context()).Add(float64(result.DeletedCount))
	return result.DeletedCount, nil
}
