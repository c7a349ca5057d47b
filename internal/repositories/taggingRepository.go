package repositories

import (
	"context"
	"fmt"
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

type TaggingRepository interface {
	Create(ctx context.Context, def *tagtype.TagType, tagging *models.Tagging) (*models.Tagging, error)
	FindByTaggable(ctx context.Context, def *tagtype.TagType, taggable models.Reference, tagger *models.Reference) ([]models.Tagging, error)
	DeleteByTagNames(ctx context.Context, def *tagtype.TagType, taggable models.Reference, tagger *models.Reference, names []string) ([]models.Tagging, error)
	DeleteByTaggable(ctx context.Context, def *tagtype.TagType, taggable models.Reference) ([]models.Tagging, error)
	DeleteByTag(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (int64, error)
	RenameTag(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID, name string) (int64, error)
	AggregateIDs(ctx context.Context, collection string, pipeline mongo.Pipeline) ([]primitive.ObjectID, error)
}

type taggingRepository struct {
	db database.Service
}

func NewTaggingRepository(db database.Service) TaggingRepository {
	return &taggingRepository{db: db}
}

func (r *taggingRepository) collection(def *tagtype.TagType) *mongo.Collection {
	return r.db.Collection(def.TaggingsCollection())
}

// taggableFilter scopes a query to one entity's taggings in the context. A nil
// tagger matches every tagger, the zero reference matches taggings without one.
func taggableFilter(def *tagtype.TagType, taggable models.Reference, tagger *models.Reference) bson.M {
	filter := bson.M{
		"taggable_type": taggable.Type,
		"taggable_id":   taggable.ID,
		"context":       def.Context(),
	}
	switch {
	case tagger == nil:
	case tagger.IsZero():
		filter["tagger_id"] = bson.M{"$exists": false}
	default:
		filter["tagger_type"] = tagger.Type
		filter["tagger_id"] = tagger.ID
	}
	return filter
}

func (r *taggingRepository) Create(ctx context.Context, def *tagtype.TagType, tagging *models.Tagging) (*models.Tagging, error) {
	status := "success"
	defer utils.ObserveQuery("create", "tagging", &status)()

	if tagging.ID.IsZero() {
		tagging.ID = primitive.NewObjectID()
	}
	if tagging.CreatedAt == 0 {
		tagging.CreatedAt = primitive.NewDateTimeFromTime(time.Now())
	}
	if err := tagging.Validate(); err != nil {
		utils.QueryFailed("create", "tagging", &status)
		return nil, fmt.Errorf("invalid tagging: %w", err)
	}

	if _, err := r.collection(def).InsertOne(ctx, tagging); err != nil {
		utils.QueryFailed("create", "tagging", &status)
		log.Error().Err(err).Str("tag_name", tagging.TagName).Str("taggable_id", tagging.TaggableID.Hex()).Msg("Failed to insert tagging")
		return nil, fmt.Errorf("failed to insert tagging: %w", err)
	}
	metrics.TaggingCreatedTotal.WithLabelValues(def.Context()).Inc()
	return tagging, nil
}

// FindByTaggable lists taggings in creation order.
func (r *taggingRepository) FindByTaggable(ctx context.Context, def *tagtype.TagType, taggable models.Reference, tagger *models.Reference) ([]models.Tagging, error) {
	return r.find(ctx, def, taggableFilter(def, taggable, tagger), "findByTaggable")
}

func (r *taggingRepository) find(ctx context.Context, def *tagtype.TagType, filter bson.M, queryType string) ([]models.Tagging, error) {
	status := "success"
	defer utils.ObserveQuery(queryType, "tagging", &status)()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection(def).Find(ctx, filter, opts)
	if err != nil {
		utils.QueryFailed(queryType, "tagging", &status)
		return nil, fmt.Errorf("failed to retrieve taggings: %w", err)
	}
	defer cursor.Close(ctx)

	var taggings []models.Tagging
	if err := cursor.All(ctx, &taggings); err != nil {
		utils.QueryFailed(queryType, "tagging", &status)
		return nil, fmt.Errorf("error decoding taggings: %w", err)
	}
	return taggings, nil
}

// DeleteByTagNames removes the entity's taggings of names, by that tagger when
// tagger is set, and returns every removed tagging.
func (r *taggingRepository) DeleteByTagNames(ctx context.Context, def *tagtype.TagType, taggable models.Reference, tagger *models.Reference, names []string) ([]models.Tagging, error) {
	if len(names) == 0 {
		return nil, nil
	}
	filter := taggableFilter(def, taggable, tagger)
	filter["tag_name"] = bson.M{"$in": names}
	return r.deleteMatching(ctx, def, filter, "deleteByTagNames")
}

// DeleteByTaggable removes every tagging of the entity in the context and
// returns them.
func (r *taggingRepository) DeleteByTaggable(ctx context.Context, def *tagtype.TagType, taggable models.Reference) ([]models.Tagging, error) {
	return r.deleteMatching(ctx, def, taggableFilter(def, taggable, nil), "deleteByTaggable")
}

// deleteMatching deletes the taggings selected by filter and returns them.
func (r *taggingRepository) deleteMatching(ctx context.Context, def *tagtype.TagType, filter bson.M, queryType string) ([]models.Tagging, error) {
	taggings, err := r.find(ctx, def, filter, "findForDelete")
	if err != nil || len(taggings) == 0 {
		return nil, err
	}

	status := "success"
	defer utils.ObserveQuery(queryType, "tagging", &status)()

	ids := make([]primitive.ObjectID, len(taggings))
	for i, tagging := range taggings {
		ids[i] = tagging.ID
	}
	result, err := r.collection(def).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		utils.QueryFailed(queryType, "tagging", &status)
		return nil, fmt.Errorf("failed to delete taggings: %w", err)
	}
	metrics.TaggingDestroyedTotal.WithLabelValues(def.Context()).Add(float64(result.DeletedCount))
	return taggings, nil
}

func (r *taggingRepository) DeleteByTag(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (int64, error) {
	status := "success"
	defer utils.ObserveQuery("deleteByTag", "tagging", &status)()

	result, err := r.collection(def).DeleteMany(ctx, bson.M{"tag_id": tagID})
	if err != nil {
		utils.QueryFailed("deleteByTag", "tagging", &status)
		return 0, fmt.Errorf("failed to delete taggings of tag: %w", err)
	}
	metrics.TaggingDestroyedTotal.WithLabelValues(def.Context()).Add(float64(result.DeletedCount))
	return result.DeletedCount, nil
}

// RenameTag refreshes the tag name copied onto the tag's taggings.
func (r *taggingRepository) RenameTag(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID, name string) (int64, error) {
	status := "success"
	defer utils.ObserveQuery("renameTag", "tagging", &status)()

	result, err := r.collection(def).UpdateMany(ctx, bson.M{"tag_id": tagID}, bson.M{"$set": bson.M{"tag_name": name}})
	if err != nil {
		utils.QueryFailed("renameTag", "tagging", &status)
		return 0, fmt.Errorf("failed to rename taggings: %w", err)
	}
	return result.ModifiedCount, nil
}

// AggregateIDs runs pipeline over a taggings collection and collects the _id
// of every resulting document.
func (r *taggingRepository) AggregateIDs(ctx context.Context, collection string, pipeline mongo.Pipeline) ([]primitive.ObjectID, error) {
	status := "success"
	defer utils.ObserveQuery("aggregateIDs", "tagging", &status)()

	cursor, err := r.db.Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		utils.QueryFailed("aggregateIDs", "tagging", &status)
		return nil, fmt.Errorf("failed to aggregate taggings: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		utils.QueryFailed("aggregateIDs", "tagging", &status)
		return nil, fmt.Errorf("error decoding aggregation: %w", err)
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}
