package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/config"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/utils"
)

// CaseInsensitive compares strings ignoring case but not diacritics.
var CaseInsensitive = &options.Collation{Locale: "en", Strength: 2}

type Service interface {
	Health() map[string]string
	Client() *mongo.Client
	Collection(name string) *mongo.Collection
	EnsureIndexes(ctx context.Context, tagsCollection, taggingsCollection string) error
	Close() error
}

type service struct {
	db       *mongo.Client
	database string
}

func New(cfg *config.Config) (Service, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to MongoDB")
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	return &service{
		db:       client,
		database: cfg.Database,
	}, nil
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	err := s.db.Ping(ctx, nil)
	if err != nil {
		log.Error().Err(err).Msg("Database health check failed")
		return map[string]string{
			"message": "db down",
			"error":   err.Error(),
		}
	}

	return map[string]string{
		"message": "It's healthy",
	}
}

func (s *service) Client() *mongo.Client {
	return s.db
}

func (s *service) Collection(name string) *mongo.Collection {
	return s.db.Database(s.database).Collection(name)
}

// EnsureIndexes creates the uniqueness indexes of a tags/taggings collection pair.
func (s *service) EnsureIndexes(ctx context.Context, tagsCollection, taggingsCollection string) error {
	tags := s.Collection(tagsCollection)
	if err := utils.CreateUniqueIndex(ctx, tags, bson.D{
		{Key: "name", Value: 1},
		{Key: "taggable_type", Value: 1},
		{Key: "context", Value: 1},
	}, "tag"); err != nil {
		return err
	}

	_, err := tags.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "taggable_type", Value: 1},
			{Key: "context", Value: 1},
			{Key: "name", Value: 1},
		},
		Options: options.Index().SetName("tag_name_ci").SetCollation(CaseInsensitive),
	})
	if err != nil {
		return fmt.Errorf("failed to create case-insensitive index for tag name: %w", err)
	}

	taggings := s.Collection(taggingsCollection)
	if err := utils.CreateUniqueIndex(ctx, taggings, bson.D{
		{Key: "taggable_type", Value: 1},
		{Key: "taggable_id", Value: 1},
		{Key: "context", Value: 1},
		{Key: "tagger_type", Value: 1},
		{Key: "tagger_id", Value: 1},
		{Key: "tag_name", Value: 1},
	}, "tagging"); err != nil {
		return err
	}

	_, err = taggings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "tag_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create index for tagging tag_id: %w", err)
	}
	return nil
}

func (s *service) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Disconnect(ctx)
}
