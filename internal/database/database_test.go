package database

import (
	"context"
	"flag"
	"os"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/config"
)

var mongoURI string

func mustStartMongoContainer() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	dbContainer, err := mongodb.Run(context.Background(), "mongo:7")
	if err != nil {
		return nil, err
	}

	uri, err := dbContainer.ConnectionString(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}
	mongoURI = uri

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	teardown, err := mustStartMongoContainer()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not start mongodb container")
	}

	code := m.Run()

	if teardown != nil && teardown(context.Background()) != nil {
		log.Fatal().Err(err).Msg("Could not teardown mongodb container")
	}
	os.Exit(code)
}

func newTestService(t *testing.T) Service {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping test in short mode.")
	}
	srv, err := New(&config.Config{MongoURI: mongoURI, Database: "database_test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestNew(t *testing.T) {
	srv := newTestService(t)
	assert.NotNil(t, srv.Client())
}

func TestHealth(t *testing.T) {
	srv := newTestService(t)

	stats := srv.Health()

	assert.Equal(t, "It's healthy", stats["message"])
}

func TestEnsureIndexes(t *testing.T) {
	srv := newTestService(t)
	ctx := context.Background()

	require.NoError(t, srv.EnsureIndexes(ctx, "idx_tags", "idx_taggings"))
	// Creating the same indexes twice is a no-op.
	require.NoError(t, srv.EnsureIndexes(ctx, "idx_tags", "idx_taggings"))

	tags := srv.Collection("idx_tags")
	doc := bson.M{"name": "go", "taggable_type": "Article", "context": "tags"}
	_, err := tags.InsertOne(ctx, doc)
	require.NoError(t, err)

	_, err = tags.InsertOne(ctx, bson.M{"name": "go", "taggable_type": "Article", "context": "tags"})
	assert.True(t, mongo.IsDuplicateKeyError(err))

	_, err = tags.InsertOne(ctx, bson.M{"name": "go", "taggable_type": "Article", "context": "skills"})
	assert.NoError(t, err)

	cursor, err := tags.Indexes().List(ctx)
	require.NoError(t, err)
	var specs []struct {
		Name      string `bson:"name"`
		Collation *struct {
			Strength int `bson:"strength"`
		} `bson:"collation"`
	}
	require.NoError(t, cursor.All(ctx, &specs))

	found := false
	for _, spec := range specs {
		if spec.Name == "tag_name_ci" {
			found = true
			require.NotNil(t, spec.Collation)
			assert.Equal(t, 2, spec.Collation.Strength)
		}
	}
	assert.True(t, found, "case-insensitive tag name index")
}
