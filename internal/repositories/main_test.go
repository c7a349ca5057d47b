package repositories

import (
	"context"
	"flag"
	"os"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/config"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/database"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

var mongoURI string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		log.Fatal().Err(err).Msg("Could not start mongodb container")
	}
	mongoURI, err = container.ConnectionString(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not read mongodb connection string")
	}

	code := m.Run()

	if err := container.Terminate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Could not teardown mongodb container")
	}
	os.Exit(code)
}

// newTestDB connects to a fresh database with indexes in place.
func newTestDB(t *testing.T) database.Service {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping test in short mode.")
	}
	name := "test_" + primitive.NewObjectID().Hex()
	db, err := database.New(&config.Config{MongoURI: mongoURI, Database: name})
	require.NoError(t, err)
	require.NoError(t, db.EnsureIndexes(context.Background(), "tags", "taggings"))
	t.Cleanup(func() {
		_ = db.Client().Database(name).Drop(context.Background())
		_ = db.Close()
	})
	return db
}

func articleTags(opts tagtype.Options) *tagtype.TagType {
	return tagtype.New("Article", "tags", opts, nil)
}
