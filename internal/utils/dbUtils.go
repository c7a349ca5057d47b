package utils

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ParseObjectIDs parses comma-separated ObjectID strings.
func ParseObjectIDs(idsStr string) ([]primitive.ObjectID, error) {
	var objectIDs []primitive.ObjectID
	if idsStr == "" {
		return objectIDs, nil
	}
	for _, idStr := range strings.Split(idsStr, ",") {
		objID, err := primitive.ObjectIDFromHex(strings.TrimSpace(idStr))
		if err != nil {
			return nil, err
		}
		objectIDs = append(objectIDs, objID)
	}
	return objectIDs, nil
}

// CreateUniqueIndex creates a unique index on the specified collection and keys.
// It returns an error if the index creation fails, including a specific error for duplicate keys.
func CreateUniqueIndex(ctx context.Context, collection *mongo.Collection, keys interface{}, fieldName string) error {
	indexModel := mongo.IndexModel{
		Keys:    keys,
		Options: options.Index().SetUnique(true),
	}

	_, err := collection.Indexes().CreateOne(ctx, indexModel)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%s already exists", fieldName)
		}
		return fmt.Errorf("failed to create index for %s: %w", fieldName, err)
	}
	return nil
}
