package models

import (
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate = validator.New()

// Tag is one distinct label within a (name, taggable type, context) scope.
type Tag struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name          string             `json:"name" bson:"name" validate:"required"`
	Context       string             `json:"context" bson:"context" validate:"required"`
	TaggableType  string             `json:"taggable_type" bson:"taggable_type" validate:"required"`
	TaggingsCount int                `json:"taggings_count" bson:"taggings_count"`
	OwnerType     string             `json:"owner_type,omitempty" bson:"owner_type,omitempty"`
	OwnerID       primitive.ObjectID `json:"owner_id,omitempty" bson:"owner_id,omitempty"`
	CreatedAt     primitive.DateTime `json:"created_at" bson:"created_at"`
	UpdatedAt     primitive.DateTime `json:"updated_at" bson:"updated_at"`
}

type TagUpdate struct {
	Name *string `json:"name,omitempty" bson:"name,omitempty"`
}

func (t *Tag) Validate() error {
	return validate.Struct(t)
}

// Owner is the tagger that introduced the tag, if any.
func (t *Tag) Owner() Reference {
	return Reference{Type: t.OwnerType, ID: t.OwnerID}
}

// Key identifies the tag: by id once stored, by name before that.
func (t *Tag) Key() string {
	if !t.ID.IsZero() {
		return t.ID.Hex()
	}
	return "name:" + t.Name
}
