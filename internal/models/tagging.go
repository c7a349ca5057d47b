package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Tagging links one tag to one tagged entity within a context. TagName is a
// copy of the tag's name taken when the tagging was created.
type Tagging struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TagID        primitive.ObjectID `json:"tag_id" bson:"tag_id" validate:"required"`
	TagName      string             `json:"tag_name" bson:"tag_name" validate:"required"`
	Context      string             `json:"context" bson:"context" validate:"required"`
	TaggableType string             `json:"taggable_type" bson:"taggable_type" validate:"required"`
	TaggableID   primitive.ObjectID `json:"taggable_id" bson:"taggable_id" validate:"required"`
	TaggerType   string             `json:"tagger_type,omitempty" bson:"tagger_type,omitempty"`
	TaggerID     primitive.ObjectID `json:"tagger_id,omitempty" bson:"tagger_id,omitempty"`
	CreatedAt    primitive.DateTime `json:"created_at" bson:"created_at"`
}

func (t *Tagging) Validate() error {
	return validate.Struct(t)
}

func (t *Tagging) Taggable() Reference {
	return Reference{Type: t.TaggableType, ID: t.TaggableID}
}

func (t *Tagging) Tagger() Reference {
	return Reference{Type: t.TaggerType, ID: t.TaggerID}
}

// Tag returns the tag the tagging points at, as far as the tagging knows it.
func (t *Tagging) Tag() Tag {
	return Tag{ID: t.TagID, Name: t.TagName, Context: t.Context, TaggableType: t.TaggableType}
}
