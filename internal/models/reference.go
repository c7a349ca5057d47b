package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reference points at a document of a named entity type. It stands in for a
// polymorphic association: the type name is resolved through a registry.
type Reference struct {
	Type string             `json:"type" bson:"type"`
	ID   primitive.ObjectID `json:"id" bson:"id"`
}

func NewReference(typeName string, id primitive.ObjectID) Reference {
	return Reference{Type: typeName, ID: id}
}

// IsZero reports whether r points at nothing.
func (r Reference) IsZero() bool {
	return r.Type == "" && r.ID.IsZero()
}

// Key identifies the reference in maps; the zero reference has key "".
func (r Reference) Key() string {
	if r.IsZero() {
		return ""
	}
	return r.Type + ":" + r.ID.Hex()
}
