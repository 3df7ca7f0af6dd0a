package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Base is embedded by documents this service creates itself. Legacy documents
// are read through the mapping functions in legacy.go instead.
type Base struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (m *Base) GenID() {
	m.ID = primitive.NewObjectID()
}

func (m *Base) GenIDIfEmpty() {
	if m.ID.IsZero() {
		m.GenID()
	}
}

// Touch stamps UpdatedAt, and CreatedAt on first write.
func (m *Base) Touch(now time.Time) {
	now = now.UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}
