package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Identifiable is a document that can (re)generate its own primary key and
// stamp its timestamps.
type Identifiable interface {
	GenID()
	Touch(now time.Time)
}

// InsertOne assigns a fresh ID to doc and inserts it, regenerating the ID on
// duplicate key errors.
func InsertOne[T Identifiable](ctx context.Context, coll *mongo.Collection, doc T) (T, error) {
	doc.Touch(time.Now())
	err := Try(func() error {
		doc.GenID()
		_, err := coll.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		return doc, fmt.Errorf("failed to insert into %s: %w", coll.Name(), err)
	}
	return doc, nil
}
