package db

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared across services.
const (
	InquiriesCollection      = "inquiries"
	ListingsCollection       = "listings"
	VehiclesCollection       = "vehicles"
	AgreedVehiclesCollection = "agreed_vehicles"
	FavoritesCollection      = "favorites"
	EmailTemplatesCollection = "email_templates"
)

// Unique index names on the agreed vehicles collection.
const (
	IndexAgreedInquiry     = "uniq_inquiry"
	IndexAgreedStockNumber = "uniq_stock_number"
)

// IndexConflict is a unique index that could not be built because stored
// documents already collide on its key.
type IndexConflict struct {
	Collection string
	Index      string
	Err        error
}

// IndexConflictError is returned by EnsureIndexes when every other index was
// built and only unique indexes over colliding data were skipped.
type IndexConflictError struct {
	Conflicts []IndexConflict
}

func (e *IndexConflictError) Error() string {
	names := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		names = append(names, c.Collection+"."+c.Index)
	}
	return "unique indexes skipped over duplicate data: " + strings.Join(names, ", ")
}

// EnsureIndexes creates the indexes the application relies on. It is safe to call on every start.
// A unique index whose key already has duplicates is skipped and reported in an
// *IndexConflictError; any other failure is returned as is.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		AgreedVehiclesCollection: {
			{Keys: bson.D{{Key: "inquiryId", Value: 1}}, Options: options.Index().SetUnique(true).SetName(IndexAgreedInquiry).
				SetPartialFilterExpression(bson.M{"inquiryId": bson.M{"$gt": ""}})},
			{Keys: bson.D{{Key: "stockNumber", Value: 1}}, Options: options.Index().SetUnique(true).SetName(IndexAgreedStockNumber).
				SetPartialFilterExpression(bson.M{"stockNumber": bson.M{"$gt": ""}})},
			{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		InquiriesCollection: {
			{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "inquiryId", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		ListingsCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}},
			{Keys: bson.D{{Key: "stockNumber", Value: 1}}},
			{Keys: bson.D{{Key: "make", Value: 1}, {Key: "model", Value: 1}, {Key: "year", Value: 1}}},
			{Keys: bson.D{{Key: "visibility", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		FavoritesCollection: {
			{Keys: bson.D{{Key: "customerId", Value: 1}, {Key: "listingId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		EmailTemplatesCollection: {
			{Keys: bson.D{{Key: "template_id", Value: 1}, {Key: "locale", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	var conflicts []IndexConflict
	for coll, models := range specs {
		indexes := database.Collection(coll).Indexes()
		for _, model := range models {
			name, err := indexes.CreateOne(ctx, model)
			if err == nil {
				continue
			}
			if isUnique(model) && IsMongoDuplicateKeyError(err) {
				conflicts = append(conflicts, IndexConflict{Collection: coll, Index: indexName(model, name), Err: err})
				continue
			}
			return fmt.Errorf("failed to create index %s on %s: %w", indexName(model, name), coll, err)
		}
	}
	if len(conflicts) > 0 {
		return &IndexConflictError{Conflicts: conflicts}
	}
	return nil
}

func isUnique(model mongo.IndexModel) bool {
	return model.Options != nil && model.Options.Unique != nil && *model.Options.Unique
}

func indexName(model mongo.IndexModel, created string) string {
	if model.Options != nil && model.Options.Name != nil {
		return *model.Options.Name
	}
	if created != "" {
		return created
	}
	return fmt.Sprint(model.Keys)
}
