package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/db"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Resolution strategies, in the order they are attempted.
const (
	ResolvedByID          = "id"
	ResolvedByStockNumber = "stock_number"
	ResolvedByMakeModel   = "make_model_year"
	ResolvedByLegacyID    = "legacy_vehicles"
	ResolvedNone          = "none"
)

// IVehicleResolver finds the listing an inquiry snapshot refers to.
type IVehicleResolver interface {
	// Resolve returns nil (and no error) when nothing matches.
	Resolve(ctx context.Context, details models.CarDetails) (*ResolvedVehicle, error)
}

// ResolvedVehicle is a listing matched from a snapshot, with how it was matched.
type ResolvedVehicle struct {
	Vehicle    models.Vehicle
	Collection string
	Strategy   string
}

type resolveStep struct {
	strategy   string
	collection string
	filter     func(d models.CarDetails) bson.M // nil filter skips the step
}

// vehicleResolver implements IVehicleResolver.
type vehicleResolver struct {
	db     *mongo.Database
	logger *zap.Logger
}

// NewVehicleResolver creates a new VehicleResolver.
func NewVehicleResolver(db *mongo.Database) IVehicleResolver {
	return &vehicleResolver{db: db, logger: utils.GetLogger()}
}

var resolveSteps = []resolveStep{
	{ResolvedByID, db.ListingsCollection, byObjectID},
	{ResolvedByStockNumber, db.ListingsCollection, func(d models.CarDetails) bson.M {
		if d.StockNumber == "" {
			return nil
		}
		return bson.M{"$or": bson.A{
			bson.M{"stockNumber": d.StockNumber},
			bson.M{"stock_number": d.StockNumber},
		}}
	}},
	{ResolvedByMakeModel, db.ListingsCollection, func(d models.CarDetails) bson.M {
		if d.Make == "" || d.Model == "" || d.Year == 0 {
			return nil
		}
		return bson.M{
			"make":  d.Make,
			"model": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(d.Model) + "$", Options: "i"},
			// Legacy listings store the year as a string.
			"year": bson.M{"$in": bson.A{d.Year, fmt.Sprint(d.Year)}},
		}
	}},
	{ResolvedByLegacyID, db.VehiclesCollection, func(d models.CarDetails) bson.M {
		if f := byObjectID(d); f != nil {
			return bson.M{"$or": bson.A{f, bson.M{"_id": d.ID}}}
		}
		if d.ID == "" {
			return nil
		}
		return bson.M{"_id": d.ID}
	}},
}

func byObjectID(d models.CarDetails) bson.M {
	oid, err := primitive.ObjectIDFromHex(d.ID)
	if err != nil {
		return nil
	}
	return bson.M{"_id": oid}
}

// Resolve tries id, stock number, make/model/year, then the legacy vehicles
// collection. The first match wins.
func (r *vehicleResolver) Resolve(ctx context.Context, details models.CarDetails) (*ResolvedVehicle, error) {
	for _, step := range resolveSteps {
		filter := step.filter(details)
		if filter == nil {
			continue
		}
		var doc bson.M
		err := r.db.Collection(step.collection).FindOne(ctx, filter).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve vehicle by %s: %w", step.strategy, err)
		}
		utils.VehicleResolutionTotal.WithLabelValues(step.strategy).Inc()
		return &ResolvedVehicle{
			Vehicle:    models.VehicleFromDocument(doc),
			Collection: step.collection,
			Strategy:   step.strategy,
		}, nil
	}
	utils.VehicleResolutionTotal.WithLabelValues(ResolvedNone).Inc()
	r.logger.Info("No source listing matched inquiry snapshot",
		zap.String("carId", details.ID), zap.String("stockNumber", details.StockNumber))
	return nil, nil
}
