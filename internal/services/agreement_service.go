package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/db"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// IAgreementService defines the interface for purchase agreement operations.
type IAgreementService interface {
	AgreePrice(ctx context.Context, inquiryID string, req AgreePriceRequest) (*AgreementResult, error)
	FindAgreedVehicle(ctx context.Context, id string) (*models.AgreedVehicle, error)
	ListAgreedVehicles(ctx context.Context, filter AgreedVehicleFilter) ([]models.AgreedVehicle, error)
	UpdateShipmentStatus(ctx context.Context, id, status string) (*models.AgreedVehicle, error)
	AddDocument(ctx context.Context, id string, doc models.ShippingDocument) (*models.AgreedVehicle, error)
	Reconcile(ctx context.Context) (int, error)
}

// AgreePriceRequest carries the admin's agreement terms.
type AgreePriceRequest struct {
	AgreedPrice       float64
	EstimatedDelivery *time.Time
	Notes             string
}

// AgreementResult is the updated inquiry and the vehicle created for it.
type AgreementResult struct {
	Inquiry models.Inquiry
	Vehicle models.AgreedVehicle
}

// AgreedVehicleFilter narrows ListAgreedVehicles. Zero values match everything.
type AgreedVehicleFilter struct {
	CustomerID string
	Status     string
	Limit      int
}

// Stored inquiry statuses from which an agreement may be made. Legacy documents
// use mixed case or carry no status at all.
var agreeableStatuses = bson.A{
	primitive.Regex{Pattern: "^" + models.InquiryStatusPending + "$", Options: "i"},
	primitive.Regex{Pattern: "^" + models.InquiryStatusAnswered + "$", Options: "i"},
	"",
	nil,
}

// agreementService implements IAgreementService.
type agreementService struct {
	db        *mongo.Database
	cfg       *config.Config
	inquiries IInquiryService
	resolver  IVehicleResolver
	logger    *zap.Logger
	now       func() time.Time
}

// NewAgreementService creates a new AgreementService.
func NewAgreementService(db *mongo.Database, cfg *config.Config, inquiries IInquiryService, resolver IVehicleResolver) IAgreementService {
	return &agreementService{
		db:        db,
		cfg:       cfg,
		inquiries: inquiries,
		resolver:  resolver,
		logger:    utils.GetLogger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AgreePrice converts an inquiry into an agreed vehicle. The vehicle insert and
// the inquiry update are applied together; an inquiry yields at most one vehicle.
func (s *agreementService) AgreePrice(ctx context.Context, inquiryID string, req AgreePriceRequest) (*AgreementResult, error) {
	if req.AgreedPrice <= 0 {
		return nil, ErrInvalidPrice
	}

	located, err := s.inquiries.FindInquiry(ctx, inquiryID)
	if err != nil {
		return nil, err
	}
	inq := located.Inquiry
	if inq.VehicleID != "" || inq.Status == models.InquiryStatusAgreed {
		return nil, &AlreadyAgreedError{InquiryID: inq.ID, VehicleID: inq.VehicleID}
	}
	if !models.CanTransition(inq.Status, models.InquiryStatusAgreed) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, inq.Status, models.InquiryStatusAgreed)
	}

	var source *models.Vehicle
	if inq.CarDetails.IsEmpty() {
		s.logger.Warn("Inquiry has no vehicle snapshot, materializing from defaults", zap.String("inquiryId", inq.ID))
	} else {
		resolved, err := s.resolver.Resolve(ctx, inq.CarDetails)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			source = &resolved.Vehicle
		}
	}

	now := s.now()
	composed := Materialize(MaterializeInput{
		Source:            source,
		Inquiry:           inq,
		AgreedPrice:       req.AgreedPrice,
		EstimatedDelivery: req.EstimatedDelivery,
		Notes:             req.Notes,
		Now:               now,
	})
	vehicle := composed.Vehicle

	// Each attempt is a fresh transaction: a duplicate key aborts the one it happens in.
	err = db.Try(func() error {
		vehicle.ID = primitive.NewObjectID()
		if composed.StockGenerated {
			vehicle.StockNumber = utils.NewStockNumber()
		}
		_, txErr := db.RunInTransaction(ctx, s.db.Client(), s.cfg.MongoTransactions, func(tx context.Context) (interface{}, error) {
			return nil, s.persist(tx, located, &vehicle)
		})
		if txErr != nil && !composed.StockGenerated && db.DuplicateKeyOn(txErr, db.IndexAgreedStockNumber) {
			return fmt.Errorf("%w: stock number %s", ErrVehicleAlreadyAgreed, vehicle.StockNumber)
		}
		return txErr
	})
	if err != nil {
		utils.AgreementsFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}
	utils.AgreementsCreatedTotal.Inc()

	inq.Status = models.InquiryStatusAgreed
	inq.VehicleID = vehicle.ID.Hex()
	inq.AgreedPrice = req.AgreedPrice
	inq.DateAgreed = &now
	inq.UpdatedAt = now

	s.logger.Info("Price agreed",
		zap.String("inquiryId", inq.ID),
		zap.String("collection", located.Collection),
		zap.String("vehicleId", inq.VehicleID),
		zap.String("stockNumber", vehicle.StockNumber),
		zap.Bool("sourceResolved", source != nil),
	)
	return &AgreementResult{Inquiry: inq, Vehicle: vehicle}, nil
}

// persist writes the agreed vehicle and marks the inquiry agreed. Without a
// transaction a failed inquiry update removes the inserted vehicle again.
func (s *agreementService) persist(ctx context.Context, located *LocatedInquiry, vehicle *models.AgreedVehicle) error {
	vehicles := s.db.Collection(db.AgreedVehiclesCollection)

	var existing bson.M
	err := vehicles.FindOne(ctx, bson.M{"inquiryId": vehicle.InquiryID}).Decode(&existing)
	if err == nil {
		return &AlreadyAgreedError{InquiryID: vehicle.InquiryID, VehicleID: models.StringValue(existing["_id"])}
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to check existing agreement: %w", err)
	}

	if _, err := vehicles.InsertOne(ctx, vehicle); err != nil {
		if db.DuplicateKeyOn(err, db.IndexAgreedInquiry) {
			return &AlreadyAgreedError{InquiryID: vehicle.InquiryID}
		}
		return fmt.Errorf("failed to insert agreed vehicle: %w", err)
	}

	update := bson.M{"$set": bson.M{
		"vehicleId":   vehicle.ID.Hex(),
		"status":      models.InquiryStatusAgreed,
		"agreedPrice": vehicle.AgreedPrice,
		"dateAgreed":  vehicle.DateAgreed,
		"updatedAt":   vehicle.UpdatedAt,
	}}
	filter := bson.M{
		"_id":    located.Key,
		"status": bson.M{"$in": agreeableStatuses},
	}
	res, err := s.db.Collection(located.Collection).UpdateOne(ctx, filter, update)
	if err == nil && res.MatchedCount == 0 {
		err = &AlreadyAgreedError{InquiryID: vehicle.InquiryID}
	}
	if err != nil {
		if mongo.SessionFromContext(ctx) == nil {
			if _, delErr := vehicles.DeleteOne(ctx, bson.M{"_id": vehicle.ID}); delErr != nil {
				s.logger.Error("Failed to remove agreed vehicle after inquiry update failure",
					zap.String("vehicleId", vehicle.ID.Hex()), zap.Error(delErr))
			}
		}
		if errors.Is(err, ErrAlreadyAgreed) {
			return err
		}
		return fmt.Errorf("failed to update inquiry %s: %w", vehicle.InquiryID, err)
	}
	return nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyAgreed), errors.Is(err, ErrVehicleAlreadyAgreed):
		return "conflict"
	case db.IsMongoDuplicateKeyError(err):
		return "duplicate_key"
	}
	return "persistence"
}

// FindAgreedVehicle returns an agreed vehicle by id.
func (s *agreementService) FindAgreedVehicle(ctx context.Context, id string) (*models.AgreedVehicle, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	var doc bson.M
	err = s.db.Collection(db.AgreedVehiclesCollection).FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAgreedVehicleNotFound
		}
		return nil, fmt.Errorf("error finding agreed vehicle %s: %w", id, err)
	}
	v := models.AgreedVehicleFromDocument(doc)
	return &v, nil
}

// ListAgreedVehicles returns agreed vehicles, newest first.
func (s *agreementService) ListAgreedVehicles(ctx context.Context, filter AgreedVehicleFilter) ([]models.AgreedVehicle, error) {
	query := bson.M{}
	if filter.CustomerID != "" {
		query["customerId"] = filter.CustomerID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))
	cur, err := s.db.Collection(db.AgreedVehiclesCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list agreed vehicles: %w", err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode agreed vehicles: %w", err)
	}
	vehicles := make([]models.AgreedVehicle, 0, len(docs))
	for _, doc := range docs {
		vehicles = append(vehicles, models.AgreedVehicleFromDocument(doc))
	}
	return vehicles, nil
}

// UpdateShipmentStatus advances an agreed vehicle from agreed to shipped to delivered.
// Delivery completes the originating inquiry.
func (s *agreementService) UpdateShipmentStatus(ctx context.Context, id, status string) (*models.AgreedVehicle, error) {
	v, err := s.FindAgreedVehicle(ctx, id)
	if err != nil {
		return nil, err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !v.CanMoveTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, v.Status, status)
	}
	now := s.now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bson.M
	err = s.db.Collection(db.AgreedVehiclesCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": v.ID, "status": bson.M{"$in": bson.A{v.Status, nil}}},
		bson.M{"$set": bson.M{"status": status, "updatedAt": now}},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: status changed concurrently", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("failed to update agreed vehicle %s: %w", id, err)
	}
	updated := models.AgreedVehicleFromDocument(doc)

	if status == models.AgreedVehicleStatusDelivered {
		if _, err := s.inquiries.UpdateStatus(ctx, updated.InquiryID, models.InquiryStatusCompleted); err != nil {
			s.logger.Warn("Delivered vehicle but could not complete inquiry",
				zap.String("vehicleId", id), zap.String("inquiryId", updated.InquiryID), zap.Error(err))
		}
	}
	return &updated, nil
}

// AddDocument attaches an uploaded shipping document to an agreed vehicle.
func (s *agreementService) AddDocument(ctx context.Context, id string, doc models.ShippingDocument) (*models.AgreedVehicle, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	if doc.Key == "" || doc.Name == "" {
		return nil, fmt.Errorf("%w: document name and key are required", ErrInvalidListing)
	}
	now := s.now()
	doc.UploadedAt = now
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var stored bson.M
	err = s.db.Collection(db.AgreedVehiclesCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"documents": doc}, "$set": bson.M{"updatedAt": now}},
		opts,
	).Decode(&stored)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAgreedVehicleNotFound
		}
		return nil, fmt.Errorf("failed to attach document to %s: %w", id, err)
	}
	updated := models.AgreedVehicleFromDocument(stored)
	return &updated, nil
}

// Reconcile re-applies the inquiry update for agreed vehicles whose inquiry was
// left unmarked, which can happen when writes ran without a transaction.
// It returns the number of inquiries repaired.
func (s *agreementService) Reconcile(ctx context.Context) (int, error) {
	cur, err := s.db.Collection(db.AgreedVehiclesCollection).Find(ctx, bson.M{"status": models.AgreedVehicleStatusAgreed})
	if err != nil {
		return 0, fmt.Errorf("failed to scan agreed vehicles: %w", err)
	}
	defer cur.Close(ctx)

	repaired := 0
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return repaired, fmt.Errorf("failed to decode agreed vehicle: %w", err)
		}
		v := models.AgreedVehicleFromDocument(doc)
		if v.InquiryID == "" {
			continue
		}
		located, err := s.inquiries.FindInquiry(ctx, v.InquiryID)
		if err != nil {
			if errors.Is(err, ErrInquiryNotFound) {
				s.logger.Warn("Agreed vehicle references a missing inquiry",
					zap.String("vehicleId", v.ID.Hex()), zap.String("inquiryId", v.InquiryID))
				continue
			}
			return repaired, err
		}
		inq := located.Inquiry
		if inq.VehicleID == v.ID.Hex() {
			continue
		}
		if inq.VehicleID != "" {
			s.logger.Error("Inquiry points at a different agreed vehicle",
				zap.String("inquiryId", inq.ID), zap.String("vehicleId", v.ID.Hex()), zap.String("inquiryVehicleId", inq.VehicleID))
			continue
		}
		res, err := s.db.Collection(located.Collection).UpdateOne(ctx,
			bson.M{"_id": located.Key, "vehicleId": bson.M{"$in": bson.A{nil, ""}}},
			bson.M{"$set": bson.M{
				"vehicleId":   v.ID.Hex(),
				"status":      models.InquiryStatusAgreed,
				"agreedPrice": v.AgreedPrice,
				"dateAgreed":  v.DateAgreed,
				"updatedAt":   s.now(),
			}},
		)
		if err != nil {
			return repaired, fmt.Errorf("failed to repair inquiry %s: %w", inq.ID, err)
		}
		if res.ModifiedCount > 0 {
			repaired++
			utils.AgreementsReconciledTotal.Inc()
			s.logger.Info("Repaired inquiry left unmarked by an agreement",
				zap.String("inquiryId", inq.ID), zap.String("vehicleId", v.ID.Hex()))
		}
	}
	if err := cur.Err(); err != nil {
		return repaired, fmt.Errorf("cursor error reconciling agreements: %w", err)
	}
	return repaired, nil
}
