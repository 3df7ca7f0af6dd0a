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

// IInquiryService defines the interface for inquiry operations.
type IInquiryService interface {
	FindInquiry(ctx context.Context, id string) (*LocatedInquiry, error)
	CreateInquiry(ctx context.Context, in NewInquiry) (*models.Inquiry, error)
	ListInquiries(ctx context.Context, filter InquiryFilter) ([]models.Inquiry, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Inquiry, error)
}

// LocatedInquiry is an inquiry together with where it is stored.
// Key is the raw _id value, used to address the document for updates.
type LocatedInquiry struct {
	Inquiry    models.Inquiry
	Collection string
	Key        interface{}
}

// NewInquiry is the customer-supplied part of a new inquiry.
type NewInquiry struct {
	CustomerID    string
	CustomerEmail string
	CustomerName  string
	ListingID     string
	Message       string
}

// InquiryFilter narrows ListInquiries. Zero values match everything.
type InquiryFilter struct {
	CustomerID string
	Status     string
	Limit      int
}

// Collections that never hold inquiries and are skipped by the legacy scan.
var nonInquiryCollections = map[string]bool{
	db.ListingsCollection:       true,
	db.VehiclesCollection:       true,
	db.AgreedVehiclesCollection: true,
	db.FavoritesCollection:      true,
	db.EmailTemplatesCollection: true,
}

type inquiryRecord struct {
	ID             primitive.ObjectID `bson:"_id"`
	models.Inquiry `bson:",inline"`
}

// inquiryService implements IInquiryService.
type inquiryService struct {
	db             *mongo.Database
	cfg            *config.Config
	listingService IListingService
	logger         *zap.Logger
}

// NewInquiryService creates a new InquiryService.
func NewInquiryService(db *mongo.Database, cfg *config.Config, listingService IListingService) IInquiryService {
	return &inquiryService{db: db, cfg: cfg, listingService: listingService, logger: utils.GetLogger()}
}

// canonicalCollection is where new inquiries are written.
func (s *inquiryService) canonicalCollection() string {
	return s.cfg.InquiryCollections[0]
}

// candidateCollections returns the collections FindInquiry searches, in order:
// the configured ones, then (with the legacy scan enabled) every other collection
// in server enumeration order.
func (s *inquiryService) candidateCollections(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range s.cfg.InquiryCollections {
		add(name)
	}
	if !s.cfg.InquiryLegacyScan {
		return out, nil
	}
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range names {
		if nonInquiryCollections[name] || strings.HasPrefix(name, "system.") {
			continue
		}
		add(name)
	}
	return out, nil
}

// inquiryFilters are tried in order against each collection.
func inquiryFilters(id string) []bson.M {
	filters := []bson.M{{"_id": id}}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		filters = append(filters, bson.M{"_id": oid})
	}
	return append(filters, bson.M{"inquiryId": id})
}

// FindInquiry locates an inquiry by its string _id, its ObjectId _id or its inquiryId field.
func (s *inquiryService) FindInquiry(ctx context.Context, id string) (*LocatedInquiry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidID
	}
	collections, err := s.candidateCollections(ctx)
	if err != nil {
		return nil, err
	}

	scanned := make([]string, 0, len(collections))
	for _, name := range collections {
		scanned = append(scanned, name)
		coll := s.db.Collection(name)
		for _, filter := range inquiryFilters(id) {
			var doc bson.M
			err := coll.FindOne(ctx, filter).Decode(&doc)
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("failed to look up inquiry %s in %s: %w", id, name, err)
			}
			utils.InquiryLookupCollectionsScanned.Observe(float64(len(scanned)))
			if name != s.canonicalCollection() {
				s.logger.Info("Inquiry found outside canonical collection",
					zap.String("inquiryId", id), zap.String("collection", name))
			}
			return &LocatedInquiry{
				Inquiry:    models.InquiryFromDocument(doc),
				Collection: name,
				Key:        doc["_id"],
			}, nil
		}
	}
	utils.InquiryLookupCollectionsScanned.Observe(float64(len(scanned)))
	return nil, &InquiryNotFoundError{ID: id, Scanned: scanned}
}

// CreateInquiry stores a new pending inquiry with a snapshot of the listing it is about.
func (s *inquiryService) CreateInquiry(ctx context.Context, in NewInquiry) (*models.Inquiry, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidInquiry)
	}
	if in.CustomerID == "" && in.CustomerEmail == "" {
		return nil, fmt.Errorf("%w: customer id or email is required", ErrInvalidInquiry)
	}
	listing, err := s.listingService.FindListing(ctx, in.ListingID, false)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &inquiryRecord{
		Inquiry: models.Inquiry{
			CustomerID:    in.CustomerID,
			CustomerEmail: in.CustomerEmail,
			CustomerName:  in.CustomerName,
			CarDetails: models.CarDetails{
				ID:          listing.ID.Hex(),
				Title:       listing.Title,
				Make:        listing.Make,
				Model:       listing.Model,
				Year:        listing.Year,
				Price:       listing.Price,
				StockNumber: listing.StockNumber,
				Images:      listing.Images,
			},
			Message:   strings.TrimSpace(in.Message),
			Status:    models.InquiryStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	coll := s.db.Collection(s.canonicalCollection())
	err = db.Try(func() error {
		record.ID = primitive.NewObjectID()
		_, insertErr := coll.InsertOne(ctx, record)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert inquiry for listing %s: %w", in.ListingID, err)
	}
	utils.InquiriesCreatedTotal.Inc()

	inq := record.Inquiry
	inq.ID = record.ID.Hex()
	return &inq, nil
}

// ListInquiries returns inquiries from the canonical collection, newest first.
func (s *inquiryService) ListInquiries(ctx context.Context, filter InquiryFilter) ([]models.Inquiry, error) {
	query := bson.M{}
	if filter.CustomerID != "" {
		query["customerId"] = filter.CustomerID
	}
	if filter.Status != "" {
		if !models.IsInquiryStatus(filter.Status) {
			return nil, ErrInvalidStatus
		}
		query["status"] = filter.Status
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit))

	cur, err := s.db.Collection(s.canonicalCollection()).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	defer cur.Close(ctx)

	inquiries := []models.Inquiry{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode inquiry: %w", err)
		}
		inquiries = append(inquiries, models.InquiryFromDocument(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor error listing inquiries: %w", err)
	}
	return inquiries, nil
}

// UpdateStatus moves an inquiry along its lifecycle. The agreed status can only be
// reached through an agreement, never set directly.
func (s *inquiryService) UpdateStatus(ctx context.Context, id, status string) (*models.Inquiry, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if !models.IsInquiryStatus(status) {
		return nil, ErrInvalidStatus
	}
	if status == models.InquiryStatusAgreed {
		return nil, fmt.Errorf("%w: use the agree-price action", ErrInvalidTransition)
	}
	located, err := s.FindInquiry(ctx, id)
	if err != nil {
		return nil, err
	}
	inq := located.Inquiry
	if !models.CanTransition(inq.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, inq.Status, status)
	}

	now := time.Now().UTC()
	res, err := s.db.Collection(located.Collection).UpdateOne(ctx,
		bson.M{"_id": located.Key},
		bson.M{"$set": bson.M{"status": status, "updatedAt": now}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update inquiry %s status: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return nil, &InquiryNotFoundError{ID: id, Scanned: []string{located.Collection}}
	}
	inq.Status = status
	inq.UpdatedAt = now
	return &inq, nil
}
