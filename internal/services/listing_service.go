package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/cache"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/db"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/utils"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// IListingService defines the interface for listing-related operations.
type IListingService interface {
	CreateListing(ctx context.Context, in ListingInput) (*models.Vehicle, error)
	FindListing(ctx context.Context, idOrSlug string, includeHidden bool) (*models.Vehicle, error)
	UpdateListing(ctx context.Context, listingID string, updates map[string]interface{}) (*models.Vehicle, error)
	SetVisibility(ctx context.Context, listingID, visibility string) error
	SearchListings(ctx context.Context, q ListingQuery) ([]models.Vehicle, int64, error)
	AddImageToListing(ctx context.Context, listingID, imageURL string) error
}

// ListingInput is the admin form for a new listing.
type ListingInput struct {
	models.VehicleSpec
	Visibility string
	Section    string
}

// ListingQuery holds the public browse filters. Zero values are ignored.
type ListingQuery struct {
	Make     string
	Model    string
	BodyType string
	Section  string
	Text     string
	YearMin  int
	YearMax  int
	PriceMin float64
	PriceMax float64
	Limit    int
	Page     int
}

const maxListingPageSize = 100

// Fields an admin may change through UpdateListing, by stored name.
var updatableListingFields = map[string]bool{
	"title": true, "slug": true, "make": true, "model": true, "year": true, "price": true,
	"mileage": true, "mileageUnit": true, "itemCondition": true, "transmission": true,
	"fuelType": true, "engineSize": true, "bodyType": true, "color": true, "drive": true,
	"doors": true, "seats": true, "vin": true, "stockNumber": true, "description": true,
	"location": true, "features": true, "images": true, "section": true,
}

// listingService implements IListingService.
type listingService struct {
	db     *mongo.Database
	cfg    *config.Config
	cache  *cache.JSONCache[models.Vehicle]
	logger *zap.Logger
}

// NewListingService creates a new ListingService. rdb may be nil, which disables the detail cache.
func NewListingService(db *mongo.Database, cfg *config.Config, rdb *redis.Client) IListingService {
	return &listingService{
		db:     db,
		cfg:    cfg,
		cache:  cache.NewJSONCache[models.Vehicle](rdb, "listing", cfg.GetCacheTTL),
		logger: utils.GetLogger(),
	}
}

// CreateListing creates a new listing document.
func (s *listingService) CreateListing(ctx context.Context, in ListingInput) (*models.Vehicle, error) {
	if strings.TrimSpace(in.Make) == "" || strings.TrimSpace(in.Model) == "" {
		return nil, fmt.Errorf("%w: make and model are required", ErrInvalidListing)
	}
	if in.Price < 0 || in.Year < 0 {
		return nil, fmt.Errorf("%w: price and year cannot be negative", ErrInvalidListing)
	}
	collection := s.db.Collection(db.ListingsCollection)
	now := time.Now().UTC()

	v := &models.Vehicle{
		VehicleSpec: in.VehicleSpec,
		Visibility:  in.Visibility,
		Section:     in.Section,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if v.Title == "" {
		v.Title = DefaultTitle(v.Year, v.Make, v.Model)
	}
	if v.MileageUnit == "" {
		v.MileageUnit = models.DefaultMileageUnit
	}
	if v.ItemCondition == "" {
		v.ItemCondition = models.DefaultItemCondition
	}
	if v.Visibility != models.VisibilityHidden {
		v.Visibility = models.VisibilityPublic
	}
	v.Images = models.NormalizeImages(v.Images)
	generateStock := v.StockNumber == ""

	err := db.Try(func() error {
		v.ID = primitive.NewObjectID()
		if generateStock {
			v.StockNumber = utils.NewStockNumber()
		}
		v.Slug = Slugify(v.Title)
		taken, err := collection.CountDocuments(ctx, bson.M{"slug": v.Slug})
		if err != nil {
			return err
		}
		if taken > 0 {
			hex := v.ID.Hex()
			v.Slug = v.Slug + "-" + hex[len(hex)-6:]
		}
		_, err = collection.InsertOne(ctx, v)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert new listing %q: %w", v.Title, err)
	}
	return v, nil
}

// FindListing finds a listing by ObjectId hex or slug. Hidden listings are only
// returned when includeHidden is set.
func (s *listingService) FindListing(ctx context.Context, idOrSlug string, includeHidden bool) (*models.Vehicle, error) {
	idOrSlug = strings.TrimSpace(idOrSlug)
	if idOrSlug == "" {
		return nil, ErrListingNotFound
	}
	if !includeHidden {
		if cached, ok := s.cache.Get(ctx, idOrSlug); ok {
			return cached, nil
		}
	}

	filter := bson.M{"slug": idOrSlug}
	if oid, err := primitive.ObjectIDFromHex(idOrSlug); err == nil {
		filter = bson.M{"_id": oid}
	}
	if !includeHidden {
		filter["visibility"] = bson.M{"$ne": models.VisibilityHidden}
	}

	var doc bson.M
	err := s.db.Collection(db.ListingsCollection).FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("error finding listing %s: %w", idOrSlug, err)
	}
	v := models.VehicleFromDocument(doc)
	if !includeHidden {
		s.cache.Set(ctx, &v, idOrSlug)
	}
	return &v, nil
}

// UpdateListing applies admin edits. updates is keyed by stored field name.
func (s *listingService) UpdateListing(ctx context.Context, listingID string, updates map[string]interface{}) (*models.Vehicle, error) {
	oid, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return nil, ErrInvalidID
	}
	set := bson.M{}
	for key, value := range updates {
		if !updatableListingFields[key] {
			return nil, fmt.Errorf("%w: field '%s' cannot be updated", ErrInvalidListing, key)
		}
		set[key] = coerceListingField(key, value)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("%w: no fields provided for update", ErrInvalidListing)
	}
	if title, ok := set["title"].(string); ok {
		if _, explicit := set["slug"]; !explicit {
			set["slug"] = Slugify(title)
		}
	}
	set["updatedAt"] = time.Now().UTC()
	// Drop the entry under the old slug before it changes.
	s.invalidateByID(ctx, oid)

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bson.M
	err = s.db.Collection(db.ListingsCollection).FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to update listing %s: %w", listingID, err)
	}
	v := models.VehicleFromDocument(doc)
	s.cache.Invalidate(ctx, listingID, v.Slug)
	return &v, nil
}

// coerceListingField stores form values in their canonical types.
func coerceListingField(key string, value interface{}) interface{} {
	switch key {
	case "year", "doors", "seats":
		return models.IntValue(value)
	case "price", "mileage":
		return models.FloatValue(value)
	case "images":
		return models.NormalizeImages(value)
	case "features":
		return models.VehicleFromDocument(bson.M{"features": value}).Features
	}
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return value
}

// SetVisibility hides or republishes a listing. Listings are never hard-deleted.
func (s *listingService) SetVisibility(ctx context.Context, listingID, visibility string) error {
	if visibility != models.VisibilityPublic && visibility != models.VisibilityHidden {
		return fmt.Errorf("%w: visibility must be public or hidden", ErrInvalidListing)
	}
	oid, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return ErrInvalidID
	}
	coll := s.db.Collection(db.ListingsCollection)
	result, err := coll.UpdateOne(ctx, bson.M{"_id": oid},
		bson.M{"$set": bson.M{"visibility": visibility, "updatedAt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("db error updating listing %s visibility: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		return ErrListingNotFound
	}
	s.invalidateByID(ctx, oid)
	return nil
}

// SearchListings returns a page of visible listings, newest first, and the total match count.
func (s *listingService) SearchListings(ctx context.Context, q ListingQuery) ([]models.Vehicle, int64, error) {
	filter := bson.M{"visibility": bson.M{"$ne": models.VisibilityHidden}}

	if q.Make != "" {
		filter["make"] = exactInsensitive(q.Make)
	}
	if q.Model != "" {
		filter["model"] = exactInsensitive(q.Model)
	}
	if q.BodyType != "" {
		filter["bodyType"] = exactInsensitive(q.BodyType)
	}
	if q.Section != "" {
		filter["section"] = q.Section
	}
	if q.Text != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Text), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"make": pattern},
			bson.M{"model": pattern},
			bson.M{"stockNumber": pattern},
		}
	}
	if r := numberRange(float64(q.YearMin), float64(q.YearMax)); r != nil {
		filter["year"] = r
	}
	if r := numberRange(q.PriceMin, q.PriceMax); r != nil {
		filter["price"] = r
	}

	limit := q.Limit
	if limit <= 0 || limit > maxListingPageSize {
		limit = 20
	}
	page := q.Page
	if page < 1 {
		page = 1
	}

	collection := s.db.Collection(db.ListingsCollection)
	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search listings: %w", err)
	}
	defer cur.Close(ctx)

	listings := []models.Vehicle{}
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("failed to decode listing: %w", err)
		}
		listings = append(listings, models.VehicleFromDocument(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, 0, fmt.Errorf("cursor error searching listings: %w", err)
	}
	return listings, total, nil
}

// AddImageToListing appends a processed image to a listing.
func (s *listingService) AddImageToListing(ctx context.Context, listingID, imageURL string) error {
	oid, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return ErrInvalidID
	}
	update := bson.M{
		"$push": bson.M{"images": models.Image{Image: imageURL}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	result, err := s.db.Collection(db.ListingsCollection).UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to add image to listing %s: %w", listingID, err)
	}
	if result.MatchedCount == 0 {
		return ErrListingNotFound
	}
	s.invalidateByID(ctx, oid)
	return nil
}

func exactInsensitive(v string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(strings.TrimSpace(v)) + "$", Options: "i"}
}

func numberRange(lo, hi float64) bson.M {
	r := bson.M{}
	if lo > 0 {
		r["$gte"] = lo
	}
	if hi > 0 {
		r["$lte"] = hi
	}
	if len(r) == 0 {
		return nil
	}
	return r
}

// invalidateByID drops both cache entries (by id and by slug) of a listing.
func (s *listingService) invalidateByID(ctx context.Context, oid primitive.ObjectID) {
	if !s.cache.Enabled() {
		return
	}
	var doc bson.M
	opts := options.FindOne().SetProjection(bson.M{"slug": 1})
	if err := s.db.Collection(db.ListingsCollection).FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		s.cache.Invalidate(ctx, oid.Hex())
		return
	}
	s.cache.Invalidate(ctx, oid.Hex(), models.StringValue(doc["slug"]))
}
