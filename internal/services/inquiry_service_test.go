package services

import (
	"context"
	"testing"
	"time"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/db"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const legacyInquiryCollection = "contact_requests"

func setupTestDBInquiry(t *testing.T, dbName string) *mongo.Database {
	return utils.SetupTestDB(t, dbName,
		db.InquiriesCollection, legacyInquiryCollection, db.ListingsCollection,
		db.VehiclesCollection, db.AgreedVehiclesCollection)
}

func testInquiryConfig(legacyScan bool) *config.Config {
	return &config.Config{
		InquiryCollections: []string{db.InquiriesCollection},
		InquiryLegacyScan:  legacyScan,
	}
}

func TestInquiryService_FindByObjectIDInLegacyCollection(t *testing.T) {
	database := setupTestDBInquiry(t, "testdb_inquiry_legacy_lookup")
	ctx := context.Background()
	oid := primitive.NewObjectID()
	utils.SeedCollection(t, database, legacyInquiryCollection, bson.M{
		"_id":     oid,
		"userId":  "cust-7",
		"car":     bson.M{"make": "Honda", "model": "Civic", "year": "2018"},
		"message": "Still available?",
		"status":  "Pending",
	})

	scanning := NewInquiryService(database, testInquiryConfig(true), nil)
	located, err := scanning.FindInquiry(ctx, oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, legacyInquiryCollection, located.Collection)
	assert.Equal(t, oid, located.Key)
	assert.Equal(t, "cust-7", located.Inquiry.CustomerID)
	assert.Equal(t, 2018, located.Inquiry.CarDetails.Year)
	assert.Equal(t, models.InquiryStatusPending, located.Inquiry.Status)

	strict := NewInquiryService(database, testInquiryConfig(false), nil)
	_, err = strict.FindInquiry(ctx, oid.Hex())
	assert.ErrorIs(t, err, ErrInquiryNotFound)
	var notFound *InquiryNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{db.InquiriesCollection}, notFound.Scanned)
}

func TestInquiryService_FindByStringIDAndInquiryIDField(t *testing.T) {
	database := setupTestDBInquiry(t, "testdb_inquiry_id_variants")
	ctx := context.Background()
	utils.SeedCollection(t, database, db.InquiriesCollection,
		bson.M{"_id": "inq-string", "message": "a", "carDetails": bson.M{"make": "Kia"}},
		bson.M{"_id": primitive.NewObjectID(), "inquiryId": "INQ-0042", "message": "b", "carDetails": bson.M{"make": "Audi"}},
	)
	svc := NewInquiryService(database, testInquiryConfig(false), nil)

	byString, err := svc.FindInquiry(ctx, "inq-string")
	require.NoError(t, err)
	assert.Equal(t, "Kia", byString.Inquiry.CarDetails.Make)

	byField, err := svc.FindInquiry(ctx, "INQ-0042")
	require.NoError(t, err)
	assert.Equal(t, "Audi", byField.Inquiry.CarDetails.Make)

	_, err = svc.FindInquiry(ctx, "   ")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestInquiryService_LegacyScanSkipsVehicleCollections(t *testing.T) {
	database := setupTestDBInquiry(t, "testdb_inquiry_scan_skips")
	ctx := context.Background()
	utils.SeedCollection(t, database, db.AgreedVehiclesCollection, bson.M{"inquiryId": "inq-x", "make": "Ford"})

	svc := NewInquiryService(database, testInquiryConfig(true), nil)
	_, err := svc.FindInquiry(ctx, "inq-x")
	var notFound *InquiryNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.NotContains(t, notFound.Scanned, db.AgreedVehiclesCollection)
}

func TestInquiryService_CreateListAndUpdateStatus(t *testing.T) {
	database := setupTestDBInquiry(t, "testdb_inquiry_create")
	ctx := context.Background()
	cfg := testInquiryConfig(false)
	listings := NewListingService(database, cfg, nil)
	svc := NewInquiryService(database, cfg, listings)

	listing, err := listings.CreateListing(ctx, testListingInput("", "Mazda", "CX-5", 2018, 19999))
	require.NoError(t, err)

	inq, err := svc.CreateInquiry(ctx, NewInquiry{
		CustomerID: "cust-1",
		ListingID:  listing.Slug,
		Message:    "  Is the price negotiable? ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.InquiryStatusPending, inq.Status)
	assert.Equal(t, "Is the price negotiable?", inq.Message)
	assert.Equal(t, listing.ID.Hex(), inq.CarDetails.ID)
	assert.Equal(t, listing.StockNumber, inq.CarDetails.StockNumber)
	assert.WithinDuration(t, time.Now(), inq.CreatedAt, time.Minute)

	_, err = svc.CreateInquiry(ctx, NewInquiry{CustomerID: "cust-1", ListingID: listing.Slug})
	assert.Error(t, err)

	mine, err := svc.ListInquiries(ctx, InquiryFilter{CustomerID: "cust-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, inq.ID, mine[0].ID)

	answered, err := svc.UpdateStatus(ctx, inq.ID, "Answered")
	require.NoError(t, err)
	assert.Equal(t, models.InquiryStatusAnswered, answered.Status)

	_, err = svc.UpdateStatus(ctx, inq.ID, models.InquiryStatusAgreed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.UpdateStatus(ctx, inq.ID, models.InquiryStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.UpdateStatus(ctx, inq.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.ListInquiries(ctx, InquiryFilter{Status: "archived"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
