package services

import (
	"context"
	"testing"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/db"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupTestDBListing(t *testing.T, dbName string) *mongo.Database {
	return utils.SetupTestDB(t, dbName, db.ListingsCollection)
}

func testListingInput(title, brand, model string, year int, price float64) ListingInput {
	return ListingInput{VehicleSpec: models.VehicleSpec{
		Title: title, Make: brand, Model: model, Year: year, Price: price,
	}}
}

func TestListingService_CRUD(t *testing.T) {
	database := setupTestDBListing(t, "testdb_listing_service_crud")
	svc := NewListingService(database, &config.Config{}, nil)
	ctx := context.Background()

	listing, err := svc.CreateListing(ctx, testListingInput("", "Toyota", "Supra", 2020, 52000))
	require.NoError(t, err)
	assert.Equal(t, "2020 Toyota Supra", listing.Title)
	assert.Equal(t, "2020-toyota-supra", listing.Slug)
	assert.Equal(t, models.VisibilityPublic, listing.Visibility)
	assert.Equal(t, models.DefaultMileageUnit, listing.MileageUnit)
	assert.NotEmpty(t, listing.StockNumber)

	found, err := svc.FindListing(ctx, listing.ID.Hex(), false)
	require.NoError(t, err)
	assert.Equal(t, listing.ID, found.ID)

	bySlug, err := svc.FindListing(ctx, "2020-toyota-supra", false)
	require.NoError(t, err)
	assert.Equal(t, listing.ID, bySlug.ID)

	updated, err := svc.UpdateListing(ctx, listing.ID.Hex(), map[string]interface{}{
		"title": "2020 Toyota GR Supra",
		"price": "49,500",
	})
	require.NoError(t, err)
	assert.Equal(t, "2020-toyota-gr-supra", updated.Slug)
	assert.Equal(t, 49500.0, updated.Price)

	_, err = svc.UpdateListing(ctx, listing.ID.Hex(), map[string]interface{}{"visibility": "hidden"})
	assert.ErrorIs(t, err, ErrInvalidListing)

	require.NoError(t, svc.SetVisibility(ctx, listing.ID.Hex(), models.VisibilityHidden))
	_, err = svc.FindListing(ctx, listing.ID.Hex(), false)
	assert.ErrorIs(t, err, ErrListingNotFound)
	hidden, err := svc.FindListing(ctx, listing.ID.Hex(), true)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityHidden, hidden.Visibility)

	require.NoError(t, svc.AddImageToListing(ctx, listing.ID.Hex(), "https://cdn.example.com/a.jpg"))
	withImage, err := svc.FindListing(ctx, listing.ID.Hex(), true)
	require.NoError(t, err)
	assert.Equal(t, []models.Image{{Image: "https://cdn.example.com/a.jpg"}}, withImage.Images)
}

func TestListingService_CreateRejectsInvalid(t *testing.T) {
	database := setupTestDBListing(t, "testdb_listing_service_invalid")
	svc := NewListingService(database, &config.Config{}, nil)

	_, err := svc.CreateListing(context.Background(), testListingInput("x", "", "Civic", 2019, 1))
	assert.ErrorIs(t, err, ErrInvalidListing)
	_, err = svc.CreateListing(context.Background(), testListingInput("x", "Honda", "Civic", 2019, -1))
	assert.ErrorIs(t, err, ErrInvalidListing)
}

func TestListingService_DuplicateTitleGetsDistinctSlug(t *testing.T) {
	database := setupTestDBListing(t, "testdb_listing_service_slug")
	svc := NewListingService(database, &config.Config{}, nil)
	ctx := context.Background()

	a, err := svc.CreateListing(ctx, testListingInput("Clean Civic", "Honda", "Civic", 2019, 9000))
	require.NoError(t, err)
	b, err := svc.CreateListing(ctx, testListingInput("Clean Civic", "Honda", "Civic", 2019, 9500))
	require.NoError(t, err)
	assert.Equal(t, "clean-civic", a.Slug)
	assert.NotEqual(t, a.Slug, b.Slug)
}

func TestListingService_SearchListings(t *testing.T) {
	database := setupTestDBListing(t, "testdb_listing_service_search")
	svc := NewListingService(database, &config.Config{}, nil)
	ctx := context.Background()

	_, err := svc.CreateListing(ctx, testListingInput("", "Toyota", "Corolla", 2015, 8000))
	require.NoError(t, err)
	_, err = svc.CreateListing(ctx, testListingInput("", "Toyota", "Camry", 2021, 24000))
	require.NoError(t, err)
	hidden, err := svc.CreateListing(ctx, testListingInput("", "Toyota", "Yaris", 2020, 12000))
	require.NoError(t, err)
	require.NoError(t, svc.SetVisibility(ctx, hidden.ID.Hex(), models.VisibilityHidden))

	all, total, err := svc.SearchListings(ctx, ListingQuery{Make: "toyota"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, all, 2)

	recent, total, err := svc.SearchListings(ctx, ListingQuery{YearMin: 2018, PriceMax: 30000})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, recent, 1)
	assert.Equal(t, "Camry", recent[0].Model)

	text, _, err := svc.SearchListings(ctx, ListingQuery{Text: "coro"})
	require.NoError(t, err)
	require.Len(t, text, 1)
	assert.Equal(t, "Corolla", text[0].Model)

	page2, total, err := svc.SearchListings(ctx, ListingQuery{Limit: 1, Page: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, page2, 1)
	assert.Equal(t, "Corolla", page2[0].Model)
}
