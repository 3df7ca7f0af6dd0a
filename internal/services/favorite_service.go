package services

import (
	"context"
	"fmt"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/db"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// IFavoriteService manages the listings a customer has bookmarked.
type IFavoriteService interface {
	AddFavorite(ctx context.Context, customerID, listingID string) (*models.Favorite, error)
	RemoveFavorite(ctx context.Context, customerID, listingID string) error
	ListFavorites(ctx context.Context, customerID string) ([]models.Vehicle, error)
}

// favoriteService implements IFavoriteService.
type favoriteService struct {
	db             *mongo.Database
	listingService IListingService
}

// NewFavoriteService creates a new FavoriteService.
func NewFavoriteService(db *mongo.Database, listingService IListingService) IFavoriteService {
	return &favoriteService{db: db, listingService: listingService}
}

// AddFavorite bookmarks a visible listing. Adding an existing favorite returns it unchanged.
func (s *favoriteService) AddFavorite(ctx context.Context, customerID, listingID string) (*models.Favorite, error) {
	listing, err := s.listingService.FindListing(ctx, listingID, false)
	if err != nil {
		return nil, err
	}
	coll := s.db.Collection(db.FavoritesCollection)
	filter := bson.M{"customerId": customerID, "listingId": listing.ID.Hex()}

	var existing models.Favorite
	if err := coll.FindOne(ctx, filter).Decode(&existing); err == nil {
		return &existing, nil
	}

	fav, err := db.InsertOne(ctx, coll, &models.Favorite{
		CustomerID: customerID,
		ListingID:  listing.ID.Hex(),
	})
	if err != nil {
		// A concurrent add won the unique (customerId, listingId) index.
		if db.IsMongoDuplicateKeyError(err) {
			if err := coll.FindOne(ctx, filter).Decode(&existing); err == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return fav, nil
}

// RemoveFavorite deletes a bookmark.
func (s *favoriteService) RemoveFavorite(ctx context.Context, customerID, listingID string) error {
	res, err := s.db.Collection(db.FavoritesCollection).DeleteOne(ctx, bson.M{"customerId": customerID, "listingId": listingID})
	if err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrFavoriteNotFound
	}
	return nil
}

// ListFavorites returns the customer's bookmarked listings that are still visible, newest bookmark first.
func (s *favoriteService) ListFavorites(ctx context.Context, customerID string) ([]models.Vehicle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.db.Collection(db.FavoritesCollection).Find(ctx, bson.M{"customerId": customerID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	var favs []models.Favorite
	if err := cur.All(ctx, &favs); err != nil {
		return nil, fmt.Errorf("failed to decode favorites: %w", err)
	}

	listings := make([]models.Vehicle, 0, len(favs))
	for _, f := range favs {
		v, err := s.listingService.FindListing(ctx, f.ListingID, false)
		if err != nil {
			if err == ErrListingNotFound {
				continue
			}
			return nil, err
		}
		listings = append(listings, *v)
	}
	return listings, nil
}
