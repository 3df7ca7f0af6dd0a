package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/api/handlers"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
)

func newFavoriteRouter(favorites *MockFavoriteService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewFavoriteHandler(&config.Config{}, favorites)
	r := gin.New()
	g := r.Group("/api/favorites", asCustomer("cust-1"))
	g.GET("", h.ListFavorites)
	g.POST("/:listingId", h.AddFavorite)
	g.DELETE("/:listingId", h.RemoveFavorite)
	return r
}

func TestFavoriteHandler_Lifecycle(t *testing.T) {
	favorites := new(MockFavoriteService)
	r := newFavoriteRouter(favorites)

	favorites.On("AddFavorite", mock.Anything, "cust-1", "listing-1").
		Return(&models.Favorite{CustomerID: "cust-1", ListingID: "listing-1"}, nil)
	favorites.On("ListFavorites", mock.Anything, "cust-1").
		Return([]models.Vehicle{{VehicleSpec: models.VehicleSpec{Title: "Supra"}}}, nil)
	favorites.On("RemoveFavorite", mock.Anything, "cust-1", "listing-1").Return(nil)

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodPost, "/api/favorites/listing-1", nil).Code)

	w := doJSON(r, http.MethodGet, "/api/favorites", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"], 1)

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodDelete, "/api/favorites/listing-1", nil).Code)
	favorites.AssertExpectations(t)
}

func TestFavoriteHandler_NotFound(t *testing.T) {
	favorites := new(MockFavoriteService)
	r := newFavoriteRouter(favorites)
	favorites.On("RemoveFavorite", mock.Anything, "cust-1", "missing").Return(services.ErrFavoriteNotFound)
	favorites.On("AddFavorite", mock.Anything, "cust-1", "hidden").Return(nil, services.ErrListingNotFound)

	w := doJSON(r, http.MethodDelete, "/api/favorites/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, handlers.CodeNotFound, decodeBody(t, w)["error"])

	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodPost, "/api/favorites/hidden", nil).Code)
}
