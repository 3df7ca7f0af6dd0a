package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
)

// FavoriteHandler serves the customer's favorites dashboard.
type FavoriteHandler struct {
	cfg             *config.Config
	favoriteService services.IFavoriteService
}

// NewFavoriteHandler creates a new FavoriteHandler.
func NewFavoriteHandler(cfg *config.Config, favoriteService services.IFavoriteService) *FavoriteHandler {
	return &FavoriteHandler{cfg: cfg, favoriteService: favoriteService}
}

// ListFavorites handles GET /api/favorites
func (h *FavoriteHandler) ListFavorites(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}
	listings, err := h.favoriteService.ListFavorites(c.Request.Context(), customerID)
	if err != nil {
		respondServiceError(c, h.cfg, err, "list favorites")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": listings})
}

// AddFavorite handles POST /api/favorites/:listingId
func (h *FavoriteHandler) AddFavorite(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}
	fav, err := h.favoriteService.AddFavorite(c.Request.Context(), customerID, c.Param("listingId"))
	if err != nil {
		respondServiceError(c, h.cfg, err, "add favorite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "favorite": fav})
}

// RemoveFavorite handles DELETE /api/favorites/:listingId
func (h *FavoriteHandler) RemoveFavorite(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}
	if err := h.favoriteService.RemoveFavorite(c.Request.Context(), customerID, c.Param("listingId")); err != nil {
		respondServiceError(c, h.cfg, err, "remove favorite")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Favorite removed"})
}
