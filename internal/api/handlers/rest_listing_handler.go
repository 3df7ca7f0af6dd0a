package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/storage"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/tasks"
)

// RestListingHandler handles REST requests for listings.
type RestListingHandler struct {
	cfg            *config.Config
	listingService services.IListingService
	storageService storage.IS3Storage
	taskClient     IAsynqClient
}

// NewRestListingHandler creates a new RestListingHandler.
func NewRestListingHandler(cfg *config.Config, listingService services.IListingService, storageService storage.IS3Storage, taskClient IAsynqClient) *RestListingHandler {
	return &RestListingHandler{
		cfg:            cfg,
		listingService: listingService,
		storageService: storageService,
		taskClient:     taskClient,
	}
}

// SearchListings handles GET /api/listings
func (h *RestListingHandler) SearchListings(c *gin.Context) {
	q := services.ListingQuery{
		Make:     c.Query("make"),
		Model:    c.Query("model"),
		BodyType: c.Query("bodyType"),
		Section:  c.Query("section"),
		Text:     strings.TrimSpace(c.Query("q")),
		YearMin:  queryInt(c, "yearMin", 0),
		YearMax:  queryInt(c, "yearMax", 0),
		PriceMin: queryFloat(c, "priceMin"),
		PriceMax: queryFloat(c, "priceMax"),
		Limit:    queryInt(c, "limit", 20),
		Page:     queryInt(c, "page", 1),
	}

	listings, total, err := h.listingService.SearchListings(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, h.cfg, err, "search listings")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    listings,
		"total":   total,
		"page":    q.Page,
	})
}

// GetListing handles GET /api/listings/:idOrSlug
func (h *RestListingHandler) GetListing(c *gin.Context) {
	listing, err := h.listingService.FindListing(c.Request.Context(), c.Param("idOrSlug"), false)
	if err != nil {
		respondServiceError(c, h.cfg, err, "retrieve listing")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": listing})
}

type listingBody struct {
	models.VehicleSpec
	Visibility string `json:"visibility"`
	Section    string `json:"section"`
}

// CreateListing handles POST /api/admin/listings
func (h *RestListingHandler) CreateListing(c *gin.Context) {
	var body listingBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", CodeInvalidRequest)
		return
	}
	listing, err := h.listingService.CreateListing(c.Request.Context(), services.ListingInput{
		VehicleSpec: body.VehicleSpec,
		Visibility:  body.Visibility,
		Section:     body.Section,
	})
	if err != nil {
		respondServiceError(c, h.cfg, err, "create listing")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": listing})
}

// UpdateListing handles PUT /api/admin/listings/:id
func (h *RestListingHandler) UpdateListing(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil || len(updates) == 0 {
		respondError(c, http.StatusBadRequest, "Invalid request body", CodeInvalidRequest)
		return
	}
	listing, err := h.listingService.UpdateListing(c.Request.Context(), c.Param("id"), updates)
	if err != nil {
		respondServiceError(c, h.cfg, err, "update listing")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": listing})
}

// HideListing handles DELETE /api/admin/listings/:id. Listings are hidden, never removed.
func (h *RestListingHandler) HideListing(c *gin.Context) {
	if err := h.listingService.SetVisibility(c.Request.Context(), c.Param("id"), models.VisibilityHidden); err != nil {
		respondServiceError(c, h.cfg, err, "hide listing")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Listing hidden"})
}

// ImageUploadURL handles POST /api/admin/listings/:id/images/upload-url
func (h *RestListingHandler) ImageUploadURL(c *gin.Context) {
	var body uploadURLBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "filename and contentType are required", CodeInvalidRequest)
		return
	}
	if !strings.HasPrefix(body.ContentType, "image/") {
		respondError(c, http.StatusBadRequest, "contentType must be an image type", CodeInvalidRequest)
		return
	}
	listing, err := h.listingService.FindListing(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		respondServiceError(c, h.cfg, err, "prepare image upload")
		return
	}
	uploadURL, key, err := h.storageService.GeneratePresignedPutURL(c.Request.Context(),
		storage.PrefixListingImages, listing.ID.Hex(), body.Filename, body.ContentType)
	if err != nil {
		respondServiceError(c, h.cfg, err, "prepare image upload")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"uploadUrl": uploadURL,
		"key":       key,
		"maxSizeMB": h.cfg.ImageMaxSizeMB,
	})
}

// ConfirmImage handles POST /api/admin/listings/:id/images/confirm.
// The image is attached to the listing once the worker has processed it.
func (h *RestListingHandler) ConfirmImage(c *gin.Context) {
	var body struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "key is required", CodeInvalidRequest)
		return
	}
	id := c.Param("id")
	if !strings.HasPrefix(body.Key, storage.PrefixListingImages+"/"+id+"/") {
		respondError(c, http.StatusBadRequest, "key does not belong to this listing", CodeInvalidRequest)
		return
	}

	task, err := tasks.NewImageTask(tasks.ImageTaskPayload{S3Key: body.Key, ListingID: id})
	if err == nil {
		_, err = h.taskClient.EnqueueContext(c.Request.Context(), task)
	}
	if err != nil {
		respondServiceError(c, h.cfg, err, "queue image processing")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Image queued for processing"})
}
