package handlers

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/api/middleware"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/storage"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/tasks"
)

// AgreementHandler handles price agreements and the agreed vehicles they create.
type AgreementHandler struct {
	cfg              *config.Config
	agreementService services.IAgreementService
	inquiryService   services.IInquiryService
	storageService   storage.IS3Storage
	taskClient       IAsynqClient
}

// NewAgreementHandler creates a new AgreementHandler.
func NewAgreementHandler(
	cfg *config.Config,
	agreementService services.IAgreementService,
	inquiryService services.IInquiryService,
	storageService storage.IS3Storage,
	taskClient IAsynqClient,
) *AgreementHandler {
	return &AgreementHandler{
		cfg:              cfg,
		agreementService: agreementService,
		inquiryService:   inquiryService,
		storageService:   storageService,
		taskClient:       taskClient,
	}
}

type agreePriceBody struct {
	AgreedPrice       json.RawMessage `json:"agreedPrice"`
	EstimatedDelivery *string         `json:"estimatedDelivery"`
	Notes             string          `json:"notes"`
}

// parseAgreedPrice accepts a JSON number or a numeric string.
func parseAgreedPrice(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: agreedPrice is required", services.ErrInvalidPrice)
	}
	var price float64
	if err := json.Unmarshal(raw, &price); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, services.ErrInvalidPrice
		}
		price, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, services.ErrInvalidPrice
		}
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, services.ErrInvalidPrice
	}
	return price, nil
}

// parseDeliveryDate accepts RFC 3339 or a bare YYYY-MM-DD date.
func parseDeliveryDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	s := strings.TrimSpace(*raw)
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("estimatedDelivery must be an ISO date")
}

// AgreePrice handles POST /api/admin/inquiries/:id/agree-price
func (h *AgreementHandler) AgreePrice(c *gin.Context) {
	var body agreePriceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body", CodeInvalidRequest)
		return
	}
	price, err := parseAgreedPrice(body.AgreedPrice)
	if err != nil {
		respondError(c, http.StatusBadRequest, services.ErrInvalidPrice.Error(), CodeInvalidRequest)
		return
	}
	delivery, err := parseDeliveryDate(body.EstimatedDelivery)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error(), CodeInvalidRequest)
		return
	}

	inquiryID := c.Param("id")
	result, err := h.agreementService.AgreePrice(c.Request.Context(), inquiryID, services.AgreePriceRequest{
		AgreedPrice:       price,
		EstimatedDelivery: delivery,
		Notes:             body.Notes,
	})
	if err != nil {
		respondServiceError(c, h.cfg, err, "agree price")
		return
	}

	zap.L().Info("Price agreed",
		zap.String("inquiryId", inquiryID),
		zap.String("vehicleId", result.Vehicle.ID.Hex()),
		zap.String("adminId", c.GetString(middleware.ContextKeyUserID)),
		zap.Float64("agreedPrice", price))

	deliveryNote := ""
	if delivery != nil {
		deliveryNote = fmt.Sprintf(" Estimated delivery: %s.", delivery.Format("2006-01-02"))
	}
	enqueueEmail(c.Request.Context(), h.taskClient, tasks.EmailTaskPayload{
		To:         result.Inquiry.CustomerEmail,
		TemplateID: services.TemplateAgreementConfirmed,
		Data: map[string]interface{}{
			"title":         result.Vehicle.Title,
			"customer":      result.Inquiry.CustomerName,
			"stock_number":  result.Vehicle.StockNumber,
			"agreed_price":  formatPrice(result.Vehicle.AgreedPrice),
			"inquiry_id":    result.Inquiry.ID,
			"delivery_note": deliveryNote,
		},
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Price agreed and vehicle created",
		"inquiry": result.Inquiry,
		"vehicle": result.Vehicle,
	})
}

// ListMyAgreedVehicles handles GET /api/agreed-vehicles
func (h *AgreementHandler) ListMyAgreedVehicles(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}
	vehicles, err := h.agreementService.ListAgreedVehicles(c.Request.Context(), services.AgreedVehicleFilter{
		CustomerID: customerID,
		Limit:      queryInt(c, "limit", 50),
	})
	if err != nil {
		respondServiceError(c, h.cfg, err, "list agreed vehicles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": vehicles})
}

// ListAgreedVehicles handles GET /api/admin/agreed-vehicles
func (h *AgreementHandler) ListAgreedVehicles(c *gin.Context) {
	vehicles, err := h.agreementService.ListAgreedVehicles(c.Request.Context(), services.AgreedVehicleFilter{
		CustomerID: c.Query("customerId"),
		Status:     strings.ToLower(c.Query("status")),
		Limit:      queryInt(c, "limit", 50),
	})
	if err != nil {
		respondServiceError(c, h.cfg, err, "list agreed vehicles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": vehicles})
}

// UpdateShipmentStatus handles PATCH /api/admin/agreed-vehicles/:id/status
func (h *AgreementHandler) UpdateShipmentStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "status is required", CodeInvalidRequest)
		return
	}
	vehicle, err := h.agreementService.UpdateShipmentStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		respondServiceError(c, h.cfg, err, "update shipment status")
		return
	}

	if vehicle.Status == models.AgreedVehicleStatusShipped {
		h.notifyShipped(c, vehicle)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "vehicle": vehicle})
}

func (h *AgreementHandler) notifyShipped(c *gin.Context, vehicle *models.AgreedVehicle) {
	if h.inquiryService == nil || vehicle.InquiryID == "" {
		return
	}
	located, err := h.inquiryService.FindInquiry(c.Request.Context(), vehicle.InquiryID)
	if err != nil {
		zap.L().Warn("Shipped vehicle has no reachable inquiry",
			zap.String("vehicleId", vehicle.ID.Hex()), zap.String("inquiryId", vehicle.InquiryID), zap.Error(err))
		return
	}
	enqueueEmail(c.Request.Context(), h.taskClient, tasks.EmailTaskPayload{
		To:         located.Inquiry.CustomerEmail,
		TemplateID: services.TemplateVehicleShipped,
		Data: map[string]interface{}{
			"title":        vehicle.Title,
			"customer":     located.Inquiry.CustomerName,
			"stock_number": vehicle.StockNumber,
		},
	})
}

type uploadURLBody struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// DocumentUploadURL handles POST /api/admin/agreed-vehicles/:id/documents/upload-url
func (h *AgreementHandler) DocumentUploadURL(c *gin.Context) {
	var body uploadURLBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "filename and contentType are required", CodeInvalidRequest)
		return
	}
	vehicle, err := h.agreementService.FindAgreedVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, h.cfg, err, "prepare document upload")
		return
	}
	uploadURL, key, err := h.storageService.GeneratePresignedPutURL(c.Request.Context(),
		storage.PrefixShippingDocuments, vehicle.ID.Hex(), body.Filename, body.ContentType)
	if err != nil {
		respondServiceError(c, h.cfg, err, "prepare document upload")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"uploadUrl": uploadURL,
		"key":       key,
		"maxSizeMB": h.cfg.DocumentMaxSizeMB,
	})
}

// AttachDocument handles POST /api/admin/agreed-vehicles/:id/documents
func (h *AgreementHandler) AttachDocument(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required"`
		Key  string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "name and key are required", CodeInvalidRequest)
		return
	}
	id := c.Param("id")
	if !strings.HasPrefix(body.Key, storage.PrefixShippingDocuments+"/"+id+"/") {
		respondError(c, http.StatusBadRequest, "key does not belong to this vehicle", CodeInvalidRequest)
		return
	}
	vehicle, err := h.agreementService.AddDocument(c.Request.Context(), id, models.ShippingDocument{
		Name: strings.TrimSpace(body.Name),
		Key:  body.Key,
		URL:  h.storageService.PublicURL(body.Key),
	})
	if err != nil {
		respondServiceError(c, h.cfg, err, "attach document")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "vehicle": vehicle})
}
