package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/api/middleware"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/tasks"
)

// InquiryHandler handles customer inquiries and their admin workflow.
type InquiryHandler struct {
	cfg            *config.Config
	inquiryService services.IInquiryService
	taskClient     IAsynqClient
}

// NewInquiryHandler creates a new InquiryHandler.
func NewInquiryHandler(cfg *config.Config, inquiryService services.IInquiryService, taskClient IAsynqClient) *InquiryHandler {
	return &InquiryHandler{cfg: cfg, inquiryService: inquiryService, taskClient: taskClient}
}

// CreateInquiry handles POST /api/inquiries. Signed-in customers are identified by
// their token; guests supply an email address.
func (h *InquiryHandler) CreateInquiry(c *gin.Context) {
	var body struct {
		ListingID string `json:"listingId" binding:"required"`
		Message   string `json:"message" binding:"required"`
		Name      string `json:"name"`
		Email     string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "listingId and message are required", CodeInvalidRequest)
		return
	}

	email := c.GetString(middleware.ContextKeyUserEmail)
	if email == "" {
		email = strings.TrimSpace(body.Email)
	}
	inq, err := h.inquiryService.CreateInquiry(c.Request.Context(), services.NewInquiry{
		CustomerID:    c.GetString(middleware.ContextKeyUserID),
		CustomerEmail: email,
		CustomerName:  strings.TrimSpace(body.Name),
		ListingID:     body.ListingID,
		Message:       body.Message,
	})
	if err != nil {
		respondServiceError(c, h.cfg, err, "create inquiry")
		return
	}

	enqueueEmail(c.Request.Context(), h.taskClient, tasks.EmailTaskPayload{
		To:         h.cfg.AdminNotifyEmail,
		TemplateID: services.TemplateNewInquiry,
		Data: map[string]interface{}{
			"title":        inq.CarDetails.Title,
			"customer":     firstNonEmpty(inq.CustomerName, inq.CustomerEmail, inq.CustomerID),
			"stock_number": inq.CarDetails.StockNumber,
			"message":      inq.Message,
			"inquiry_id":   inq.ID,
		},
	})

	c.JSON(http.StatusCreated, gin.H{"success": true, "inquiry": inq})
}

// ListMyInquiries handles GET /api/inquiries
func (h *InquiryHandler) ListMyInquiries(c *gin.Context) {
	customerID, ok := callerID(c)
	if !ok {
		return
	}
	inquiries, err := h.inquiryService.ListInquiries(c.Request.Context(), services.InquiryFilter{
		CustomerID: customerID,
		Limit:      queryInt(c, "limit", 50),
	})
	if err != nil {
		respondServiceError(c, h.cfg, err, "list inquiries")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": inquiries})
}

// ListInquiries handles GET /api/admin/inquiries
func (h *InquiryHandler) ListInquiries(c *gin.Context) {
	inquiries, err := h.inquiryService.ListInquiries(c.Request.Context(), services.InquiryFilter{
		CustomerID: c.Query("customerId"),
		Status:     strings.ToLower(c.Query("status")),
		Limit:      queryInt(c, "limit", 50),
	})
	if err != nil {
		respondServiceError(c, h.cfg, err, "list inquiries")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": inquiries})
}

// UpdateStatus handles PATCH /api/admin/inquiries/:id/status
func (h *InquiryHandler) UpdateStatus(c *gin.Context) {
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "status is required", CodeInvalidRequest)
		return
	}
	inq, err := h.inquiryService.UpdateStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		respondServiceError(c, h.cfg, err, "update inquiry status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "inquiry": inq})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
