package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/api/middleware"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
)

// EmailTemplateHandler lets admins override the notification texts.
type EmailTemplateHandler struct {
	cfg             *config.Config
	templateService services.IEmailTemplateService
}

// NewEmailTemplateHandler creates a new EmailTemplateHandler.
func NewEmailTemplateHandler(cfg *config.Config, templateService services.IEmailTemplateService) *EmailTemplateHandler {
	return &EmailTemplateHandler{cfg: cfg, templateService: templateService}
}

func templateLocale(c *gin.Context) string {
	if locale := strings.TrimSpace(c.Query("locale")); locale != "" {
		return locale
	}
	return services.DefaultTemplateLocale
}

// GetTemplate handles GET /api/admin/email-templates/:templateId
func (h *EmailTemplateHandler) GetTemplate(c *gin.Context) {
	tmpl, err := h.templateService.GetTemplate(c.Request.Context(), c.Param("templateId"), templateLocale(c))
	if err != nil {
		respondServiceError(c, h.cfg, err, "load email template")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "template": tmpl})
}

// SaveTemplate handles PUT /api/admin/email-templates/:templateId
func (h *EmailTemplateHandler) SaveTemplate(c *gin.Context) {
	var body struct {
		Locale  string `json:"locale"`
		Subject string `json:"subject" binding:"required"`
		Body    string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "subject and body are required", CodeInvalidRequest)
		return
	}
	locale := strings.TrimSpace(body.Locale)
	if locale == "" {
		locale = templateLocale(c)
	}
	tmpl := &models.EmailTemplate{
		TemplateID: c.Param("templateId"),
		Locale:     locale,
		Subject:    body.Subject,
		Body:       body.Body,
	}
	if err := h.templateService.SaveTemplate(c.Request.Context(), tmpl); err != nil {
		respondServiceError(c, h.cfg, err, "save email template")
		return
	}
	zap.L().Info("Email template saved",
		zap.String("template", tmpl.TemplateID),
		zap.String("locale", tmpl.Locale),
		zap.String("adminId", c.GetString(middleware.ContextKeyUserID)))
	c.JSON(http.StatusOK, gin.H{"success": true, "template": tmpl})
}

// DeleteTemplate handles DELETE /api/admin/email-templates/:templateId
func (h *EmailTemplateHandler) DeleteTemplate(c *gin.Context) {
	templateID, locale := c.Param("templateId"), templateLocale(c)
	if err := h.templateService.DeleteTemplate(c.Request.Context(), templateID, locale); err != nil {
		respondServiceError(c, h.cfg, err, "delete email template")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Template reset to default"})
}
