package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/api/middleware"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/tasks"
)

// IAsynqClient defines the interface for the Asynq client methods used by the handlers.
// This allows easier mocking than using the concrete asynq.Client.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Stable error codes returned in the "error" field.
const (
	CodeInvalidRequest    = "invalid_request"
	CodeNotFound          = "not_found"
	CodeAlreadyAgreed     = "already_agreed"
	CodeInvalidTransition = "invalid_transition"
	CodeInternal          = "internal_error"
	CodeUnauthorized      = "unauthorized"
)

func respondError(c *gin.Context, status int, message, code string) {
	c.JSON(status, gin.H{"success": false, "message": message, "error": code})
}

// callerID returns the signed-in customer's ID. An empty ID would widen
// customer-scoped queries to every customer, so the request is rejected instead.
func callerID(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.ContextKeyUserID)
	if id == "" {
		respondError(c, http.StatusUnauthorized, "Authentication required", CodeUnauthorized)
		return "", false
	}
	return id, true
}

// respondServiceError maps a service error onto a client response. Anything
// unrecognised is logged in full and reported as a bare 500.
func respondServiceError(c *gin.Context, cfg *config.Config, err error, action string) {
	var notFound *services.InquiryNotFoundError
	var agreed *services.AlreadyAgreedError

	switch {
	case errors.Is(err, services.ErrInvalidPrice),
		errors.Is(err, services.ErrInvalidID),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidListing),
		errors.Is(err, services.ErrInvalidInquiry),
		errors.Is(err, services.ErrInvalidTemplate):
		respondError(c, http.StatusBadRequest, err.Error(), CodeInvalidRequest)

	case errors.As(err, &notFound):
		body := gin.H{"success": false, "message": "Inquiry not found", "error": CodeNotFound}
		if cfg != nil && cfg.DebugErrors {
			body["debug"] = gin.H{"inquiryId": notFound.ID, "collectionsScanned": notFound.Scanned}
		}
		c.JSON(http.StatusNotFound, body)

	case errors.Is(err, services.ErrInquiryNotFound),
		errors.Is(err, services.ErrListingNotFound),
		errors.Is(err, services.ErrAgreedVehicleNotFound),
		errors.Is(err, services.ErrFavoriteNotFound),
		errors.Is(err, services.ErrTemplateNotFound):
		respondError(c, http.StatusNotFound, err.Error(), CodeNotFound)

	case errors.As(err, &agreed):
		c.JSON(http.StatusConflict, gin.H{
			"success":   false,
			"message":   "Inquiry already has an agreed vehicle",
			"error":     CodeAlreadyAgreed,
			"vehicleId": agreed.VehicleID,
		})

	case errors.Is(err, services.ErrAlreadyAgreed), errors.Is(err, services.ErrVehicleAlreadyAgreed):
		respondError(c, http.StatusConflict, err.Error(), CodeAlreadyAgreed)

	case errors.Is(err, services.ErrInvalidTransition):
		respondError(c, http.StatusConflict, err.Error(), CodeInvalidTransition)

	default:
		_ = c.Error(err)
		zap.L().Error("Request failed",
			zap.String("action", action),
			zap.String("route", c.FullPath()),
			zap.String("userId", c.GetString(middleware.ContextKeyUserID)),
			zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to "+action, CodeInternal)
	}
}

// enqueueEmail schedules a templated email. Failures are logged and never fail the request.
func enqueueEmail(ctx context.Context, client IAsynqClient, payload tasks.EmailTaskPayload) {
	if client == nil || payload.To == "" {
		return
	}
	task, err := tasks.NewEmailTask(payload)
	if err == nil {
		_, err = client.EnqueueContext(ctx, task)
	}
	if err != nil {
		zap.L().Warn("Failed to enqueue email",
			zap.String("template", payload.TemplateID), zap.String("to", payload.To), zap.Error(err))
	}
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func queryFloat(c *gin.Context, key string) float64 {
	v, err := strconv.ParseFloat(c.Query(key), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
