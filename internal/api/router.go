package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/api/handlers"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/api/middleware"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/captcha"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/email"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/storage"
)

// Services bundles the service layer shared by the HTTP API and the workers.
type Services struct {
	Listings       services.IListingService
	Inquiries      services.IInquiryService
	Agreements     services.IAgreementService
	Favorites      services.IFavoriteService
	EmailTemplates services.IEmailTemplateService
	Storage        storage.IS3Storage
}

// NewServices wires the service layer.
func NewServices(cfg *config.Config, db *mongo.Database, rdb *redis.Client, storageService storage.IS3Storage) *Services {
	listings := services.NewListingService(db, cfg, rdb)
	inquiries := services.NewInquiryService(db, cfg, listings)
	return &Services{
		Listings:       listings,
		Inquiries:      inquiries,
		Agreements:     services.NewAgreementService(db, cfg, inquiries, services.NewVehicleResolver(db)),
		Favorites:      services.NewFavoriteService(db, listings),
		EmailTemplates: services.NewEmailTemplateService(db),
		Storage:        storageService,
	}
}

// routeLimits tightens the buckets on endpoints that write or notify.
var routeLimits = map[string]middleware.RouteLimit{
	"POST /api/inquiries":                       {SoftRate: 1, SoftBurst: 2, HardRate: 1, HardBurst: 4},
	"POST /api/admin/inquiries/:id/agree-price": {SoftRate: 2, SoftBurst: 5, HardRate: 2, HardBurst: 10},
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, svc *Services, taskClient handlers.IAsynqClient, verifier captcha.ITurnstileVerifier) *gin.Engine {
	r := gin.New()

	// Order matters: auth populates the user before captcha and rate limiting read it.
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(zap.L()))
	r.Use(middleware.PrometheusMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.CorsOrigin))
	r.Use(middleware.OptionalAuthMiddleware(cfg.JwtSecret))
	r.Use(middleware.CaptchaMiddleware(cfg, verifier))
	r.Use(middleware.NewRateLimiterMiddleware(cfg, routeLimits).Limit())

	listingHandler := handlers.NewRestListingHandler(cfg, svc.Listings, svc.Storage, taskClient)
	inquiryHandler := handlers.NewInquiryHandler(cfg, svc.Inquiries, taskClient)
	favoriteHandler := handlers.NewFavoriteHandler(cfg, svc.Favorites)
	agreementHandler := handlers.NewAgreementHandler(cfg, svc.Agreements, svc.Inquiries, svc.Storage, taskClient)
	templateHandler := handlers.NewEmailTemplateHandler(cfg, svc.EmailTemplates)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Public Routes
		apiGroup.GET("/listings", listingHandler.SearchListings)
		apiGroup.GET("/listings/:idOrSlug", listingHandler.GetListing)
		apiGroup.POST("/inquiries", middleware.RequireHumanForGuests(), inquiryHandler.CreateInquiry)

		// Authenticated Routes
		authRequired := apiGroup.Group("")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/inquiries", inquiryHandler.ListMyInquiries)
			authRequired.GET("/favorites", favoriteHandler.ListFavorites)
			authRequired.POST("/favorites/:listingId", favoriteHandler.AddFavorite)
			authRequired.DELETE("/favorites/:listingId", favoriteHandler.RemoveFavorite)
			authRequired.GET("/agreed-vehicles", agreementHandler.ListMyAgreedVehicles)
		}

		// Admin Routes
		adminRequired := apiGroup.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.POST("/listings", listingHandler.CreateListing)
			adminRequired.PUT("/listings/:id", listingHandler.UpdateListing)
			adminRequired.DELETE("/listings/:id", listingHandler.HideListing)
			adminRequired.POST("/listings/:id/images/upload-url", listingHandler.ImageUploadURL)
			adminRequired.POST("/listings/:id/images/confirm", listingHandler.ConfirmImage)

			adminRequired.GET("/inquiries", inquiryHandler.ListInquiries)
			adminRequired.PATCH("/inquiries/:id/status", inquiryHandler.UpdateStatus)
			adminRequired.POST("/inquiries/:id/agree-price", agreementHandler.AgreePrice)

			adminRequired.GET("/agreed-vehicles", agreementHandler.ListAgreedVehicles)
			adminRequired.PATCH("/agreed-vehicles/:id/status", agreementHandler.UpdateShipmentStatus)
			adminRequired.POST("/agreed-vehicles/:id/documents/upload-url", agreementHandler.DocumentUploadURL)
			adminRequired.POST("/agreed-vehicles/:id/documents", agreementHandler.AttachDocument)

			adminRequired.GET("/email-templates/:templateId", templateHandler.GetTemplate)
			adminRequired.PUT("/email-templates/:templateId", templateHandler.SaveTemplate)
			adminRequired.DELETE("/email-templates/:templateId", templateHandler.DeleteTemplate)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found", "error": handlers.CodeNotFound})
	})

	return r
}

// SetupServiceRouter configures the internal service API: shutdown, captured test
// emails and Prometheus metrics. It must not be exposed publicly.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(zap.L()))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			zap.L().Info("Received shutdown command via service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				zap.L().Debug("Shutdown already signaled")
			}

		case "getTestEmail":
			var args []string // [templateID, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateId, email]"})
				return
			}
			emailData, err := waitForTestEmail(c.Request.Context(), rdb, email.MockEmailKey(args[1], args[0]))
			if errors.Is(err, redis.Nil) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for %s", args[1])})
				return
			}
			if err != nil {
				zap.L().Error("Service API: reading test email failed", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to read test email"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// waitForTestEmail polls Redis briefly for a captured email and deletes it once read.
// It returns redis.Nil when nothing arrives in time.
func waitForTestEmail(ctx context.Context, rdb *redis.Client, key string) (map[string]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	for i := 0; i < 10; i++ {
		raw, err := rdb.GetDel(ctx, key).Result()
		if err == nil {
			var data map[string]interface{}
			if err := json.Unmarshal([]byte(raw), &data); err != nil {
				return nil, fmt.Errorf("failed to parse stored email %s: %w", key, err)
			}
			return data, nil
		}
		if !errors.Is(err, redis.Nil) {
			return nil, err
		}
		time.Sleep(200 * time.Millisecond)
	}
	return nil, redis.Nil
}
