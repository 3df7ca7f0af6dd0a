package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/db"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Template IDs used by the application.
const (
	TemplateNewInquiry         = "new_inquiry"
	TemplateAgreementConfirmed = "agreement_confirmed"
	TemplateVehicleShipped     = "vehicle_shipped"

	DefaultTemplateLocale = "en-US"
)

// Default email templates used as fallback when not found in database
var defaultEmailTemplates = map[string]models.EmailTemplate{
	TemplateNewInquiry: {
		TemplateID: TemplateNewInquiry,
		Locale:     "en-US",
		Subject:    "New inquiry about {{.title}}",
		Body:       "{{.customer}} asked about {{.title}} (stock {{.stock_number}}):\n\n{{.message}}\n\nInquiry ID: {{.inquiry_id}}",
	},
	TemplateAgreementConfirmed: {
		TemplateID: TemplateAgreementConfirmed,
		Locale:     "en-US",
		Subject:    "Your purchase of {{.title}} is confirmed",
		Body:       "We have agreed a price of {{.agreed_price}} for {{.title}} (stock {{.stock_number}}).{{.delivery_note}}\n\nYou can follow the shipment from your dashboard.",
	},
	TemplateVehicleShipped: {
		TemplateID: TemplateVehicleShipped,
		Locale:     "en-US",
		Subject:    "{{.title}} has shipped",
		Body:       "Your vehicle {{.title}} (stock {{.stock_number}}) is on its way. Shipping documents are available on your dashboard.",
	},
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
	SaveTemplate(ctx context.Context, template *models.EmailTemplate) error
	DeleteTemplate(ctx context.Context, templateID, locale string) error
}

// EmailTemplateService handles operations related to email templates
type EmailTemplateService struct {
	db *mongo.Database
}

// NewEmailTemplateService creates a new instance of EmailTemplateService
func NewEmailTemplateService(db *mongo.Database) *EmailTemplateService {
	return &EmailTemplateService{
		db: db,
	}
}

// GetTemplate retrieves an email template by ID and locale
func (s *EmailTemplateService) GetTemplate(ctx context.Context, templateID string, locale string) (*models.EmailTemplate, error) {
	collection := s.db.Collection(db.EmailTemplatesCollection)
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	var template models.EmailTemplate
	err := collection.FindOne(ctx, filter).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// If template not found in DB, try to get from defaults
			if defaultTemplate, ok := defaultEmailTemplates[templateID]; ok {
				return &defaultTemplate, nil
			}
			return nil, fmt.Errorf("%w: %s (locale: %s)", ErrTemplateNotFound, templateID, locale)
		}
		return nil, fmt.Errorf("error retrieving template: %w", err)
	}

	return &template, nil
}

// validateTemplate only accepts overrides of templates the application sends.
// The subject becomes a mail header, so it must stay on one line.
func validateTemplate(template *models.EmailTemplate) error {
	if _, ok := defaultEmailTemplates[template.TemplateID]; !ok {
		return fmt.Errorf("%w: unknown template %q", ErrInvalidTemplate, template.TemplateID)
	}
	template.Locale = strings.TrimSpace(template.Locale)
	if template.Locale == "" {
		template.Locale = DefaultTemplateLocale
	}
	if strings.TrimSpace(template.Subject) == "" || strings.TrimSpace(template.Body) == "" {
		return fmt.Errorf("%w: subject and body are required", ErrInvalidTemplate)
	}
	if strings.ContainsAny(template.Subject, "\r\n") {
		return fmt.Errorf("%w: subject must be a single line", ErrInvalidTemplate)
	}
	return nil
}

// SaveTemplate creates or replaces the stored override for a template and locale.
func (s *EmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	if err := validateTemplate(template); err != nil {
		return err
	}
	collection := s.db.Collection(db.EmailTemplatesCollection)
	filter := bson.M{
		"template_id": template.TemplateID,
		"locale":      template.Locale,
	}

	template.GenIDIfEmpty()
	template.Touch(time.Now())
	update := bson.M{
		"$set":         bson.M{"subject": template.Subject, "body": template.Body, "updatedAt": template.UpdatedAt},
		"$setOnInsert": bson.M{"_id": template.ID, "createdAt": template.CreatedAt},
	}
	opts := options.Update().SetUpsert(true)

	_, err := collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("error saving template: %w", err)
	}

	return nil
}

// DeleteTemplate removes a stored override; the built-in default applies again.
func (s *EmailTemplateService) DeleteTemplate(ctx context.Context, templateID string, locale string) error {
	collection := s.db.Collection(db.EmailTemplatesCollection)
	filter := bson.M{
		"template_id": templateID,
		"locale":      locale,
	}

	res, err := collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("error deleting template: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s (locale: %s)", ErrTemplateNotFound, templateID, locale)
	}

	return nil
}
