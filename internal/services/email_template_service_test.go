package services

import (
	"context"
	"testing"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/db"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailTemplateService_SaveRejectsInvalidTemplates(t *testing.T) {
	svc := NewEmailTemplateService(nil)
	tests := []struct {
		name string
		tmpl models.EmailTemplate
	}{
		{"unknown template", models.EmailTemplate{TemplateID: "welcome", Subject: "Hi", Body: "Hello"}},
		{"blank subject", models.EmailTemplate{TemplateID: TemplateNewInquiry, Subject: " ", Body: "Hello"}},
		{"blank body", models.EmailTemplate{TemplateID: TemplateNewInquiry, Subject: "Hi"}},
		{"multi-line subject", models.EmailTemplate{TemplateID: TemplateNewInquiry, Subject: "Hi\r\nBcc: x@example.com", Body: "Hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.SaveTemplate(context.Background(), &tt.tmpl)
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}

func TestEmailTemplateService_OverrideAndReset(t *testing.T) {
	database := utils.SetupTestDB(t, "testdb_email_templates", db.EmailTemplatesCollection)
	ctx := context.Background()
	require.NoError(t, db.EnsureIndexes(ctx, database))
	svc := NewEmailTemplateService(database)

	tmpl, err := svc.GetTemplate(ctx, TemplateVehicleShipped, DefaultTemplateLocale)
	require.NoError(t, err)
	assert.Equal(t, defaultEmailTemplates[TemplateVehicleShipped].Subject, tmpl.Subject)

	override := &models.EmailTemplate{TemplateID: TemplateVehicleShipped, Subject: "Shipped: {{.title}}", Body: "Tracking soon"}
	require.NoError(t, svc.SaveTemplate(ctx, override))
	assert.Equal(t, DefaultTemplateLocale, override.Locale)

	// A second save replaces the first rather than colliding on the unique index.
	override2 := &models.EmailTemplate{TemplateID: TemplateVehicleShipped, Subject: "On the water: {{.title}}", Body: "Tracking soon"}
	require.NoError(t, svc.SaveTemplate(ctx, override2))

	tmpl, err = svc.GetTemplate(ctx, TemplateVehicleShipped, DefaultTemplateLocale)
	require.NoError(t, err)
	assert.Equal(t, "On the water: {{.title}}", tmpl.Subject)
	assert.False(t, tmpl.CreatedAt.IsZero())

	require.NoError(t, svc.DeleteTemplate(ctx, TemplateVehicleShipped, DefaultTemplateLocale))
	tmpl, err = svc.GetTemplate(ctx, TemplateVehicleShipped, DefaultTemplateLocale)
	require.NoError(t, err)
	assert.Equal(t, defaultEmailTemplates[TemplateVehicleShipped].Subject, tmpl.Subject)

	err = svc.DeleteTemplate(ctx, TemplateVehicleShipped, DefaultTemplateLocale)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	_, err = svc.GetTemplate(ctx, "welcome", DefaultTemplateLocale)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}
