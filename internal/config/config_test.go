package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load("api")
	require.NoError(t, err)

	assert.Equal(t, "api", cfg.RunMode)
	assert.Equal(t, []string{"inquiries"}, cfg.InquiryCollections)
	assert.False(t, cfg.InquiryLegacyScan)
	assert.True(t, cfg.MongoTransactions)
	assert.False(t, cfg.DebugErrors)
	assert.Equal(t, time.Hour, cfg.JwtTTL)
	assert.Equal(t, "@every 10m", cfg.ReconcileCron)
}

func TestLoad_InquiryCollections(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("INQUIRY_COLLECTIONS", " inquiries, ,car_inquiries ")
	t.Setenv("INQUIRY_LEGACY_SCAN", "true")

	cfg, err := Load("api")
	require.NoError(t, err)
	assert.Equal(t, []string{"inquiries", "car_inquiries"}, cfg.InquiryCollections)
	assert.True(t, cfg.InquiryLegacyScan)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")

	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("DEBUG_ERRORS", "maybe")
		_, err := Load("api")
		assert.ErrorContains(t, err, "DEBUG_ERRORS")
	})

	t.Run("bad number", func(t *testing.T) {
		t.Setenv("SMTP_PORT", "abc")
		_, err := Load("api")
		assert.ErrorContains(t, err, "SMTP_PORT")
	})

	t.Run("empty collection list", func(t *testing.T) {
		t.Setenv("INQUIRY_COLLECTIONS", " , ")
		_, err := Load("api")
		assert.Error(t, err)
	})
}
