package handlers_test

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
)

// --- Mocks ---

// MockAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

// MockAgreementService
type MockAgreementService struct {
	mock.Mock
}

func (m *MockAgreementService) AgreePrice(ctx context.Context, inquiryID string, req services.AgreePriceRequest) (*services.AgreementResult, error) {
	args := m.Called(ctx, inquiryID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AgreementResult), args.Error(1)
}

func (m *MockAgreementService) FindAgreedVehicle(ctx context.Context, id string) (*models.AgreedVehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AgreedVehicle), args.Error(1)
}

func (m *MockAgreementService) ListAgreedVehicles(ctx context.Context, filter services.AgreedVehicleFilter) ([]models.AgreedVehicle, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AgreedVehicle), args.Error(1)
}

func (m *MockAgreementService) UpdateShipmentStatus(ctx context.Context, id, status string) (*models.AgreedVehicle, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AgreedVehicle), args.Error(1)
}

func (m *MockAgreementService) AddDocument(ctx context.Context, id string, doc models.ShippingDocument) (*models.AgreedVehicle, error) {
	args := m.Called(ctx, id, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AgreedVehicle), args.Error(1)
}

func (m *MockAgreementService) Reconcile(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockInquiryService
type MockInquiryService struct {
	mock.Mock
}

func (m *MockInquiryService) FindInquiry(ctx context.Context, id string) (*services.LocatedInquiry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.LocatedInquiry), args.Error(1)
}

func (m *MockInquiryService) CreateInquiry(ctx context.Context, in services.NewInquiry) (*models.Inquiry, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) ListInquiries(ctx context.Context, filter services.InquiryFilter) ([]models.Inquiry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Inquiry), args.Error(1)
}

func (m *MockInquiryService) UpdateStatus(ctx context.Context, id, status string) (*models.Inquiry, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Inquiry), args.Error(1)
}

// MockListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) CreateListing(ctx context.Context, in services.ListingInput) (*models.Vehicle, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockListingService) FindListing(ctx context.Context, idOrSlug string, includeHidden bool) (*models.Vehicle, error) {
	args := m.Called(ctx, idOrSlug, includeHidden)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockListingService) UpdateListing(ctx context.Context, listingID string, updates map[string]interface{}) (*models.Vehicle, error) {
	args := m.Called(ctx, listingID, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockListingService) SetVisibility(ctx context.Context, listingID, visibility string) error {
	return m.Called(ctx, listingID, visibility).Error(0)
}

func (m *MockListingService) SearchListings(ctx context.Context, q services.ListingQuery) ([]models.Vehicle, int64, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Vehicle), args.Get(1).(int64), args.Error(2)
}

func (m *MockListingService) AddImageToListing(ctx context.Context, listingID, imageURL string) error {
	return m.Called(ctx, listingID, imageURL).Error(0)
}

// MockFavoriteService
type MockFavoriteService struct {
	mock.Mock
}

func (m *MockFavoriteService) AddFavorite(ctx context.Context, customerID, listingID string) (*models.Favorite, error) {
	args := m.Called(ctx, customerID, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Favorite), args.Error(1)
}

func (m *MockFavoriteService) RemoveFavorite(ctx context.Context, customerID, listingID string) error {
	return m.Called(ctx, customerID, listingID).Error(0)
}

func (m *MockFavoriteService) ListFavorites(ctx context.Context, customerID string) ([]models.Vehicle, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vehicle), args.Error(1)
}

// MockEmailTemplateService
type MockEmailTemplateService struct {
	mock.Mock
}

func (m *MockEmailTemplateService) GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	args := m.Called(ctx, templateID, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}
func (m *MockEmailTemplateService) SaveTemplate(ctx context.Context, template *models.EmailTemplate) error {
	return m.Called(ctx, template).Error(0)
}
func (m *MockEmailTemplateService) DeleteTemplate(ctx context.Context, templateID, locale string) error {
	return m.Called(ctx, templateID, locale).Error(0)
}

// MockStorage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GeneratePresignedPutURL(ctx context.Context, prefix, ownerID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, prefix, ownerID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockStorage) GeneratePresignedGetURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockStorage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *MockStorage) PublicURL(key string) string {
	return m.Called(key).String(0)
}
