package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/api/handlers"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
)

func newInquiryRouter(inquiries *MockInquiryService, taskClient *MockAsynqClient) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handlers.NewInquiryHandler(&config.Config{AdminNotifyEmail: "sales@example.com"}, inquiries, taskClient)
	r := gin.New()
	r.POST("/api/guest/inquiries", h.CreateInquiry)
	r.POST("/api/inquiries", asCustomer("cust-1"), h.CreateInquiry)
	r.GET("/api/inquiries", asCustomer("cust-1"), h.ListMyInquiries)
	admin := r.Group("/api/admin", asAdmin)
	admin.GET("/inquiries", h.ListInquiries)
	admin.PATCH("/inquiries/:id/status", h.UpdateStatus)
	return r
}

func TestInquiryHandler_CreateInquiry_SignedIn(t *testing.T) {
	inquiries := new(MockInquiryService)
	taskClient := new(MockAsynqClient)
	r := newInquiryRouter(inquiries, taskClient)

	inquiries.On("CreateInquiry", mock.Anything, services.NewInquiry{
		CustomerID:    "cust-1",
		CustomerEmail: "cust-1@example.com",
		CustomerName:  "Jo",
		ListingID:     "listing-1",
		Message:       "Is it available?",
	}).Return(&models.Inquiry{ID: "inq-1", Message: "Is it available?", Status: models.InquiryStatusPending}, nil)
	taskClient.On("EnqueueContext", mock.Anything, emailTask(services.TemplateNewInquiry, "sales@example.com")).
		Return(&asynq.TaskInfo{}, nil)

	w := doJSON(r, http.MethodPost, "/api/inquiries",
		gin.H{"listingId": "listing-1", "message": "Is it available?", "name": " Jo ", "email": "ignored@example.com"})

	assert.Equal(t, http.StatusCreated, w.Code)
	inquiries.AssertExpectations(t)
	taskClient.AssertExpectations(t)
}

func TestInquiryHandler_CreateInquiry_GuestUsesBodyEmail(t *testing.T) {
	inquiries := new(MockInquiryService)
	taskClient := new(MockAsynqClient)
	r := newInquiryRouter(inquiries, taskClient)

	inquiries.On("CreateInquiry", mock.Anything, mock.MatchedBy(func(in services.NewInquiry) bool {
		return in.CustomerID == "" && in.CustomerEmail == "guest@example.com"
	})).Return(&models.Inquiry{ID: "inq-2"}, nil)
	taskClient.On("EnqueueContext", mock.Anything, mock.Anything).Return(&asynq.TaskInfo{}, nil)

	w := doJSON(r, http.MethodPost, "/api/guest/inquiries",
		gin.H{"listingId": "listing-1", "message": "hi", "email": "guest@example.com"})

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestInquiryHandler_CreateInquiry_Errors(t *testing.T) {
	inquiries := new(MockInquiryService)
	r := newInquiryRouter(inquiries, new(MockAsynqClient))

	w := doJSON(r, http.MethodPost, "/api/inquiries", gin.H{"listingId": "listing-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	inquiries.On("CreateInquiry", mock.Anything, mock.MatchedBy(func(in services.NewInquiry) bool {
		return in.ListingID == "gone"
	})).Return(nil, services.ErrListingNotFound)
	w = doJSON(r, http.MethodPost, "/api/inquiries", gin.H{"listingId": "gone", "message": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	inquiries.On("CreateInquiry", mock.Anything, mock.MatchedBy(func(in services.NewInquiry) bool {
		return in.ListingID == "anon"
	})).Return(nil, services.ErrInvalidInquiry)
	w = doJSON(r, http.MethodPost, "/api/guest/inquiries", gin.H{"listingId": "anon", "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInquiryHandler_ListMyInquiries(t *testing.T) {
	inquiries := new(MockInquiryService)
	r := newInquiryRouter(inquiries, nil)
	inquiries.On("ListInquiries", mock.Anything, services.InquiryFilter{CustomerID: "cust-1", Limit: 50}).
		Return([]models.Inquiry{{ID: "a"}, {ID: "b"}}, nil)

	w := doJSON(r, http.MethodGet, "/api/inquiries", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["data"], 2)
}

func TestInquiryHandler_AdminListByStatus(t *testing.T) {
	inquiries := new(MockInquiryService)
	r := newInquiryRouter(inquiries, nil)
	inquiries.On("ListInquiries", mock.Anything, services.InquiryFilter{Status: "pending", Limit: 20}).
		Return([]models.Inquiry{}, nil)

	w := doJSON(r, http.MethodGet, "/api/admin/inquiries?status=Pending&limit=20", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	inquiries.AssertExpectations(t)
}

func TestInquiryHandler_UpdateStatus(t *testing.T) {
	inquiries := new(MockInquiryService)
	r := newInquiryRouter(inquiries, nil)
	inquiries.On("UpdateStatus", mock.Anything, "inq-1", "answered").
		Return(&models.Inquiry{ID: "inq-1", Status: models.InquiryStatusAnswered}, nil)
	inquiries.On("UpdateStatus", mock.Anything, "inq-1", "agreed").
		Return(nil, services.ErrInvalidTransition)

	w := doJSON(r, http.MethodPatch, "/api/admin/inquiries/inq-1/status", gin.H{"status": "answered"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPatch, "/api/admin/inquiries/inq-1/status", gin.H{"status": "agreed"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPatch, "/api/admin/inquiries/inq-1/status", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
