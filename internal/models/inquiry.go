package models

import (
	"time"
)

// Inquiry status values.
const (
	InquiryStatusPending   = "pending"
	InquiryStatusAnswered  = "answered"
	InquiryStatusAgreed    = "agreed"
	InquiryStatusCompleted = "completed"
	InquiryStatusClosed    = "closed"
)

var inquiryTransitions = map[string][]string{
	InquiryStatusPending:  {InquiryStatusAnswered, InquiryStatusAgreed, InquiryStatusClosed},
	InquiryStatusAnswered: {InquiryStatusAgreed, InquiryStatusClosed},
	InquiryStatusAgreed:   {InquiryStatusCompleted, InquiryStatusClosed},
}

// CanTransition reports whether an inquiry may move from one status to another.
// completed and closed are terminal.
func CanTransition(from, to string) bool {
	for _, s := range inquiryTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsInquiryStatus reports whether s is a known status.
func IsInquiryStatus(s string) bool {
	switch s {
	case InquiryStatusPending, InquiryStatusAnswered, InquiryStatusAgreed, InquiryStatusCompleted, InquiryStatusClosed:
		return true
	}
	return false
}

// CarDetails is the vehicle snapshot copied into an inquiry when it is created.
type CarDetails struct {
	ID          string  `bson:"id,omitempty" json:"id,omitempty"`
	Title       string  `bson:"title,omitempty" json:"title,omitempty"`
	Make        string  `bson:"make,omitempty" json:"make,omitempty"`
	Model       string  `bson:"model,omitempty" json:"model,omitempty"`
	Year        int     `bson:"year,omitempty" json:"year,omitempty"`
	Price       float64 `bson:"price,omitempty" json:"price,omitempty"`
	StockNumber string  `bson:"stockNumber,omitempty" json:"stockNumber,omitempty"`
	Images      []Image `bson:"images,omitempty" json:"images,omitempty"`
}

// IsEmpty reports whether the snapshot carries nothing usable for resolution.
func (d CarDetails) IsEmpty() bool {
	return d.ID == "" && d.StockNumber == "" && d.Make == "" && d.Model == "" && d.Year == 0
}

// Inquiry is a customer's request about a vehicle.
// ID is the string form of the stored _id, which may be an ObjectId or a plain string.
type Inquiry struct {
	ID            string     `bson:"-" json:"id"`
	CustomerID    string     `bson:"customerId" json:"customerId"`
	CustomerEmail string     `bson:"customerEmail" json:"customerEmail"`
	CustomerName  string     `bson:"customerName" json:"customerName"`
	CarDetails    CarDetails `bson:"carDetails" json:"carDetails"`
	Message       string     `bson:"message" json:"message"`
	Status        string     `bson:"status" json:"status"`
	Notes         string     `bson:"notes" json:"notes"`
	AgreedPrice   float64    `bson:"agreedPrice,omitempty" json:"agreedPrice,omitempty"`
	DateAgreed    *time.Time `bson:"dateAgreed,omitempty" json:"dateAgreed,omitempty"`
	VehicleID     string     `bson:"vehicleId,omitempty" json:"vehicleId,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt" json:"updatedAt"`
}
