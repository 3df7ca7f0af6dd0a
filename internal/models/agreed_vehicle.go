package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AgreedVehicle status values.
const (
	AgreedVehicleStatusAgreed    = "agreed"
	AgreedVehicleStatusShipped   = "shipped"
	AgreedVehicleStatusDelivered = "delivered"
)

// ShippingDocument is a file attached to an agreed vehicle (bill of lading, invoice, export certificate).
type ShippingDocument struct {
	Name       string    `bson:"name" json:"name"`
	Key        string    `bson:"key" json:"key"`
	URL        string    `bson:"url" json:"url"`
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

// AgreedVehicle is a vehicle under a confirmed purchase agreement.
type AgreedVehicle struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleSpec       `bson:",inline"`
	AgreedPrice       float64            `bson:"agreedPrice" json:"agreedPrice"`
	DateAgreed        time.Time          `bson:"dateAgreed" json:"dateAgreed"`
	AgreementNotes    string             `bson:"agreementNotes" json:"agreementNotes"`
	EstimatedDelivery *time.Time         `bson:"estimatedDelivery,omitempty" json:"estimatedDelivery,omitempty"`
	InquiryID         string             `bson:"inquiryId" json:"inquiryId"`
	CustomerID        string             `bson:"customerId" json:"customerId"`
	SourceListingID   string             `bson:"sourceListingId,omitempty" json:"sourceListingId,omitempty"`
	Status            string             `bson:"status" json:"status"`
	Documents         []ShippingDocument `bson:"documents" json:"documents"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// CanMoveTo reports whether the shipment status may advance to next.
func (v *AgreedVehicle) CanMoveTo(next string) bool {
	switch v.Status {
	case AgreedVehicleStatusAgreed:
		return next == AgreedVehicleStatusShipped
	case AgreedVehicleStatusShipped:
		return next == AgreedVehicleStatusDelivered
	}
	return false
}
