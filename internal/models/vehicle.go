package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Visibility values for a listing.
const (
	VisibilityPublic = "public"
	VisibilityHidden = "hidden"
)

// Defaults applied when neither the listing nor the inquiry snapshot carries a value.
const (
	DefaultMileageUnit   = "KM"
	DefaultItemCondition = "New"
)

// Image is a single picture reference, stored as {image: "<url>"}.
type Image struct {
	Image string `bson:"image" json:"image"`
}

// Features groups the feature checklists shown on the vehicle detail page.
type Features struct {
	Exterior []string `bson:"exterior,omitempty" json:"exterior,omitempty"`
	Interior []string `bson:"interior,omitempty" json:"interior,omitempty"`
	Safety   []string `bson:"safety,omitempty" json:"safety,omitempty"`
	Comfort  []string `bson:"comfort,omitempty" json:"comfort,omitempty"`
}

// VehicleSpec holds the descriptive fields shared by listings and agreed vehicles.
type VehicleSpec struct {
	Title         string   `bson:"title" json:"title"`
	Slug          string   `bson:"slug" json:"slug"`
	Make          string   `bson:"make" json:"make"`
	Model         string   `bson:"model" json:"model"`
	Year          int      `bson:"year" json:"year"`
	Price         float64  `bson:"price" json:"price"`
	Mileage       float64  `bson:"mileage" json:"mileage"`
	MileageUnit   string   `bson:"mileageUnit" json:"mileageUnit"`
	ItemCondition string   `bson:"itemCondition" json:"itemCondition"`
	Transmission  string   `bson:"transmission" json:"transmission"`
	FuelType      string   `bson:"fuelType" json:"fuelType"`
	EngineSize    string   `bson:"engineSize" json:"engineSize"`
	BodyType      string   `bson:"bodyType" json:"bodyType"`
	Color         string   `bson:"color" json:"color"`
	Drive         string   `bson:"drive" json:"drive"`
	Doors         int      `bson:"doors" json:"doors"`
	Seats         int      `bson:"seats" json:"seats"`
	VIN           string   `bson:"vin" json:"vin"`
	StockNumber   string   `bson:"stockNumber" json:"stockNumber"`
	Description   string   `bson:"description" json:"description"`
	Location      string   `bson:"location" json:"location"`
	Features      Features `bson:"features" json:"features"`
	Images        []Image  `bson:"images" json:"images"`
}

// Vehicle is a for-sale listing as stored in the listings collection.
type Vehicle struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VehicleSpec `bson:",inline"`
	Visibility  string    `bson:"visibility" json:"visibility"`
	Section     string    `bson:"section" json:"section"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}
