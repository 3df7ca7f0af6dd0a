package models

// Favorite is a listing bookmarked by a customer on their dashboard.
type Favorite struct {
	Base       `bson:",inline"`
	CustomerID string `bson:"customerId" json:"customerId"`
	ListingID  string `bson:"listingId" json:"listingId"`
}
