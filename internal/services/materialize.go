package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/utils"
	"github.com/gosimple/slug"
)

// MaterializeInput is everything needed to compose an agreed vehicle.
type MaterializeInput struct {
	Source            *models.Vehicle // nil when no listing was resolved
	Inquiry           models.Inquiry
	AgreedPrice       float64
	EstimatedDelivery *time.Time
	Notes             string
	Now               time.Time
}

// Materialized is a composed agreed vehicle. StockGenerated is set when the stock
// number was synthesized and may be regenerated on a collision.
type Materialized struct {
	Vehicle        models.AgreedVehicle
	StockGenerated bool
}

// slugSymbols are removed before slugging; the default English table would
// otherwise spell them out ("&" as "and", "@" as "at").
var slugSymbols = strings.NewReplacer("&", " ", "@", " ")

// Slugify lower-cases a title and joins its words with hyphens. Non-word
// characters are dropped.
func Slugify(title string) string {
	return slug.Make(slugSymbols.Replace(title))
}

// DefaultTitle builds "<year> <make> <model>" from whichever parts are known.
func DefaultTitle(year int, brand, model string) string {
	var parts []string
	if year > 0 {
		parts = append(parts, strconv.Itoa(year))
	}
	for _, p := range []string{brand, model} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Materialize composes an agreed vehicle. Each field takes the resolved listing's
// value, then the inquiry snapshot's, then a default.
func Materialize(in MaterializeInput) Materialized {
	src := models.Vehicle{}
	if in.Source != nil {
		src = *in.Source
	}
	snap := in.Inquiry.CarDetails

	spec := src.VehicleSpec
	spec.Make = pickString(src.Make, snap.Make)
	spec.Model = pickString(src.Model, snap.Model)
	spec.Year = pickInt(src.Year, snap.Year)
	spec.Price = pickFloat(src.Price, snap.Price)
	spec.MileageUnit = pickString(src.MileageUnit, models.DefaultMileageUnit)
	spec.ItemCondition = pickString(src.ItemCondition, models.DefaultItemCondition)
	spec.Title = pickString(src.Title, snap.Title, DefaultTitle(spec.Year, spec.Make, spec.Model))
	spec.Slug = Slugify(spec.Title)

	spec.Images = models.NormalizeImages(src.Images)
	if len(spec.Images) == 0 {
		spec.Images = models.NormalizeImages(snap.Images)
	}

	out := Materialized{}
	spec.StockNumber = pickString(src.StockNumber, snap.StockNumber)
	if spec.StockNumber == "" {
		spec.StockNumber = utils.NewStockNumber()
		out.StockGenerated = true
	}

	sourceID := snap.ID
	if !src.ID.IsZero() {
		sourceID = src.ID.Hex()
	}

	out.Vehicle = models.AgreedVehicle{
		VehicleSpec:       spec,
		AgreedPrice:       in.AgreedPrice,
		DateAgreed:        in.Now,
		AgreementNotes:    strings.TrimSpace(in.Notes),
		EstimatedDelivery: in.EstimatedDelivery,
		InquiryID:         in.Inquiry.ID,
		CustomerID:        in.Inquiry.CustomerID,
		SourceListingID:   sourceID,
		Status:            models.AgreedVehicleStatusAgreed,
		Documents:         []models.ShippingDocument{},
		CreatedAt:         in.Now,
		UpdatedAt:         in.Now,
	}
	return out
}

func pickString(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func pickInt(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func pickFloat(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
