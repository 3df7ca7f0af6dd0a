package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Documents written by older versions of the storefront use several spellings
// for the same field. The first key present with a non-empty value wins.
var (
	stockNumberKeys   = []string{"stockNumber", "stock_number", "stockNo"}
	customerIDKeys    = []string{"customerId", "customer_id", "customer", "userId", "user_id"}
	customerEmailKeys = []string{"customerEmail", "customer_email", "email", "userEmail", "user_email"}
	customerNameKeys  = []string{"customerName", "customer_name", "name", "fullName"}
	carDetailsKeys    = []string{"carDetails", "car_details", "car", "vehicle"}
	imageKeys         = []string{"images", "image", "photos"}
	conditionKeys     = []string{"itemCondition", "condition"}
)

// InquiryFromDocument maps a raw inquiry document of any known shape onto Inquiry.
func InquiryFromDocument(doc bson.M) Inquiry {
	inq := Inquiry{
		ID:            StringValue(doc["_id"]),
		CustomerID:    StringValue(firstOf(doc, customerIDKeys...)),
		CustomerEmail: StringValue(firstOf(doc, customerEmailKeys...)),
		CustomerName:  StringValue(firstOf(doc, customerNameKeys...)),
		CarDetails:    CarDetailsFromValue(firstOf(doc, carDetailsKeys...)),
		Message:       StringValue(doc["message"]),
		Status:        strings.ToLower(StringValue(doc["status"])),
		Notes:         StringValue(doc["notes"]),
		AgreedPrice:   FloatValue(doc["agreedPrice"]),
		VehicleID:     StringValue(doc["vehicleId"]),
		CreatedAt:     TimeValue(firstOf(doc, "createdAt", "created_at")),
		UpdatedAt:     TimeValue(firstOf(doc, "updatedAt", "updated_at")),
	}
	if inq.Status == "" {
		inq.Status = InquiryStatusPending
	}
	if t := TimeValue(doc["dateAgreed"]); !t.IsZero() {
		inq.DateAgreed = &t
	}
	return inq
}

// CarDetailsFromValue accepts the embedded snapshot as a document or as a JSON string.
// Unparseable input yields an empty snapshot.
func CarDetailsFromValue(v interface{}) CarDetails {
	m := asMap(v)
	if m == nil {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return CarDetails{}
		}
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			return CarDetails{}
		}
		m = parsed
	}
	return CarDetails{
		ID:          StringValue(firstOf(m, "id", "_id", "carId", "vehicleId")),
		Title:       StringValue(m["title"]),
		Make:        StringValue(m["make"]),
		Model:       StringValue(m["model"]),
		Year:        IntValue(m["year"]),
		Price:       FloatValue(m["price"]),
		StockNumber: StringValue(firstOf(m, stockNumberKeys...)),
		Images:      NormalizeImages(firstOf(m, imageKeys...)),
	}
}

// VehicleFromDocument maps a raw listing document of any known shape onto Vehicle.
func VehicleFromDocument(doc bson.M) Vehicle {
	v := Vehicle{
		VehicleSpec: VehicleSpec{
			Title:         StringValue(doc["title"]),
			Slug:          StringValue(doc["slug"]),
			Make:          StringValue(firstOf(doc, "make", "brand")),
			Model:         StringValue(doc["model"]),
			Year:          IntValue(doc["year"]),
			Price:         FloatValue(doc["price"]),
			Mileage:       FloatValue(doc["mileage"]),
			MileageUnit:   StringValue(firstOf(doc, "mileageUnit", "mileage_unit")),
			ItemCondition: StringValue(firstOf(doc, conditionKeys...)),
			Transmission:  StringValue(doc["transmission"]),
			FuelType:      StringValue(firstOf(doc, "fuelType", "fuel_type", "fuel")),
			EngineSize:    StringValue(firstOf(doc, "engineSize", "engine_size", "engine")),
			BodyType:      StringValue(firstOf(doc, "bodyType", "body_type")),
			Color:         StringValue(firstOf(doc, "color", "exteriorColor")),
			Drive:         StringValue(firstOf(doc, "drive", "driveType")),
			Doors:         IntValue(doc["doors"]),
			Seats:         IntValue(doc["seats"]),
			VIN:           StringValue(firstOf(doc, "vin", "VIN")),
			StockNumber:   StringValue(firstOf(doc, stockNumberKeys...)),
			Description:   StringValue(doc["description"]),
			Location:      StringValue(doc["location"]),
			Features:      featuresFromDocument(doc),
			Images:        NormalizeImages(firstOf(doc, imageKeys...)),
		},
		Visibility: strings.ToLower(StringValue(doc["visibility"])),
		Section:    StringValue(doc["section"]),
		CreatedAt:  TimeValue(firstOf(doc, "createdAt", "created_at")),
		UpdatedAt:  TimeValue(firstOf(doc, "updatedAt", "updated_at")),
	}
	if oid, ok := doc["_id"].(primitive.ObjectID); ok {
		v.ID = oid
	} else if oid, err := primitive.ObjectIDFromHex(StringValue(doc["_id"])); err == nil {
		v.ID = oid
	}
	if v.Visibility == "" {
		v.Visibility = VisibilityPublic
	}
	return v
}

func featuresFromDocument(doc bson.M) Features {
	if nested := asMap(doc["features"]); nested != nil {
		return Features{
			Exterior: StringList(nested["exterior"]),
			Interior: StringList(nested["interior"]),
			Safety:   StringList(nested["safety"]),
			Comfort:  StringList(nested["comfort"]),
		}
	}
	return Features{
		Exterior: StringList(doc["exteriorFeatures"]),
		Interior: StringList(doc["interiorFeatures"]),
		Safety:   StringList(doc["safetyFeatures"]),
		Comfort:  StringList(doc["comfortFeatures"]),
	}
}

// NormalizeImages turns any stored image representation (a bare string, a list of
// strings, a list of {image} or {url} objects) into a list of Image, dropping empty
// entries and preserving order.
func NormalizeImages(v interface{}) []Image {
	out := []Image{}
	add := func(item interface{}) {
		var ref string
		switch t := item.(type) {
		case string:
			ref = t
		case Image:
			ref = t.Image
		default:
			if m := asMap(item); m != nil {
				ref = StringValue(firstOf(m, "image", "url", "src", "secure_url"))
			}
		}
		if ref = strings.TrimSpace(ref); ref != "" {
			out = append(out, Image{Image: ref})
		}
	}
	if list, ok := asSlice(v); ok {
		for _, item := range list {
			add(item)
		}
		return out
	}
	if v != nil {
		add(v)
	}
	return out
}

// StringValue renders scalar values as strings; ObjectIds become their hex form.
func StringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	if asMap(v) != nil {
		return ""
	}
	if _, ok := asSlice(v); ok {
		return ""
	}
	return fmt.Sprint(v)
}

// FloatValue reads numbers stored as any BSON numeric type or as a numeric string
// ("25,000" included). Anything else is 0.
func FloatValue(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err == nil {
			return f
		}
	case string:
		s := strings.NewReplacer(",", "", " ", "").Replace(t)
		f, err := strconv.ParseFloat(s, 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
	}
	return 0
}

// IntValue is FloatValue truncated to an int.
func IntValue(v interface{}) int {
	return int(FloatValue(v))
}

// TimeValue reads BSON dates, time.Time values and RFC 3339 strings.
func TimeValue(v interface{}) time.Time {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed.UTC()
		}
	}
	return time.Time{}
}

// StringList reads an array of strings, skipping blanks and non-string entries.
func StringList(v interface{}) []string {
	list, ok := asSlice(v)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

func firstOf(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}

func asMap(v interface{}) map[string]interface{} {
	switch t := v.(type) {
	case bson.M:
		return t
	case map[string]interface{}:
		return t
	case bson.D:
		return t.Map()
	}
	return nil
}

func asSlice(v interface{}) ([]interface{}, bool) {
	switch t := v.(type) {
	case bson.A:
		return t, true
	case []interface{}:
		return t, true
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	case []Image:
		out := make([]interface{}, len(t))
		for i, img := range t {
			out[i] = img
		}
		return out, true
	}
	return nil, false
}

// AgreedVehicleFromDocument maps a raw agreed vehicle document onto AgreedVehicle.
func AgreedVehicleFromDocument(doc bson.M) AgreedVehicle {
	base := VehicleFromDocument(doc)
	v := AgreedVehicle{
		ID:              base.ID,
		VehicleSpec:     base.VehicleSpec,
		AgreedPrice:     FloatValue(doc["agreedPrice"]),
		DateAgreed:      TimeValue(doc["dateAgreed"]),
		AgreementNotes:  StringValue(firstOf(doc, "agreementNotes", "notes")),
		InquiryID:       StringValue(doc["inquiryId"]),
		CustomerID:      StringValue(firstOf(doc, customerIDKeys...)),
		SourceListingID: StringValue(doc["sourceListingId"]),
		Status:          strings.ToLower(StringValue(doc["status"])),
		Documents:       []ShippingDocument{},
		CreatedAt:       base.CreatedAt,
		UpdatedAt:       base.UpdatedAt,
	}
	if t := TimeValue(doc["estimatedDelivery"]); !t.IsZero() {
		v.EstimatedDelivery = &t
	}
	if v.Status == "" {
		v.Status = AgreedVehicleStatusAgreed
	}
	if list, ok := asSlice(doc["documents"]); ok {
		for _, item := range list {
			m := asMap(item)
			if m == nil {
				continue
			}
			v.Documents = append(v.Documents, ShippingDocument{
				Name:       StringValue(m["name"]),
				Key:        StringValue(m["key"]),
				URL:        StringValue(m["url"]),
				UploadedAt: TimeValue(m["uploadedAt"]),
			})
		}
	}
	return v
}

// LooksLikeInquiry reports whether a document from an unknown collection has the
// shape of an inquiry: a car snapshot plus a message or a customer reference.
func LooksLikeInquiry(doc bson.M) bool {
	if firstOf(doc, carDetailsKeys...) == nil {
		return false
	}
	return firstOf(doc, "message") != nil ||
		firstOf(doc, customerIDKeys...) != nil ||
		firstOf(doc, customerEmailKeys...) != nil
}
