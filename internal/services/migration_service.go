package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/config"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/db"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/models"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MigrationReport summarizes one consolidation run.
type MigrationReport struct {
	Scanned  map[string]int `json:"scanned"`
	Copied   int            `json:"copied"`
	Existing int            `json:"existing"`
	// Keys shared by more than one agreed vehicle. Their unique indexes cannot
	// be built until an operator resolves them.
	DuplicateInquiryIDs   []string `json:"duplicateInquiryIds,omitempty"`
	DuplicateStockNumbers []string `json:"duplicateStockNumbers,omitempty"`
}

// IMigrationService moves legacy inquiries into the canonical collection.
type IMigrationService interface {
	ConsolidateInquiries(ctx context.Context) (*MigrationReport, error)
}

type legacyInquiryRecord struct {
	ID             interface{} `bson:"_id"`
	models.Inquiry `bson:",inline"`
}

type migrationService struct {
	db     *mongo.Database
	cfg    *config.Config
	logger *zap.Logger
}

// NewMigrationService creates a new MigrationService.
func NewMigrationService(db *mongo.Database, cfg *config.Config) IMigrationService {
	return &migrationService{db: db, cfg: cfg, logger: utils.GetLogger()}
}

// ConsolidateInquiries copies every inquiry-shaped document found outside the
// canonical collection into it, keeping the original _id so existing links keep
// resolving. Source documents are left untouched. Re-running is harmless.
func (s *migrationService) ConsolidateInquiries(ctx context.Context) (*MigrationReport, error) {
	canonical := s.cfg.InquiryCollections[0]
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	report := &MigrationReport{Scanned: map[string]int{}}
	target := s.db.Collection(canonical)
	for _, name := range names {
		if name == canonical || nonInquiryCollections[name] || strings.HasPrefix(name, "system.") {
			continue
		}
		cur, err := s.db.Collection(name).Find(ctx, bson.M{})
		if err != nil {
			return report, fmt.Errorf("failed to scan %s: %w", name, err)
		}
		for cur.Next(ctx) {
			var doc bson.M
			if err := cur.Decode(&doc); err != nil {
				cur.Close(ctx)
				return report, fmt.Errorf("failed to decode document in %s: %w", name, err)
			}
			if !models.LooksLikeInquiry(doc) {
				continue
			}
			report.Scanned[name]++
			_, err := target.InsertOne(ctx, legacyInquiryRecord{ID: doc["_id"], Inquiry: models.InquiryFromDocument(doc)})
			if db.IsMongoDuplicateKeyError(err) {
				report.Existing++
				continue
			}
			if err != nil {
				cur.Close(ctx)
				return report, fmt.Errorf("failed to copy inquiry %v from %s: %w", doc["_id"], name, err)
			}
			report.Copied++
		}
		if err := cur.Err(); err != nil {
			cur.Close(ctx)
			return report, fmt.Errorf("cursor error scanning %s: %w", name, err)
		}
		cur.Close(ctx)
	}

	if report.DuplicateInquiryIDs, err = s.agreedDuplicates(ctx, "inquiryId"); err != nil {
		return report, err
	}
	if report.DuplicateStockNumbers, err = s.agreedDuplicates(ctx, "stockNumber"); err != nil {
		return report, err
	}
	if len(report.DuplicateInquiryIDs) > 0 || len(report.DuplicateStockNumbers) > 0 {
		s.logger.Warn("Agreed vehicles share keys that must be unique",
			zap.Strings("inquiryIds", report.DuplicateInquiryIDs),
			zap.Strings("stockNumbers", report.DuplicateStockNumbers),
		)
	}

	s.logger.Info("Inquiry consolidation finished",
		zap.String("target", canonical),
		zap.Any("scanned", report.Scanned),
		zap.Int("copied", report.Copied),
		zap.Int("existing", report.Existing),
	)
	return report, nil
}

// agreedDuplicates returns the non-empty values of field held by more than one agreed vehicle.
func (s *migrationService) agreedDuplicates(ctx context.Context, field string) ([]string, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{field: bson.M{"$gt": ""}}}},
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "n": bson.M{"$sum": 1}}}},
		{{Key: "$match", Value: bson.M{"n": bson.M{"$gt": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cur, err := s.db.Collection(db.AgreedVehiclesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to group agreed vehicles by %s: %w", field, err)
	}
	var groups []struct {
		Value string `bson:"_id"`
	}
	if err := cur.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode %s duplicates: %w", field, err)
	}
	var values []string
	for _, g := range groups {
		values = append(values, g.Value)
	}
	return values, nil
}
