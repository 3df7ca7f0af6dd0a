package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
// Each URI is tried in order; the first one that answers a ping is used.
func ConnectDB(dbName string, uris ...string) (*mongo.Client, *mongo.Database, error) {
	var errs []error
	for _, uri := range uris {
		if uri == "" {
			continue
		}
		client, err := connect(uri)
		if err != nil {
			errs = append(errs, err)
			zap.L().Warn("MongoDB connection attempt failed", zap.Error(err))
			continue
		}
		zap.L().Info("Successfully connected to MongoDB", zap.String("database", dbName))
		return client, client.Database(dbName), nil
	}
	if len(errs) == 0 {
		return nil, nil, fmt.Errorf("no MongoDB connection string configured")
	}
	return nil, nil, errors.Join(errs...)
}

func connect(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the primary node
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		// Disconnect if ping fails
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	zap.L().Info("MongoDB connection closed")
	return nil
}
