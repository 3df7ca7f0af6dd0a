package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var loadTestEnvOnce sync.Once

// TestMongoURI returns MONGO_URI after loading the project .env, if any.
func TestMongoURI() string {
	loadTestEnvOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
		if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
			_ = godotenv.Load()
		}
	})
	return os.Getenv("MONGO_URI")
}

// SetupTestDB returns a database on the test deployment with the given
// collections dropped. The test is skipped when MONGO_URI is not set.
func SetupTestDB(t *testing.T, dbName string, collections ...string) *mongo.Database {
	t.Helper()
	uri := TestMongoURI()
	if uri == "" {
		t.Skip("MONGO_URI not set; skipping MongoDB test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err, "Failed to connect to MongoDB")
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	database := client.Database(dbName)
	for _, name := range collections {
		require.NoError(t, database.Collection(name).Drop(ctx), "Failed to drop %s", name)
	}
	return database
}

// SeedCollection inserts raw documents, typically bson.M in a legacy shape.
func SeedCollection(t *testing.T, database *mongo.Database, collection string, docs ...interface{}) {
	t.Helper()
	if len(docs) == 0 {
		return
	}
	_, err := database.Collection(collection).InsertMany(context.Background(), docs)
	require.NoError(t, err, "Failed to seed %s", collection)
}
