//go:build integration

package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Husnainn01/ssfinalcode-sub001/internal/auth"
	"github.com/Husnainn01/ssfinalcode-sub001/internal/services"
)

const (
	testAppBinary         = "./carmarket_test_app"
	testAppPort           = "8089"
	testServiceApiPortApi = "8091"
	testServiceApiPortBg  = "8092"
	testAppURL            = "http://localhost:" + testAppPort
	testServiceApiURL     = "http://localhost:" + testServiceApiPortApi
	startupTimeout        = 15 * time.Second
	pingEndpoint          = testAppURL + "/api/ping"

	testJwtSecret        = "integration-test-secret"
	legacyCollection     = "carInquiries"
	testCustomerID       = "integration-customer"
	testCustomerEmail    = "buyer@example.com"
	testInquiryCollNames = "inquiries," + legacyCollection
)

var (
	seededListingID = primitive.NewObjectID()
	seededInquiryID = primitive.NewObjectID()
	seededStock     = fmt.Sprintf("IT-%d", time.Now().UnixNano()%1_000_000)
)

// TestMain builds the binary, seeds Mongo and runs an API and a background worker process.
func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	defer os.Remove(testAppBinary)
	godotenv.Load()

	buildOutput, err := exec.Command("go", "build", "-o", testAppBinary, ".").CombinedOutput()
	if err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(buildOutput))
		return 1
	}

	if err := seedTestData(); err != nil {
		log.Printf("Failed to seed test data: %v", err)
		return 1
	}
	defer cleanupTestData()

	commonEnv := append(os.Environ(),
		"JWT_SECRET="+testJwtSecret,
		"GIN_MODE=release",
		"MOCK_SERVICES=true",
		"INQUIRY_COLLECTIONS="+testInquiryCollNames,
		"DEBUG_ERRORS=true",
		"SMTP_FROM_ADDRESS=test@example.com",
	)

	apiCmd := exec.Command(testAppBinary, "-m", "api")
	apiCmd.Env = append(commonEnv,
		"API_PORT="+testAppPort,
		"SERVICE_API_PORT="+testServiceApiPortApi,
		"RATE_LIMIT_SOFT_BUCKET_SIZE=10",
		"RATE_LIMIT_SOFT_REFILL_RATE=10",
		"RATE_LIMIT_HARD_BUCKET_SIZE=20",
		"RATE_LIMIT_HARD_REFILL_RATE=20",
	)
	apiCmd.Stderr, apiCmd.Stdout = os.Stderr, os.Stdout

	bgCmd := exec.Command(testAppBinary, "-m", "bg")
	bgCmd.Env = append(commonEnv, "SERVICE_API_PORT="+testServiceApiPortBg)
	bgCmd.Stderr, bgCmd.Stdout = os.Stderr, os.Stdout

	for _, cmd := range []*exec.Cmd{apiCmd, bgCmd} {
		if err := cmd.Start(); err != nil {
			log.Printf("Failed to start %v: %v", cmd.Args, err)
			return 1
		}
		defer stopProcess(cmd)
	}

	if !waitForPing() {
		log.Printf("Application failed to start within %v", startupTimeout)
		return 1
	}
	// The worker has no health check; give it a moment to connect.
	time.Sleep(2 * time.Second)

	return m.Run()
}

func stopProcess(cmd *exec.Cmd) {
	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = cmd.Process.Kill()
		return
	}
	_, _ = cmd.Process.Wait()
}

func waitForPing() bool {
	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(pingEndpoint)
		if err == nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK && string(body) == "pong" {
				return true
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

func testDatabase(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(os.Getenv("MONGO_URI")))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	dbName := os.Getenv("MONGO_DB_NAME")
	if dbName == "" {
		dbName = "carmarket"
	}
	return client, client.Database(dbName), nil
}

// seedTestData inserts a public listing and an inquiry stored the legacy way:
// snake_case keys and a JSON-string car snapshot in a non-canonical collection.
func seedTestData() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, database, err := testDatabase(ctx)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	now := time.Now().UTC()
	_, err = database.Collection("listings").InsertOne(ctx, bson.M{
		"_id":         seededListingID,
		"title":       "2019 Toyota Supra",
		"slug":        "2019-toyota-supra-" + seededListingID.Hex(),
		"make":        "Toyota",
		"model":       "Supra",
		"year":        2019,
		"price":       45000,
		"stockNumber": seededStock,
		"visibility":  "public",
		"createdAt":   now,
		"updatedAt":   now,
	})
	if err != nil {
		return fmt.Errorf("failed to seed listing: %w", err)
	}

	snapshot, _ := json.Marshal(map[string]interface{}{
		"id":          seededListingID.Hex(),
		"title":       "2019 Toyota Supra",
		"make":        "Toyota",
		"model":       "Supra",
		"year":        2019,
		"stockNumber": seededStock,
	})
	_, err = database.Collection(legacyCollection).InsertOne(ctx, bson.M{
		"_id":            seededInquiryID,
		"customer_id":    testCustomerID,
		"customer_email": testCustomerEmail,
		"customer_name":  "Integration Buyer",
		"car_details":    string(snapshot),
		"message":        "Is this still available?",
		"status":         "Pending",
		"created_at":     now,
	})
	if err != nil {
		return fmt.Errorf("failed to seed legacy inquiry: %w", err)
	}
	return nil
}

func cleanupTestData() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, database, err := testDatabase(ctx)
	if err != nil {
		log.Printf("Cleanup skipped: %v", err)
		return
	}
	defer client.Disconnect(ctx)

	_, _ = database.Collection("listings").DeleteOne(ctx, bson.M{"_id": seededListingID})
	_, _ = database.Collection(legacyCollection).DeleteOne(ctx, bson.M{"_id": seededInquiryID})
	_, _ = database.Collection("agreed_vehicles").DeleteMany(ctx, bson.M{"inquiryId": seededInquiryID.Hex()})
}

func token(t *testing.T, userID, email, role string) string {
	t.Helper()
	tok, err := auth.GenerateJWT(userID, email, role, testJwtSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func doRequest(t *testing.T, method, url, jwtToken string, payload interface{}) (int, map[string]interface{}) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if jwtToken != "" {
		req.Header.Set("Authorization", "Bearer "+jwtToken)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		out = map[string]interface{}{"raw_body": string(raw)}
	}
	return resp.StatusCode, out
}

func getTestEmail(t *testing.T, templateID, to string) map[string]interface{} {
	t.Helper()
	status, body := doRequest(t, http.MethodPost, testServiceApiURL+"/api", "", map[string]interface{}{
		"method":    "getTestEmail",
		"arguments": []string{templateID, to},
	})
	require.Equal(t, http.StatusOK, status, "test email %s for %s: %v", templateID, to, body)
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	return data
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", string(body))
}

func TestIntegration_AgreePrice_UnknownInquiry(t *testing.T) {
	admin := token(t, "integration-admin", "admin@example.com", auth.RoleAdmin)
	status, body := doRequest(t, http.MethodPost,
		fmt.Sprintf("%s/api/admin/inquiries/%s/agree-price", testAppURL, primitive.NewObjectID().Hex()),
		admin, map[string]interface{}{"agreedPrice": 1000})

	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])
	debug, ok := body["debug"].(map[string]interface{})
	require.True(t, ok, "DEBUG_ERRORS is on, expected diagnostics: %v", body)
	assert.Contains(t, debug["collectionsScanned"], legacyCollection)
}

func TestIntegration_AgreePrice_LegacyInquiry(t *testing.T) {
	admin := token(t, "integration-admin", "admin@example.com", auth.RoleAdmin)
	url := fmt.Sprintf("%s/api/admin/inquiries/%s/agree-price", testAppURL, seededInquiryID.Hex())

	status, body := doRequest(t, http.MethodPost, url, admin, map[string]interface{}{
		"agreedPrice":       "42500",
		"notes":             "Includes shipping to port",
		"estimatedDelivery": "2030-01-15",
	})
	require.Equal(t, http.StatusOK, status, "%v", body)
	assert.Equal(t, true, body["success"])

	inquiry := body["inquiry"].(map[string]interface{})
	assert.Equal(t, "agreed", inquiry["status"])
	assert.Equal(t, 42500.0, inquiry["agreedPrice"])

	vehicle := body["vehicle"].(map[string]interface{})
	assert.Equal(t, "Toyota", vehicle["make"])
	assert.Equal(t, seededStock, vehicle["stockNumber"])
	assert.Equal(t, seededInquiryID.Hex(), vehicle["inquiryId"])
	assert.Equal(t, testCustomerID, vehicle["customerId"])
	assert.Equal(t, inquiry["vehicleId"], vehicle["id"])

	emailData := getTestEmail(t, services.TemplateAgreementConfirmed, testCustomerEmail)
	assert.Contains(t, emailData["body"], "42500.00")
	assert.Contains(t, emailData["body"], "2030-01-15")

	// A second agreement on the same inquiry is rejected.
	status, body = doRequest(t, http.MethodPost, url, admin, map[string]interface{}{"agreedPrice": 40000})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_agreed", body["error"])
	assert.Equal(t, vehicle["id"], body["vehicleId"])

	customer := token(t, testCustomerID, testCustomerEmail, auth.RoleCustomer)
	status, body = doRequest(t, http.MethodGet, testAppURL+"/api/agreed-vehicles", customer, nil)
	require.Equal(t, http.StatusOK, status)
	data, _ := body["data"].([]interface{})
	assert.Len(t, data, 1)
}
