package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"unistay/pkg/auth"
	"unistay/pkg/config"
	"unistay/pkg/model"
)

type TestEnv struct {
	MongoURI      string
	DatabaseName  string
	ServerURL     string
	ServerPort    string
	SessionSecret string
	SessionIssuer string
	// PaymentSecret signs payment verifications. Left empty when the server
	// runs outside production without PAYMENT_KEY_SECRET.
	PaymentSecret string
}

func NewTestEnv() *TestEnv {
	mongoURI := getEnv("TEST_MONGO_URI", DefaultMongoURI)
	dbName := getEnv("TEST_DB_NAME", DefaultDatabaseName)
	serverPort := getEnv("TEST_SERVER_PORT", "8080")
	serverURL := getEnv("TEST_SERVER_URL", fmt.Sprintf("http://localhost:%s", serverPort))

	return &TestEnv{
		MongoURI:      mongoURI,
		DatabaseName:  dbName,
		ServerURL:     serverURL,
		ServerPort:    serverPort,
		SessionSecret: getEnv("TEST_SESSION_SECRET", "dev-session-secret"),
		SessionIssuer: getEnv("TEST_SESSION_ISSUER", config.DefaultSessionIssuer),
		PaymentSecret: os.Getenv("TEST_PAYMENT_KEY_SECRET"),
	}
}

func (e *TestEnv) Setup(t *testing.T) (*MongoHelper, *Client) {
	t.Helper()

	mongo := NewMongoHelper(t, e.MongoURI, e.DatabaseName)
	mongo.CleanDatabase(t)

	client := NewClient(e.ServerURL)
	client.WaitForHealthy(t, DefaultHealthCheckTimeout)

	return mongo, client
}

func (e *TestEnv) Cleanup(t *testing.T, mongo *MongoHelper) {
	t.Helper()

	if mongo != nil {
		mongo.CleanDatabase(t)
		mongo.Close(t)
	}
}

// SignIn mints a session for email, lets the API provision the account and
// then forces the requested role straight in the database.
func (e *TestEnv) SignIn(t *testing.T, client *Client, mongo *MongoHelper, email string, role model.Role) *Client {
	t.Helper()

	verifier, err := auth.NewSessionVerifier(e.SessionSecret, e.SessionIssuer)
	if err != nil {
		t.Fatalf("failed to build session verifier: %v", err)
	}
	token, err := verifier.Issue(email, email, "", time.Hour)
	if err != nil {
		t.Fatalf("failed to issue session: %v", err)
	}

	session := client.WithToken(token)
	AssertStatusCode(t, session.GET(t, "/api/me"), 200)

	if role != model.RoleStudent {
		mongo.SetRole(t, email, role)
	}
	return session
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

const (
	DefaultHealthCheckTimeout = 3 * ConnectionTimeout
)
