//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/JVK-PAGE/status-page-plivo/internal/app"
	"github.com/JVK-PAGE/status-page-plivo/internal/config"
	"github.com/JVK-PAGE/status-page-plivo/internal/identity"
	"github.com/JVK-PAGE/status-page-plivo/internal/realtime"
	"github.com/JVK-PAGE/status-page-plivo/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const jwtSecret = "test-secret-key"

var (
	testServer  *httptest.Server
	testClient  *testutil.Client
	testDB      *pgxpool.Pool
	redisClient *redis.Client
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	redisContainer, err := testutil.NewRedisContainer(ctx)
	if err != nil {
		log.Fatalf("start redis: %v", err)
	}
	defer func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			log.Printf("terminate redis: %v", err)
		}
	}()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:              "127.0.0.1",
			Port:              "0",
			MetricsPort:       "0",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: config.DatabaseConfig{
			URL:             pgContainer.ConnectionString,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 3,
			RunMigrations:   true,
		},
		Redis: config.RedisConfig{
			Addr:           redisContainer.Addr,
			PublishTimeout: 5 * time.Second,
		},
		JWT: config.JWTConfig{
			SecretKey: jwtSecret,
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "text",
		},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("init application: %v", err)
	}

	testServer = httptest.NewServer(application.Router())
	defer testServer.Close()

	testClient = testutil.NewClient(testServer.URL)

	testDB, err = pgxpool.New(ctx, pgContainer.ConnectionString)
	if err != nil {
		log.Fatalf("connect test db: %v", err)
	}
	defer testDB.Close()

	redisClient = redis.NewClient(&redis.Options{Addr: redisContainer.Addr})
	defer func() { _ = redisClient.Close() }()

	os.Exit(m.Run())
}

// seedOrganization inserts an organization bound to the given external auth
// provider key and returns its id.
func seedOrganization(t *testing.T, name, authProviderID string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testDB.Exec(context.Background(),
		`INSERT INTO organizations (id, name, auth_provider_id) VALUES ($1, $2, $3)`,
		id, name, authProviderID,
	)
	if err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	return id
}

// seedService inserts a service owned by the organization and returns its id.
func seedService(t *testing.T, organizationID, name string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := testDB.Exec(context.Background(),
		`INSERT INTO services (id, organization_id, name, description) VALUES ($1, $2, $3, $4)`,
		id, organizationID, name, name+" service",
	)
	if err != nil {
		t.Fatalf("seed service: %v", err)
	}
	return id
}

// mintToken issues a token the way the external auth provider would.
func mintToken(t *testing.T, userID, orgAuthID string) string {
	t.Helper()
	claims := identity.Claims{
		OrgID: orgAuthID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

// brokerEvent is one message observed on an organization channel.
type brokerEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// subscribeOrg subscribes to the organization channel and returns a channel
// of decoded events.
func subscribeOrg(t *testing.T, organizationID string) <-chan brokerEvent {
	t.Helper()

	sub := redisClient.Subscribe(context.Background(), realtime.OrgChannel(organizationID))
	// Wait for the subscription before any publish can happen.
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe to org channel: %v", err)
	}
	t.Cleanup(func() { _ = sub.Close() })

	events := make(chan brokerEvent, 16)
	go func() {
		for msg := range sub.Channel() {
			var ev brokerEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			events <- ev
		}
	}()
	return events
}

// waitForEvent waits for a single event or fails the test.
func waitForEvent(t *testing.T, events <-chan brokerEvent) brokerEvent {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for broker event")
		return brokerEvent{}
	}
}

// assertNoEvent asserts that no event arrives within the grace window.
func assertNoEvent(t *testing.T, events <-chan brokerEvent) {
	t.Helper()
	select {
	case ev := <-events:
		t.Fatalf("unexpected broker event %q", ev.Event)
	case <-time.After(500 * time.Millisecond):
	}
}

// countRows returns the number of rows the query yields.
func countRows(t *testing.T, query string, args ...interface{}) int {
	t.Helper()
	var count int
	if err := testDB.QueryRow(context.Background(), query, args...).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}
