// Package testhelpers provides shared fixtures for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-datasource/pkg/config"
	"github.com/ekaya-inc/ekaya-datasource/pkg/database"
)

// PostgresImage is the image backing integration tests.
const PostgresImage = "postgres:16-alpine"

// Credentials of the test container.
const (
	TestUser     = "ekaya"
	TestPassword = "test_password"
	TestDatabase = "ekaya_datasource_test"
)

// TestDB is a running PostgreSQL container. It doubles as a live target for
// the postgres session tests.
type TestDB struct {
	Container testcontainers.Container
	ConnStr   string
	Host      string
	Port      int
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB starts the shared container on first use. Tests are skipped in
// short mode since they need Docker.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = startPostgres(context.Background())
	})
	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}
	return sharedTestDB
}

func startPostgres(ctx context.Context) (*TestDB, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        PostgresImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       TestDatabase,
				"POSTGRES_USER":     TestUser,
				"POSTGRES_PASSWORD": TestPassword,
			},
			// readiness is logged once by the init server and once by the real one
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	dbCfg := config.DatabaseConfig{
		Host:     host,
		Port:     mapped.Int(),
		User:     TestUser,
		Password: TestPassword,
		Database: TestDatabase,
		SSLMode:  "disable",
	}
	return &TestDB{
		Container: container,
		ConnStr:   dbCfg.URL(),
		Host:      host,
		Port:      mapped.Int(),
	}, nil
}

// DatasourceDB is the record store schema on the shared container.
type DatasourceDB struct {
	DB      *database.DB
	ConnStr string
}

var (
	sharedDatasourceDB     *DatasourceDB
	sharedDatasourceDBOnce sync.Once
	sharedDatasourceDBErr  error
)

// GetDatasourceDB returns a shared database with the embedded migrations applied.
func GetDatasourceDB(t *testing.T) *DatasourceDB {
	t.Helper()

	testDB := GetTestDB(t)

	sharedDatasourceDBOnce.Do(func() {
		sharedDatasourceDB, sharedDatasourceDBErr = migrateDatasourceDB(context.Background(), testDB)
	})

	if sharedDatasourceDBErr != nil {
		t.Fatalf("Failed to setup datasource database: %v", sharedDatasourceDBErr)
	}

	return sharedDatasourceDB
}

func migrateDatasourceDB(ctx context.Context, testDB *TestDB) (*DatasourceDB, error) {
	if err := database.MigrateURL(testDB.ConnStr, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            testDB.ConnStr,
		MaxConnections: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to datasource database: %w", err)
	}

	return &DatasourceDB{
		DB:      db,
		ConnStr: testDB.ConnStr,
	}, nil
}
