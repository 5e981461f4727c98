package gormrepository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"leaguetrades/internal/config"
	"leaguetrades/internal/db"
	"leaguetrades/internal/models"
)

// setupStore starts a PostgreSQL container, migrates the schema and returns a
// Store on it. The container is terminated through t.Cleanup.
func setupStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("leaguetrades"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	conn, err := db.Open(config.DBConfig{DSN: dsn, MaxOpenConns: 10, MaxIdleConns: 2})
	require.NoError(t, err, "failed to open db")
	t.Cleanup(func() { _ = db.Close(conn) })

	require.NoError(t, db.AutoMigrate(conn), "failed to migrate")
	return New(conn.Gorm)
}

// seedLeague inserts two teams owned by users 11 and 12, one player each and
// one pick for team 1.
func seedLeague(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	gdb := s.db.WithContext(ctx)
	require.NoError(t, gdb.Create(&[]models.Season{
		{ID: 1, Name: "2025"},
		{ID: 2, Name: "2026", IsActive: true},
	}).Error)
	require.NoError(t, gdb.Create(&[]models.Team{
		{ID: 1, Name: "Alpha", Abbreviation: "ALP", UserID: ptr[uint64](11)},
		{ID: 2, Name: "Bravo", Abbreviation: "BRV", UserID: ptr[uint64](12)},
	}).Error)
	require.NoError(t, gdb.Create(&[]models.Player{
		{ID: 101, Name: "First", TeamID: ptr[uint64](1)},
		{ID: 201, Name: "Second", TeamID: ptr[uint64](2)},
	}).Error)
	require.NoError(t, gdb.Create(&models.Pick{ID: 501, SeasonID: 2, Round: 1, OriginalTeamID: 1, CurrentTeamID: 1}).Error)
}

func ptr[T any](v T) *T {
	return &v
}
