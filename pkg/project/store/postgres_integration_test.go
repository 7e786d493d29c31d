//go:build integration

package store

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

// startPostgres starts a throwaway PostgreSQL container and returns a
// matching database config.
func startPostgres(t *testing.T) *DatabaseConfig {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("refperm_test"),
		tcpostgres.WithUsername("refperm"),
		tcpostgres.WithPassword("refperm"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return &DatabaseConfig{
		Type: DatabaseTypePostgres,
		Postgres: PostgresConfig{
			Host:     host,
			Port:     port.Int(),
			Database: "refperm_test",
			User:     "refperm",
			Password: "refperm",
			SSLMode:  "disable",
		},
	}
}

func TestGORMStore_Postgres(t *testing.T) {
	cfg := startPostgres(t)

	runStoreConformance(t, func(t *testing.T) Store {
		s, err := NewGORMStore(cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		// Subtests share one database; children are emptied before parents.
		models := allModels()
		slices.Reverse(models)
		for _, m := range models {
			require.NoError(t, s.DB().Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error)
		}
		return s
	})
}
