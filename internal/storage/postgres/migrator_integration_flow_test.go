package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func countRowsForIntegrationTest(t *testing.T, store *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, store.DB().QueryRowContext(context.Background(), `SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func tableExistsForIntegrationTest(t *testing.T, store *Store, table string) bool {
	t.Helper()
	var exists bool
	require.NoError(t, store.DB().QueryRowContext(context.Background(),
		`SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists))
	return exists
}

func requireMigrationStatus(t *testing.T, store *Store, wantVersion int64, wantCount int) {
	t.Helper()
	version, count, err := store.MigrationStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, wantVersion, version, "schema version")
	require.Equal(t, wantCount, count, "applied migrations")
}

func TestMigrator_PostgresSchemaLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	t.Cleanup(func() {
		_ = store.MigrateUp(context.Background(), 0)
	})

	require.NoError(t, store.MigrateDown(ctx, 100))
	requireMigrationStatus(t, store, 0, 0)
	require.False(t, tableExistsForIntegrationTest(t, store, "articles"))

	// Только схема: таблицы есть, демо-данных нет.
	require.NoError(t, store.MigrateUp(ctx, 1))
	requireMigrationStatus(t, store, 1, 1)
	for _, table := range []string{"articles", "clients", "orders", "order_lines", "outbox_messages"} {
		require.True(t, tableExistsForIntegrationTest(t, store, table), table)
	}
	require.Zero(t, countRowsForIntegrationTest(t, store, "articles"))

	require.NoError(t, store.MigrateUp(ctx, 0))
	requireMigrationStatus(t, store, 2, 2)
	require.Equal(t, 5, countRowsForIntegrationTest(t, store, "articles"))
	require.Equal(t, 3, countRowsForIntegrationTest(t, store, "clients"))

	article, err := NewShopRepository(store).GetArticle(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Bleistift", article.Description)
	require.Equal(t, int64(100), article.Amount)

	_, err = store.DB().ExecContext(ctx, `UPDATE articles SET amount = -1 WHERE id = 1`)
	var pgErr *pgconn.PgError
	require.True(t, errors.As(err, &pgErr), "expected postgres error, got %v", err)
	require.Equal(t, "23514", pgErr.Code)
	require.Equal(t, "articles_amount_non_negative", pgErr.ConstraintName)

	require.NoError(t, store.MigrateUp(ctx, 0))
	requireMigrationStatus(t, store, 2, 2)
	require.Equal(t, 5, countRowsForIntegrationTest(t, store, "articles"))

	// Откат сида удаляет демо-данные, схема остаётся.
	require.NoError(t, store.MigrateDown(ctx, 1))
	requireMigrationStatus(t, store, 1, 1)
	require.Zero(t, countRowsForIntegrationTest(t, store, "articles"))
	require.Zero(t, countRowsForIntegrationTest(t, store, "clients"))
	require.True(t, tableExistsForIntegrationTest(t, store, "orders"))

	require.NoError(t, store.MigrateDown(ctx, 0))
	requireMigrationStatus(t, store, 0, 0)
	require.False(t, tableExistsForIntegrationTest(t, store, "outbox_messages"))

	require.NoError(t, store.MigrateDown(ctx, 1))
	requireMigrationStatus(t, store, 0, 0)
}

func TestMigrator_GuardsAndUnsupportedDirection(t *testing.T) {
	var nilStore *Store
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.Error(t, nilStore.MigrateUp(ctx, 0))
	require.Error(t, nilStore.MigrateDown(ctx, 1))
	_, _, err := nilStore.MigrationStatus(ctx)
	require.Error(t, err)

	store := openRawPostgresStoreForIntegrationTest(t)
	require.Error(t, store.migrate(ctx, migrationDirection("invalid"), 0))
}
