package postgres

import (
	"context"
	"fmt"
)

const resetDemoDataSQL = `
TRUNCATE TABLE outbox_messages, order_lines, orders RESTART IDENTITY CASCADE;
DELETE FROM articles WHERE id > 5;
DELETE FROM clients WHERE id > 3;
UPDATE articles SET amount = CASE id
    WHEN 1 THEN 100
    WHEN 2 THEN 50
    WHEN 3 THEN 40
    WHEN 4 THEN 25
    WHEN 5 THEN 10
    ELSE amount
END;
`

// ResetDemoData применяет все миграции, удаляет заказы и события outbox
// и возвращает демонстрационные остатки к значениям из 0002_seed_demo_data.
func (s *Store) ResetDemoData(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}
	if err := s.MigrateUp(ctx, 0); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, resetDemoDataSQL); err != nil {
		return fmt.Errorf("reset demo data: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed tx: %w", err)
	}
	return nil
}
