package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// migrationLockKey serializes schema migration across processes via a
// transaction-scoped advisory lock.
const migrationLockKey = 0x53756277 // "Subw"

// migration is one idempotent schema step. Steps run in order inside a
// single transaction; each must be safe against an already-migrated store.
type migration struct {
	name  string
	apply func(ctx context.Context, tx *sql.Tx, defaultDomain string) error
}

var migrations = []migration{
	{name: "create subdomains table", apply: createSubdomainsTable},
	{name: "add domain column", apply: addDomainColumn},
	{name: "add earliest_log_date column", apply: addEarliestLogDateColumn},
	{name: "ensure unique (domain, hostname)", apply: ensureUniqueIndex},
}

// Migrate brings the schema up to date before any worker touches the store.
// Legacy single-domain rows are attributed to defaultDomain when the domain
// column is introduced.
func (s *Store) Migrate(ctx context.Context, defaultDomain string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}

	for _, m := range migrations {
		if err := m.apply(ctx, tx, defaultDomain); err != nil {
			return fmt.Errorf("migration %q: %w", m.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	s.log.Info("store schema up to date")
	return nil
}

func createSubdomainsTable(ctx context.Context, tx *sql.Tx, _ string) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS subdomains (
			id SERIAL PRIMARY KEY,
			domain TEXT NOT NULL,
			hostname TEXT NOT NULL,
			first_seen TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_seen TIMESTAMPTZ NOT NULL DEFAULT now(),
			earliest_log_date TIMESTAMPTZ
		)`)
	return err
}

// addDomainColumn upgrades the oldest schema, which tracked a single implicit
// domain. Pre-existing rows are assigned to the default domain.
func addDomainColumn(ctx context.Context, tx *sql.Tx, defaultDomain string) error {
	exists, err := columnExists(ctx, tx, "subdomains", "domain")
	if err != nil || exists {
		return err
	}
	if _, err := tx.ExecContext(ctx, `ALTER TABLE subdomains ADD COLUMN domain TEXT`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE subdomains SET domain = $1 WHERE domain IS NULL`, defaultDomain); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `ALTER TABLE subdomains ALTER COLUMN domain SET NOT NULL`)
	return err
}

func addEarliestLogDateColumn(ctx context.Context, tx *sql.Tx, _ string) error {
	exists, err := columnExists(ctx, tx, "subdomains", "earliest_log_date")
	if err != nil || exists {
		return err
	}
	_, err = tx.ExecContext(ctx, `ALTER TABLE subdomains ADD COLUMN earliest_log_date TIMESTAMPTZ`)
	return err
}

func ensureUniqueIndex(ctx context.Context, tx *sql.Tx, _ string) error {
	_, err := tx.ExecContext(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS subdomains_domain_hostname_key
		ON subdomains (domain, hostname)`)
	return err
}

func columnExists(ctx context.Context, tx *sql.Tx, table, column string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_name = $1 AND column_name = $2`,
		table, column,
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
