// Package postgres is the persistence layer for observed hostnames. One row
// per (domain, hostname) pair; re-observations touch last_seen and never
// create duplicates.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/subwatch/subwatch/internal/domain"
	"github.com/subwatch/subwatch/internal/logger"
)

// Open connects to Postgres and verifies the connection.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Store persists hostname observations.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, log: log}
}

// KnownHostnames returns the set of hostnames already recorded for a domain.
func (s *Store) KnownHostnames(ctx context.Context, domainName string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hostname FROM subdomains WHERE domain = $1`, domainName)
	if err != nil {
		return nil, fmt.Errorf("query known hostnames: %w", err)
	}
	defer func() { _ = rows.Close() }()

	known := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan hostname: %w", err)
		}
		known[h] = struct{}{}
	}
	return known, rows.Err()
}

// RecordNew inserts a newly observed hostname. If the pair already exists
// (raced with a sibling cycle, or misclassified as new) the row's last_seen
// is touched instead; the caller never sees a duplicate-key error.
func (s *Store) RecordNew(ctx context.Context, domainName, hostname string, earliestLogDate *time.Time) error {
	var earliest sql.NullTime
	if earliestLogDate != nil {
		earliest = sql.NullTime{Time: *earliestLogDate, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subdomains (domain, hostname, earliest_log_date)
		VALUES ($1, $2, $3)
		ON CONFLICT (domain, hostname) DO UPDATE SET last_seen = now()`,
		domainName, hostname, earliest,
	)
	if err != nil {
		return fmt.Errorf("record hostname %s: %w", hostname, err)
	}
	return nil
}

// EarliestDates returns first_seen per hostname, used as a date hint when the
// certificate log did not report a timestamp.
func (s *Store) EarliestDates(ctx context.Context, domainName string, hostnames []string) (map[string]time.Time, error) {
	if len(hostnames) == 0 {
		return map[string]time.Time{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT hostname, first_seen FROM subdomains
		WHERE domain = $1 AND hostname = ANY($2)`,
		domainName, pq.Array(hostnames),
	)
	if err != nil {
		return nil, fmt.Errorf("query first seen dates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]time.Time, len(hostnames))
	for rows.Next() {
		var h string
		var firstSeen time.Time
		if err := rows.Scan(&h, &firstSeen); err != nil {
			return nil, fmt.Errorf("scan first seen: %w", err)
		}
		out[h] = firstSeen
	}
	return out, rows.Err()
}

// AllForDomain lists every recorded hostname for a domain in chronological
// log order, hostnames without a log date last.
func (s *Store) AllForDomain(ctx context.Context, domainName string) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hostname, first_seen, last_seen, earliest_log_date
		FROM subdomains
		WHERE domain = $1
		ORDER BY earliest_log_date ASC NULLS LAST, hostname ASC`,
		domainName,
	)
	if err != nil {
		return nil, fmt.Errorf("query hostnames for %s: %w", domainName, err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.Record
	for rows.Next() {
		rec := domain.Record{Domain: domainName}
		var earliest sql.NullTime
		if err := rows.Scan(&rec.Hostname, &rec.FirstSeen, &rec.LastSeen, &earliest); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if earliest.Valid {
			t := earliest.Time
			rec.EarliestLogDate = &t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountForDomain returns the number of recorded hostnames for a domain.
func (s *Store) CountForDomain(ctx context.Context, domainName string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subdomains WHERE domain = $1`, domainName).Scan(&n)
	return n, err
}

// Reset drops the subdomains table. Destructive; only the reset command
// calls this, behind an explicit confirmation.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS subdomains`); err != nil {
		return fmt.Errorf("drop subdomains table: %w", err)
	}
	return nil
}
