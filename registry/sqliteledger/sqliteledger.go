// Package sqliteledger is a durable ledger transport on SQLite
// (modernc.org/sqlite, pure Go, no cgo). One database file holds the whole
// ledger; appends run in a transaction so the already-exists check, the
// quota check, and the insert are atomic.
package sqliteledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/codethor0/DecentraFile/fingerprint"
	"github.com/codethor0/DecentraFile/registry"
)

// Ledger implements registry.Transport over a SQLite database.
type Ledger struct {
	db *sql.DB
}

var _ registry.Transport = (*Ledger)(nil)

// Open opens (and if necessary creates) the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqliteledger: open db: %w", err)
	}
	// The ledger is single-writer; one connection sidesteps SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqliteledger: init schema: %w", err)
	}
	return l, nil
}

func (l *Ledger) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint BLOB UNIQUE NOT NULL,
		blob BLOB NOT NULL,
		owner TEXT NOT NULL,
		signature BLOB NOT NULL,
		timestamp_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_records_owner ON records(owner);
	`
	_, err := l.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) Append(ctx context.Context, sub registry.Submission) error {
	if err := registry.VerifySubmission(sub); err != nil {
		return err
	}
	rec := sub.Record

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE fingerprint = ?", rec.Fingerprint[:],
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return registry.ErrAlreadyExists
	}

	var owned int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE owner = ?", rec.Owner,
	).Scan(&owned)
	if err != nil {
		return err
	}
	if owned >= registry.MaxPerOwner {
		return registry.ErrQuotaExceeded
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO records (fingerprint, blob, owner, signature, timestamp_ms) VALUES (?, ?, ?, ?, ?)",
		rec.Fingerprint[:], rec.Blob, rec.Owner, sub.Signature, rec.Timestamp,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (l *Ledger) Record(ctx context.Context, fp fingerprint.Fingerprint) (registry.FileRecord, error) {
	var (
		fpBytes []byte
		rec     registry.FileRecord
	)
	err := l.db.QueryRowContext(ctx,
		"SELECT fingerprint, blob, owner, timestamp_ms FROM records WHERE fingerprint = ?", fp[:],
	).Scan(&fpBytes, &rec.Blob, &rec.Owner, &rec.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.FileRecord{}, registry.ErrNotFound
	}
	if err != nil {
		return registry.FileRecord{}, err
	}
	copy(rec.Fingerprint[:], fpBytes)
	return rec, nil
}

func (l *Ledger) Has(ctx context.Context, fp fingerprint.Fingerprint) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE fingerprint = ?", fp[:],
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *Ledger) ListOwner(ctx context.Context, owner string) ([]fingerprint.Fingerprint, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT fingerprint FROM records WHERE owner = ? ORDER BY seq ASC", owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fps []fingerprint.Fingerprint
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var fp fingerprint.Fingerprint
		if len(raw) != len(fp) {
			return nil, fmt.Errorf("sqliteledger: stored fingerprint has %d bytes", len(raw))
		}
		copy(fp[:], raw)
		fps = append(fps, fp)
	}
	return fps, rows.Err()
}

func (l *Ledger) CountOwner(ctx context.Context, owner string) (int, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE owner = ?", owner,
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
