// Package ledger keeps a durable history of processed batches and the
// documents they produced, in a local SQLite database.
//
// Recording is best-effort from the caller's point of view: transports
// log and continue when the ledger is unavailable rather than failing
// requests over bookkeeping.
package ledger

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring"
	_ "modernc.org/sqlite"
)

// Document statuses recorded in the documents table.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Document is one generated (or failed) document inside a batch.
type Document struct {
	JobIndex int
	Address  string
	Format   string
	Location string
	Status   string
	Error    string
}

// Batch is one recorded unit of work: a single request or one record of
// a batch envelope.
type Batch struct {
	ID         string
	Source     string // "http", "batch", "cli", "mcp"
	ReceivedAt time.Time
	Documents  []Document
}

// Summary is one batches row as read back by Recent.
type Summary struct {
	ID         string
	Source     string
	ReceivedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
}

// Ledger wraps the history database.
type Ledger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	received_at INTEGER NOT NULL,
	total INTEGER NOT NULL,
	succeeded INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	failed_set BLOB
);

CREATE TABLE IF NOT EXISTS documents (
	batch_id TEXT NOT NULL,
	job_index INTEGER NOT NULL,
	address TEXT NOT NULL,
	format TEXT NOT NULL,
	location TEXT,
	status TEXT NOT NULL,
	error TEXT,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (batch_id, job_index)
);
`

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Record writes one batch and its documents in a single transaction.
// Failed job indices are additionally kept as a roaring bitmap on the
// batches row, so retry tooling can pull the failure set without scanning
// the documents table.
func (l *Ledger) Record(ctx context.Context, b Batch) error {
	succeeded := 0
	failedSet := roaring.New()
	for _, d := range b.Documents {
		if d.Status == StatusOK {
			succeeded++
		} else {
			failedSet.Add(uint32(d.JobIndex))
		}
	}

	var blob []byte
	if !failedSet.IsEmpty() {
		var buf bytes.Buffer
		if _, err := failedSet.WriteTo(&buf); err != nil {
			return fmt.Errorf("serialize failed set: %w", err)
		}
		blob = buf.Bytes()
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches (id, source, received_at, total, succeeded, failed, failed_set)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Source, b.ReceivedAt.UnixMilli(),
		len(b.Documents), succeeded, len(b.Documents)-succeeded, blob,
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record batch %s: %w", b.ID, err)
	}

	for _, d := range b.Documents {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO documents (batch_id, job_index, address, format, location, status, error, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, d.JobIndex, d.Address, d.Format, d.Location, d.Status, d.Error,
			b.ReceivedAt.UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record document %d of batch %s: %w", d.JobIndex, b.ID, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit batch summaries, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Summary, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, source, received_at, total, succeeded, failed
		 FROM batches ORDER BY received_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var s Summary
		var ms int64
		if err := rows.Scan(&s.ID, &s.Source, &ms, &s.Total, &s.Succeeded, &s.Failed); err != nil {
			return nil, err
		}
		s.ReceivedAt = time.UnixMilli(ms)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Documents returns a batch's documents in job order.
func (l *Ledger) Documents(ctx context.Context, batchID string) ([]Document, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT job_index, address, format, location, status, error
		 FROM documents WHERE batch_id = ? ORDER BY job_index`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list documents of %s: %w", batchID, err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		var location, errMsg sql.NullString
		if err := rows.Scan(&d.JobIndex, &d.Address, &d.Format, &location, &d.Status, &errMsg); err != nil {
			return nil, err
		}
		d.Location = location.String
		d.Error = errMsg.String
		out = append(out, d)
	}
	return out, rows.Err()
}

// FailedIndices returns the failed job indices of a batch, decoded from
// its stored bitmap. A fully successful batch yields an empty slice.
func (l *Ledger) FailedIndices(ctx context.Context, batchID string) ([]uint32, error) {
	var blob []byte
	err := l.db.QueryRowContext(ctx,
		`SELECT failed_set FROM batches WHERE id = ?`, batchID).Scan(&blob)
	if err != nil {
		return nil, fmt.Errorf("batch %s: %w", batchID, err)
	}
	if len(blob) == 0 {
		return nil, nil
	}
	bm := roaring.New()
	if _, err := bm.ReadFrom(bytes.NewReader(blob)); err != nil {
		return nil, fmt.Errorf("decode failed set of %s: %w", batchID, err)
	}
	return bm.ToArray(), nil
}

// Close releases the database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}
