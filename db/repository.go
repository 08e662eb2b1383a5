package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("db: file record not found")

// timeLayout is fixed width so that created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// FileRecord describes a generated file kept in storage.
type FileRecord struct {
	ID            string    `json:"file_id"`
	CompanyName   string    `json:"company_name"`
	FileType      string    `json:"file_type"`
	OriginalName  string    `json:"original_name"`
	StoredPath    string    `json:"stored_path"`
	FileSize      int64     `json:"file_size"`
	DownloadCount int       `json:"download_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// Repository reads and writes file_records.
type Repository struct {
	db *Database
}

// NewRepository creates a Repository on db.
func NewRepository(db *Database) *Repository {
	return &Repository{db: db}
}

const selectColumns = `SELECT id, company_name, file_type, original_name, stored_path,
	file_size, download_count, created_at FROM file_records`

// Insert stores rec. A zero CreatedAt is set to now.
func (r *Repository) Insert(ctx context.Context, rec *FileRecord) error {
	conn, err := r.db.conn()
	if err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	_, err = conn.ExecContext(ctx, `
		INSERT INTO file_records (
			id, company_name, file_type, original_name, stored_path,
			file_size, download_count, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CompanyName, rec.FileType, rec.OriginalName, rec.StoredPath,
		rec.FileSize, rec.DownloadCount, formatTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert file record: %w", err)
	}
	return nil
}

// Get returns the record with id.
func (r *Repository) Get(ctx context.Context, id string) (*FileRecord, error) {
	conn, err := r.db.conn()
	if err != nil {
		return nil, err
	}
	rec, err := scanRecord(conn.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

// IncrementDownloads bumps the download counter and returns the updated record.
func (r *Repository) IncrementDownloads(ctx context.Context, id string) (*FileRecord, error) {
	conn, err := r.db.conn()
	if err != nil {
		return nil, err
	}

	res, err := conn.ExecContext(ctx,
		`UPDATE file_records SET download_count = download_count + 1 WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update download count: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.Get(ctx, id)
}

// List returns records newest first. A non-empty company filters
// case-insensitively.
func (r *Repository) List(ctx context.Context, company string) ([]FileRecord, error) {
	conn, err := r.db.conn()
	if err != nil {
		return nil, err
	}

	query := selectColumns
	var args []interface{}
	if company != "" {
		query += ` WHERE company_name = ? COLLATE NOCASE`
		args = append(args, company)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list file records: %w", err)
	}
	return scanRecords(rows)
}

// ListOlderThan returns records created before cutoff, oldest first.
func (r *Repository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]FileRecord, error) {
	conn, err := r.db.conn()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		selectColumns+` WHERE created_at < ? ORDER BY created_at ASC`, formatTime(cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to query expired records: %w", err)
	}
	return scanRecords(rows)
}

// Delete removes the record with id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	conn, err := r.db.conn()
	if err != nil {
		return err
	}
	res, err := conn.ExecContext(ctx, `DELETE FROM file_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Count returns the number of records.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	conn, err := r.db.conn()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM file_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count file records: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*FileRecord, error) {
	var (
		rec     FileRecord
		created string
	)
	err := s.Scan(&rec.ID, &rec.CompanyName, &rec.FileType, &rec.OriginalName, &rec.StoredPath,
		&rec.FileSize, &rec.DownloadCount, &created)
	if err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("invalid created_at %q for %s: %w", created, rec.ID, err)
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]FileRecord, error) {
	defer rows.Close()

	records := []FileRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate file records: %w", err)
	}
	return records, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
