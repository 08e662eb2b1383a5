// Package filestore keeps generated workbooks under UUID names and tracks
// them in the metadata database.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finparser/db"
	"finparser/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Supported file types.
const (
	TypeExcel = "excel"
	TypeCSV   = "csv"
)

var (
	// ErrNotFound is returned for unknown file ids.
	ErrNotFound = errors.New("filestore: file not found")

	// ErrUnsupportedType is returned for file types other than excel and csv.
	ErrUnsupportedType = errors.New("filestore: unsupported file type")
)

// Extension returns the stored file extension for fileType.
func Extension(fileType string) (string, error) {
	switch fileType {
	case TypeExcel:
		return ".xlsx", nil
	case TypeCSV:
		return ".csv", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, fileType)
}

// Manager stores files in a directory and their metadata in a repository.
type Manager struct {
	dir    string
	repo   *db.Repository
	logger *logging.Logger
	now    func() time.Time
}

// NewManager creates a Manager that stores files in dir.
func NewManager(dir string, repo *db.Repository, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Manager{
		dir:    dir,
		repo:   repo,
		logger: logger.Named("filestore"),
		now:    time.Now,
	}, nil
}

// Dir returns the storage directory.
func (m *Manager) Dir() string {
	return m.dir
}

// OriginalName is the download name offered for a company's file.
func OriginalName(company, fileType string) string {
	ext, err := Extension(fileType)
	if err != nil {
		ext = ""
	}
	return fmt.Sprintf("%s_financial_statement%s", strings.ToUpper(company), ext)
}

// Save copies srcPath into storage under a new id and records it.
func (m *Manager) Save(ctx context.Context, srcPath, company, fileType string) (*db.FileRecord, error) {
	ext, err := Extension(fileType)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	dst := filepath.Join(m.dir, id+ext)
	size, err := copyFile(srcPath, dst)
	if err != nil {
		return nil, err
	}

	rec := &db.FileRecord{
		ID:           id,
		CompanyName:  company,
		FileType:     fileType,
		OriginalName: OriginalName(company, fileType),
		StoredPath:   dst,
		FileSize:     size,
		CreatedAt:    m.now(),
	}
	if err := m.repo.Insert(ctx, rec); err != nil {
		os.Remove(dst)
		return nil, err
	}

	m.logger.Info("Stored file",
		zap.String("file_id", id),
		zap.String("company", company),
		zap.String("type", fileType),
		zap.Int64("size", size))
	return rec, nil
}

// Get returns the record for id and counts a download.
func (m *Manager) Get(ctx context.Context, id string) (*db.FileRecord, error) {
	rec, err := m.repo.IncrementDownloads(ctx, id)
	return rec, mapErr(err)
}

// Lookup returns the record for id without counting a download.
func (m *Manager) Lookup(ctx context.Context, id string) (*db.FileRecord, error) {
	rec, err := m.repo.Get(ctx, id)
	return rec, mapErr(err)
}

// List returns records newest first, optionally filtered by company.
func (m *Manager) List(ctx context.Context, company string) ([]db.FileRecord, error) {
	return m.repo.List(ctx, company)
}

// Count returns the number of stored files.
func (m *Manager) Count(ctx context.Context) (int64, error) {
	return m.repo.Count(ctx)
}

// Delete removes the stored file and its record.
func (m *Manager) Delete(ctx context.Context, id string) error {
	rec, err := m.repo.Get(ctx, id)
	if err != nil {
		return mapErr(err)
	}
	if err := os.Remove(rec.StoredPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", rec.StoredPath, err)
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return mapErr(err)
	}
	m.logger.Info("Deleted file", zap.String("file_id", id))
	return nil
}

// Cleanup removes files created more than olderThan ago and returns how
// many records were deleted.
func (m *Manager) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	expired, err := m.repo.ListOlderThan(ctx, m.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(expired))
	for _, rec := range expired {
		if err := os.Remove(rec.StoredPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("Failed to remove expired file",
				zap.String("file_id", rec.ID),
				zap.Error(err))
			continue
		}
		ids = append(ids, rec.ID)
	}

	deleted, err := m.repo.DeleteRecords(ctx, ids)
	if err != nil {
		return 0, err
	}
	return int(deleted), nil
}

func mapErr(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dst, err)
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	return n, nil
}
