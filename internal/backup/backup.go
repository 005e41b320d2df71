package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/backup/stream"
)

const (
	fileSuffix = ".bookbridge.zip"
	pageSize   = 500
)

// BackupService manages backup creation and listing. Request watermarks live
// outside the backend and are not included.
type BackupService struct {
	client     backend.Client
	backupDir  string
	serverName string
	version    string
	logger     *slog.Logger
}

// NewBackupService creates a BackupService.
func NewBackupService(client backend.Client, backupDir, serverName, version string, logger *slog.Logger) *BackupService {
	return &BackupService{
		client:     client,
		backupDir:  backupDir,
		serverName: serverName,
		version:    version,
		logger:     logger,
	}
}

// Create writes every table to a new backup archive.
func (s *BackupService) Create(ctx context.Context, opts BackupOptions) (*BackupResult, error) {
	start := time.Now()

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	outputPath := opts.OutputPath
	if outputPath == "" {
		timestamp := time.Now().UTC().Format("2006-01-02-150405")
		outputPath = filepath.Join(s.backupDir, "backup-"+timestamp+fileSuffix)
	}

	s.logger.Info("creating backup",
		"output", outputPath,
		"include_sessions", opts.IncludeSessions)

	// Write to temp file, rename on success.
	tmpPath := outputPath + ".tmp"
	f, err := os.Create(tmpPath) //#nosec G304 -- path is the configured backup dir or an operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	hash := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, hash))

	manifest := &Manifest{
		Version:          FormatVersion,
		CreatedAt:        time.Now().UTC(),
		ServerName:       s.serverName,
		AppVersion:       s.version,
		Counts:           make(map[string]int, len(tables)),
		IncludesSessions: opts.IncludeSessions,
	}

	for _, table := range tables {
		if table == backend.TableSessions && !opts.IncludeSessions {
			continue
		}
		n, err := s.exportTable(ctx, zw, table)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", table, err)
		}
		manifest.Counts[table] = n
	}

	mw, err := zw.Create(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("create manifest: %w", err)
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync backup: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat backup: %w", err)
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}

	result := &BackupResult{
		Path:     outputPath,
		Size:     info.Size(),
		Counts:   manifest.Counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}

	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"duration", result.Duration,
		"checksum", result.Checksum)

	return result, nil
}

func (s *BackupService) exportTable(ctx context.Context, zw *zip.Writer, table string) (int, error) {
	w, err := stream.NewWriter(zw, entityPath(table))
	if err != nil {
		return 0, err
	}

	for offset := 0; ; offset += pageSize {
		rows, err := s.client.Select(ctx, table, backend.Query{
			Order:  []backend.Order{backend.Asc("id")},
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return w.Count(), err
		}
		for _, row := range rows {
			if err := w.Write(row); err != nil {
				return w.Count(), err
			}
		}
		if len(rows) < pageSize {
			return w.Count(), nil
		}
	}
}

// List returns all available backups, newest first.
func (s *BackupService) List(ctx context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		backups = append(backups, BackupInfo{
			ID:        strings.TrimSuffix(entry.Name(), fileSuffix),
			Path:      filepath.Join(s.backupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})

	return backups, nil
}

// Get returns a backup by ID.
func (s *BackupService) Get(ctx context.Context, id string) (*BackupInfo, error) {
	path := s.GetPath(id)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBackupNotFound
		}
		return nil, err
	}

	return &BackupInfo{
		ID:        id,
		Path:      path,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
	}, nil
}

// Delete removes a backup.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return os.Remove(s.GetPath(id))
}

// GetPath returns the file path for a backup ID.
func (s *BackupService) GetPath(id string) string {
	return filepath.Join(s.backupDir, filepath.Base(id)+fileSuffix)
}
