package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
	"github.com/bookbridge/bookbridge-server/internal/backup/stream"
)

// RestoreService restores from backups.
type RestoreService struct {
	client backend.Client
	logger *slog.Logger
}

// NewRestoreService creates a RestoreService.
func NewRestoreService(client backend.Client, logger *slog.Logger) *RestoreService {
	return &RestoreService{client: client, logger: logger}
}

// Restore loads a backup into the backend. Full mode deletes existing rows
// first; merge mode keeps local rows whose IDs collide with backup rows.
// Row-level failures are collected and do not stop the restore.
func (s *RestoreService) Restore(ctx context.Context, path string, opts RestoreOptions) (*RestoreResult, error) {
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("unknown restore mode %q", opts.Mode)
	}

	s.logger.Info("starting restore",
		"path", path,
		"mode", opts.Mode,
		"dry_run", opts.DryRun)

	start := time.Now()

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	manifest, err := readManifest(zr)
	if err != nil {
		return nil, err
	}
	if manifest.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %s", ErrVersionMismatch, manifest.Version)
	}

	if opts.Mode == RestoreModeFull && !opts.DryRun {
		if err := s.wipe(ctx); err != nil {
			return nil, err
		}
	}

	result := &RestoreResult{
		Imported: make(map[string]int, len(tables)),
		Skipped:  make(map[string]int, len(tables)),
	}

	for _, table := range tables {
		rc, err := stream.OpenFile(zr, entityPath(table))
		if errors.Is(err, stream.ErrFileNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", table, err)
		}
		if err := s.restoreTable(ctx, table, stream.NewReader[backend.Row](rc), opts.DryRun, result); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)

	s.logger.Info("restore complete",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
		"duration", result.Duration)

	return result, nil
}

func (s *RestoreService) restoreTable(ctx context.Context, table string, r *stream.Reader[backend.Row], dryRun bool, result *RestoreResult) error {
	for row, err := range r.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			result.Errors = append(result.Errors, RestoreError{Table: table, Error: err.Error()})
			continue
		}
		entityID, _ := row["id"].(string)

		if err := normalizeNumbers(row); err != nil {
			result.Errors = append(result.Errors, RestoreError{Table: table, EntityID: entityID, Error: err.Error()})
			continue
		}
		if dryRun {
			result.Imported[table]++
			continue
		}

		switch err := s.client.Insert(ctx, table, row); {
		case err == nil:
			result.Imported[table]++
		case errors.Is(err, backend.ErrAlreadyExists):
			result.Skipped[table]++
		default:
			result.Errors = append(result.Errors, RestoreError{Table: table, EntityID: entityID, Error: err.Error()})
		}
	}
	return nil
}

// wipe deletes every row, children first.
func (s *RestoreService) wipe(ctx context.Context) error {
	for _, table := range slices.Backward(tables) {
		n, err := s.client.Delete(ctx, table, backend.NotNull("id"))
		if err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		s.logger.Debug("table cleared", "table", table, "rows", n)
	}
	return nil
}

// normalizeNumbers turns json.Number values into int64, the only numeric
// type the backend stores.
func normalizeNumbers(row backend.Row) error {
	for col, v := range row {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		i, err := n.Int64()
		if err != nil {
			return fmt.Errorf("column %s: %w", col, err)
		}
		row[col] = i
	}
	return nil
}

// Validate checks a backup without importing.
func (s *RestoreService) Validate(ctx context.Context, path string) (*ValidationResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []string{fmt.Sprintf("failed to open backup: %v", err)},
		}, nil
	}
	defer zr.Close()

	result := &ValidationResult{Valid: true}

	manifest, err := readManifest(zr)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}
	result.Manifest = manifest

	if manifest.Version != FormatVersion {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("unsupported version %s (want %s)", manifest.Version, FormatVersion))
	}

	for _, table := range tables {
		if table == backend.TableSessions && !manifest.IncludesSessions {
			continue
		}
		rc, err := stream.OpenFile(zr, entityPath(table))
		if err != nil {
			result.Warnings = append(result.Warnings, "missing file: "+entityPath(table))
			continue
		}
		_ = rc.Close()
	}

	return result, nil
}

func readManifest(zr *zip.ReadCloser) (*Manifest, error) {
	rc, err := stream.OpenFile(zr, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidManifest, manifestPath)
	}
	defer rc.Close()

	var manifest Manifest
	if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return &manifest, nil
}
