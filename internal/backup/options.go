package backup

import "time"

// BackupOptions configures backup creation.
type BackupOptions struct {
	IncludeSessions bool   // Include sign-in sessions; restored users must sign in again otherwise
	OutputPath      string // Where to write the backup file
}

// DefaultBackupOptions returns sensible defaults.
func DefaultBackupOptions() BackupOptions {
	return BackupOptions{IncludeSessions: false}
}

// RestoreOptions configures restoration.
type RestoreOptions struct {
	Mode   RestoreMode
	DryRun bool // Validate without writing
}

// RestoreMode determines how to handle existing data.
type RestoreMode string

const (
	// RestoreModeFull wipes existing data and restores from backup.
	RestoreModeFull RestoreMode = "full"

	// RestoreModeMerge adds backup rows, keeping local rows on ID conflicts.
	RestoreModeMerge RestoreMode = "merge"
)

// Valid returns true if the restore mode is recognized.
func (m RestoreMode) Valid() bool {
	switch m {
	case RestoreModeFull, RestoreModeMerge:
		return true
	default:
		return false
	}
}

// BackupResult contains the outcome of a backup operation.
type BackupResult struct {
	Path     string         `json:"path"`
	Size     int64          `json:"size"`
	Counts   map[string]int `json:"counts"`
	Duration time.Duration  `json:"duration"`
	Checksum string         `json:"checksum"`
}

// BackupInfo describes an existing backup.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// RestoreResult contains the outcome of a restore operation.
type RestoreResult struct {
	Imported map[string]int `json:"imported"`
	Skipped  map[string]int `json:"skipped"`
	Errors   []RestoreError `json:"errors,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// RestoreError describes a non-fatal error during restore.
type RestoreError struct {
	Table    string `json:"table"`
	EntityID string `json:"entity_id,omitempty"`
	Error    string `json:"error"`
}

// ValidationResult describes backup validity.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Manifest *Manifest `json:"manifest,omitempty"`
	Errors   []string  `json:"errors,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}
