package backup

import (
	"slices"
	"time"

	"github.com/bookbridge/bookbridge-server/internal/backend"
)

// FormatVersion is the backup format version. Increment major on breaking changes.
const FormatVersion = "1.0"

const manifestPath = "manifest.json"

// Manifest describes backup contents and metadata.
type Manifest struct {
	Version    string    `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	ServerName string    `json:"server_name"`
	AppVersion string    `json:"app_version"`

	// Counts holds rows written per table.
	Counts map[string]int `json:"counts"`

	IncludesSessions bool `json:"includes_sessions"`
}

// tables lists what a backup holds, parents before children so a restore
// never inserts a row ahead of the row it references.
var tables = []string{
	backend.TableUsers,
	backend.TableProfiles,
	backend.TableSessions,
	backend.TableBooks,
	backend.TableBookRequests,
	backend.TableExchanges,
	backend.TableNotifications,
}

func entityPath(table string) string {
	return "entities/" + table + ".jsonl"
}

// Tables returns the backed-up tables in restore order.
func Tables() []string {
	return slices.Clone(tables)
}
