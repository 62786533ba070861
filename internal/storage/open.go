package storage

import (
	"context"
	"errors"
	"strings"

	logx "chorebot/pkg/logx"
)

// Store persists snapshots and audit entries.
//
// Load returns an empty Snapshot (and no error) when nothing has been saved
// yet. Save replaces the stored snapshot as a whole; a failed Save leaves the
// previous snapshot intact.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	AppendAudit(ctx context.Context, e AuditEntry) error
	Close() error
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "", "file", "json":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory", "none":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
