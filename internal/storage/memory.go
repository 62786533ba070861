package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process Store. Snapshots are deep-copied on the way in and
// out so callers never share backing arrays with the store.
type Memory struct {
	mu     sync.Mutex
	snap   []byte
	audit  []AuditEntry
	closed bool
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(ctx context.Context) (Snapshot, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Snapshot{}, ErrDisabled
	}
	var s Snapshot
	if len(m.snap) == 0 {
		return s, nil
	}
	err := json.Unmarshal(m.snap, &s)
	return s, err
}

func (m *Memory) Save(ctx context.Context, s Snapshot) error {
	_ = ctx
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDisabled
	}
	m.snap = b
	return nil
}

func (m *Memory) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrDisabled
	}
	m.audit = append(m.audit, e)
	return nil
}

// Audit returns a copy of the audit entries appended so far.
func (m *Memory) Audit() []AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AuditEntry(nil), m.audit...)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
