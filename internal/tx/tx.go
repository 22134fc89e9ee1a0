// Package tx is the transaction boundary. The engine routes BEGIN/COMMIT/
// ROLLBACK markers here; they are accepted no-ops today, and mutations keep
// acting directly on storage. A real implementation would have to make the
// mutations between Begin and Commit all-or-nothing; until then this package
// only tracks the markers.
package tx

import (
	"log/slog"
	"sync/atomic"
)

type Manager struct {
	log    *slog.Logger
	begun  atomic.Int64
	closed atomic.Int64
}

func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{log: log}
}

func (m *Manager) Begin() error {
	m.begun.Add(1)
	m.log.Debug("tx: begin accepted (no-op)")
	return nil
}

func (m *Manager) Commit() error {
	m.closed.Add(1)
	m.log.Debug("tx: commit accepted (no-op)")
	return nil
}

func (m *Manager) Rollback() error {
	m.closed.Add(1)
	m.log.Debug("tx: rollback accepted (no-op)")
	return nil
}

// Active reports markers begun but not yet committed or rolled back.
func (m *Manager) Active() int64 {
	return m.begun.Load() - m.closed.Load()
}
