package audit

import (
	"context"

	"github.com/viant/runway/service/dao"
	"github.com/viant/runway/service/dao/store"
)

// Memory keeps records in process
type Memory struct {
	store *store.MemoryStore[string, Entry]
}

// NewMemory creates an in-memory recorder
func NewMemory() *Memory {
	return &Memory{store: store.NewMemoryStore[string, Entry](
		func(e *Entry) string { return e.ID },
		func(e *Entry, name string) (string, bool) {
			switch name {
			case "plane_id":
				return e.PlaneID, true
			case "decision":
				return string(e.Decision), true
			}
			return "", false
		},
	)}
}

// Record stores the entry
func (m *Memory) Record(ctx context.Context, entry *Entry) error {
	return m.store.Save(ctx, entry)
}

// List returns records in record order, all of them when planeID is empty
func (m *Memory) List(ctx context.Context, planeID string) ([]*Entry, error) {
	if planeID == "" {
		return m.store.List(ctx)
	}
	return m.store.List(ctx, dao.NewParameter("plane_id", planeID))
}

// Decisions returns records with the supplied decision
func (m *Memory) Decisions(ctx context.Context, decision Decision) ([]*Entry, error) {
	return m.store.List(ctx, dao.NewParameter("decision", string(decision)))
}

var _ Recorder = (*Memory)(nil)
