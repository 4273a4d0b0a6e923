package api

import (
	"context"
	"fmt"
	"sync"

	"causalkit/domain/core"
)

// MemoryLedger is a process-local report store, used when no database is
// configured and in tests.
type MemoryLedger struct {
	mu      sync.RWMutex
	reports map[core.ReportID]storedReport
}

type storedReport struct {
	estimatorName string
	payload       map[string]any
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{reports: make(map[core.ReportID]storedReport)}
}

func (l *MemoryLedger) SaveReport(_ context.Context, id core.ReportID, estimatorName string, payload map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reports[id] = storedReport{estimatorName: estimatorName, payload: payload}
	return nil
}

func (l *MemoryLedger) GetReport(_ context.Context, id core.ReportID) (map[string]any, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s not found", id)
	}
	return r.payload, nil
}
