package ports

import (
	"context"

	"causalkit/domain/core"
)

// ReportLedger persists serialized diagnostic reports for later retrieval.
type ReportLedger interface {
	SaveReport(ctx context.Context, id core.ReportID, estimatorName string, payload map[string]any) error
	GetReport(ctx context.Context, id core.ReportID) (map[string]any, error)
}
