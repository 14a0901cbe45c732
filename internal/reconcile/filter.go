package reconcile

import (
	"strings"

	"go.uber.org/zap"

	"github.com/pressdesk/brandbatch/internal/model"
)

// FilterValid drops rows never attributed to a brand: nil, blank, or the
// reserved "not applicable" tag. Pure aside from logging the counts.
func FilterValid(rows []model.ConsolidatedRow) []model.ConsolidatedRow {
	out := make([]model.ConsolidatedRow, 0, len(rows))
	for _, row := range rows {
		if row.Brand == nil {
			continue
		}
		if *row.Brand == model.SentinelNoBrand || strings.TrimSpace(*row.Brand) == "" {
			continue
		}
		out = append(out, row)
	}

	zap.L().Info("reconcile: validity filter applied",
		zap.Int("kept", len(out)),
		zap.Int("removed", len(rows)-len(out)),
	)
	return out
}
