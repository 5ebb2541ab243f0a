package archive

import (
	"context"
	"fmt"
	"strconv"

	"github.com/wolfman30/clinic-bi/internal/analytics"
	"github.com/wolfman30/clinic-bi/internal/dashboard"
)

// Collect computes every view over the full dataset, plus the overview scoped
// to each location, from the service's current snapshot. Row views use the
// largest page so the export carries as many rows as the API can serve.
func Collect(ctx context.Context, svc *dashboard.Service, runID string) (Export, error) {
	snap := svc.Snapshot()
	if snap == nil {
		return Export{}, dashboard.ErrNotLoaded
	}

	exp := Export{RunID: runID, Version: snap.Version, Source: snap.Source}
	all := analytics.Filter{Limit: analytics.MaxPageSize}

	for _, view := range analytics.Views {
		body, err := svc.Compute(ctx, string(view), all)
		if err != nil {
			return Export{}, fmt.Errorf("archive: compute %s: %w", view, err)
		}
		exp.Documents = append(exp.Documents, Document{Name: string(view), Body: body})
	}

	for _, loc := range snap.Dataset.Locations {
		id := strconv.FormatInt(int64(loc.ID), 10)
		body, err := svc.Compute(ctx, string(analytics.ViewOverview), analytics.Filter{Location: id})
		if err != nil {
			return Export{}, fmt.Errorf("archive: compute overview for location %s: %w", id, err)
		}
		exp.Documents = append(exp.Documents, Document{Name: "overview-location-" + id, Body: body})
	}
	return exp, nil
}
