package ozonapi

import (
	"context"
	"time"
)

const (
	analyticsDataLimit = 1000

	// defaultAnalyticsPageDelay spaces out page requests; the analytics
	// endpoint enforces a much stricter rate limit than the rest of the API.
	defaultAnalyticsPageDelay = time.Minute
)

// AnalyticsAPI is the analytics subclient of the Seller API.
type AnalyticsAPI struct {
	client *SellerClient
}

// AnalyticsQuery selects an analytics slice.
type AnalyticsQuery struct {
	// DateFrom and DateTo are YYYY-MM-DD dates.
	DateFrom string
	DateTo   string

	// Dimensions to group by, in order (e.g. DimensionSKU, DimensionDay).
	Dimensions []string

	// Metrics to report (e.g. MetricRevenue).
	Metrics []string

	// Limit per page. Default: 1000.
	Limit int

	// PageDelay is the wait between page requests. Default: 1 minute.
	PageDelay time.Duration
}

// Data fetches analytics rows, paging by offset. Each returned row maps
// dimension names to the dimension ID and metric names to their values.
func (a *AnalyticsAPI) Data(ctx context.Context, query AnalyticsQuery) ([]map[string]any, error) {
	if query.Limit <= 0 {
		query.Limit = analyticsDataLimit
	}
	if query.PageDelay <= 0 {
		query.PageDelay = defaultAnalyticsPageDelay
	}

	var rows []map[string]any
	offset := 0

	for {
		resp, err := a.client.Post(ctx, EndpointAnalyticsData, map[string]any{
			"date_from": query.DateFrom,
			"date_to":   query.DateTo,
			"dimension": query.Dimensions,
			"metrics":   query.Metrics,
			"offset":    offset,
			"limit":     query.Limit,
		})
		if err != nil {
			return nil, err
		}

		data := objectList(objectField(resp, "result"), "data")
		if len(data) == 0 {
			return rows, nil
		}
		offset += len(data)

		for _, d := range data {
			row := map[string]any{}

			if dims, ok := d["dimensions"].([]any); ok {
				for i, dim := range dims {
					if i >= len(query.Dimensions) {
						break
					}
					if m, ok := dim.(map[string]any); ok {
						row[query.Dimensions[i]] = m["id"]
					}
				}
			}

			if metrics, ok := d["metrics"].([]any); ok {
				for i, met := range metrics {
					if i >= len(query.Metrics) {
						break
					}
					row[query.Metrics[i]] = met
				}
			}

			rows = append(rows, row)
		}

		if err := sleepContext(ctx, query.PageDelay); err != nil {
			return nil, err
		}
	}
}
