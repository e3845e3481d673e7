package ozonapi

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	productListLimit     = 1000
	productInfoBatchSize = 1000
)

// ProductsAPI is the products subclient of the Seller API.
type ProductsAPI struct {
	client *SellerClient
}

// ProductsByVisibility fetches all products matching one visibility filter,
// following last_id cursor pagination until the listing is exhausted.
func (a *ProductsAPI) ProductsByVisibility(ctx context.Context, visibility string) ([]map[string]any, error) {
	var items []map[string]any
	lastID := ""

	for {
		body := map[string]any{
			"filter": map[string]any{"visibility": visibility},
			"limit":  productListLimit,
		}
		if lastID != "" {
			body["last_id"] = lastID
		}

		resp, err := a.client.Post(ctx, EndpointProductList, body)
		if err != nil {
			return nil, err
		}

		result := objectField(resp, "result")
		items = append(items, objectList(result, "items")...)

		lastID, _ = result["last_id"].(string)
		if lastID == "" {
			return items, nil
		}
	}
}

// Products fetches products across several visibility filters concurrently
// and merges the results. Default filters: ALL, ARCHIVED, INVISIBLE.
func (a *ProductsAPI) Products(ctx context.Context, visibilities ...string) ([]map[string]any, error) {
	if len(visibilities) == 0 {
		visibilities = []string{VisibilityAll, VisibilityArchived, VisibilityInvisible}
	}

	results := make([][]map[string]any, len(visibilities))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range visibilities {
		g.Go(func() error {
			items, err := a.ProductsByVisibility(gctx, v)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []map[string]any
	for _, items := range results {
		all = append(all, items...)
	}
	return all, nil
}

// ProductInfo fetches detailed product info for the given offer IDs, batching
// requests for large lists.
func (a *ProductsAPI) ProductInfo(ctx context.Context, offerIDs []string) ([]map[string]any, error) {
	var all []map[string]any

	for start := 0; start < len(offerIDs); start += productInfoBatchSize {
		end := min(start+productInfoBatchSize, len(offerIDs))

		resp, err := a.client.Post(ctx, EndpointProductInfoList, map[string]any{
			"offer_id": offerIDs[start:end],
		})
		if err != nil {
			return nil, err
		}

		all = append(all, objectList(resp, "items")...)
	}
	return all, nil
}

// CSVExportRequest controls the asynchronous product CSV export.
type CSVExportRequest struct {
	// Visibility filters the exported products. Default: ALL.
	Visibility string

	// MaxAttempts bounds status polling. Default: 30.
	MaxAttempts int

	// PollInterval is the wait between status checks. Default: 10s.
	PollInterval time.Duration

	// OnProgress observes each poll tick.
	OnProgress ProgressFunc
}

// ExportCSV requests a product list export, polls until the file is ready,
// and returns the download URL reported by the API.
func (a *ProductsAPI) ExportCSV(ctx context.Context, req CSVExportRequest) (string, error) {
	if req.Visibility == "" {
		req.Visibility = VisibilityAll
	}

	var mu sync.Mutex
	var fileURL string

	p := newPoller(req.MaxAttempts, req.PollInterval, req.OnProgress, a.client.transport.logger)

	submit := func(ctx context.Context) (string, error) {
		resp, err := a.client.Post(ctx, EndpointProductCSV, map[string]any{
			"filter": map[string]any{"visibility": req.Visibility},
		})
		if err != nil {
			return "", err
		}
		code, _ := objectField(resp, "result")["code"].(string)
		if code == "" {
			return "", &APIError{Message: "export code not found in API response"}
		}
		return code, nil
	}

	check := func(ctx context.Context, code string) (pollStatus, error) {
		resp, err := a.client.Post(ctx, EndpointProductCSVInfo, map[string]any{
			"code": code,
		})
		if err != nil {
			return pollStatus{}, err
		}

		result := objectField(resp, "result")
		status, _ := result["status"].(string)

		st := pollStatus{state: status}
		switch status {
		case "success":
			st.done = true
			mu.Lock()
			fileURL, _ = result["file"].(string)
			mu.Unlock()
		case "failed", "error":
			st.failed = true
			st.reason, _ = result["error"].(string)
		}
		return st, nil
	}

	if _, err := p.run(ctx, submit, check); err != nil {
		return "", err
	}

	mu.Lock()
	defer mu.Unlock()
	return fileURL, nil
}

// objectField returns a nested JSON object, or an empty map when absent.
func objectField(data map[string]any, key string) map[string]any {
	if m, ok := data[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// objectList returns a list of JSON objects under key, skipping non-objects.
func objectList(data map[string]any, key string) []map[string]any {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	items := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}
