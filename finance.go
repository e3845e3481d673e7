package ozonapi

import (
	"context"
	"fmt"
	"time"
)

const transactionListLimit = 1000

// FinanceAPI is the finance subclient of the Seller API.
type FinanceAPI struct {
	client *SellerClient
}

// TransactionFilter selects transactions for a period.
type TransactionFilter struct {
	DateFrom time.Time
	DateTo   time.Time

	// OperationTypes filters by operation type. Empty means all.
	OperationTypes []string

	// PostingNumber filters by posting number.
	PostingNumber string

	// TransactionType is "all", "orders", "returns", etc. Default: "all".
	TransactionType string

	// PageSize is the number of operations per page. Default: 1000.
	PageSize int
}

// RangeError records a date range whose fetch failed. Other ranges still
// contribute their operations.
type RangeError struct {
	DateFrom time.Time
	DateTo   time.Time
	Err      error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("transactions %s..%s: %v",
		e.DateFrom.Format(time.DateOnly), e.DateTo.Format(time.DateOnly), e.Err)
}

func (e *RangeError) Unwrap() error { return e.Err }

// TransactionsResult is the merged outcome of a multi-range transaction fetch.
type TransactionsResult struct {
	Operations []map[string]any
	Errors     []*RangeError
}

// Transactions fetches transactions for the period, splitting it into monthly
// ranges (the API rejects longer windows) and paginating each range. A failed
// range is recorded in Errors rather than aborting the whole fetch.
func (a *FinanceAPI) Transactions(ctx context.Context, filter TransactionFilter) (*TransactionsResult, error) {
	if filter.TransactionType == "" {
		filter.TransactionType = "all"
	}
	if filter.PageSize <= 0 {
		filter.PageSize = transactionListLimit
	}

	result := &TransactionsResult{}

	for _, r := range splitMonthlyRanges(filter.DateFrom, filter.DateTo) {
		ops, err := a.transactionsForRange(ctx, r.from, r.to, filter)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Errors = append(result.Errors, &RangeError{
				DateFrom: r.from,
				DateTo:   r.to,
				Err:      err,
			})
			continue
		}
		result.Operations = append(result.Operations, ops...)
	}

	return result, nil
}

// transactionsForRange pages through one date range via page_count.
func (a *FinanceAPI) transactionsForRange(ctx context.Context, from, to time.Time, filter TransactionFilter) ([]map[string]any, error) {
	var ops []map[string]any

	operationTypes := filter.OperationTypes
	if operationTypes == nil {
		operationTypes = []string{}
	}

	for page := 1; ; page++ {
		body := map[string]any{
			"filter": map[string]any{
				"date": map[string]any{
					"from": startOfDayISO(from),
					"to":   endOfDayISO(to),
				},
				"operation_type":   operationTypes,
				"posting_number":   filter.PostingNumber,
				"transaction_type": filter.TransactionType,
			},
			"page":      page,
			"page_size": filter.PageSize,
		}

		resp, err := a.client.Post(ctx, EndpointTransactionList, body)
		if err != nil {
			return nil, err
		}

		result := objectField(resp, "result")
		ops = append(ops, objectList(result, "operations")...)

		pageCount := 1
		if v, ok := result["page_count"].(float64); ok {
			pageCount = int(v)
		}
		if page >= pageCount {
			return ops, nil
		}
	}
}

// TransactionTotals returns the financial summary for a period.
func (a *FinanceAPI) TransactionTotals(ctx context.Context, from, to time.Time, transactionType string) (map[string]any, error) {
	if transactionType == "" {
		transactionType = "all"
	}

	resp, err := a.client.Post(ctx, EndpointTransactionTotals, map[string]any{
		"date": map[string]any{
			"from": startOfDayISO(from),
			"to":   endOfDayISO(to),
		},
		"transaction_type": transactionType,
	})
	if err != nil {
		return nil, err
	}
	return objectField(resp, "result"), nil
}

type dateRange struct {
	from, to time.Time
}

// splitMonthlyRanges breaks a window longer than 31 days into calendar-month
// aligned chunks.
func splitMonthlyRanges(from, to time.Time) []dateRange {
	if to.Sub(from) <= 31*24*time.Hour {
		return []dateRange{{from, to}}
	}

	var ranges []dateRange
	start := from
	for start.Before(to) {
		next := time.Date(start.Year(), start.Month()+1, start.Day(),
			start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
		end := next
		if to.Before(next) {
			end = to
		}
		ranges = append(ranges, dateRange{start, end})
		start = end
	}
	return ranges
}

// startOfDayISO renders the timestamp at 00:00:00 of its day, UTC-suffixed
// the way the Ozon API expects.
func startOfDayISO(t time.Time) string {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).
		Format("2006-01-02T15:04:05") + "Z"
}

// endOfDayISO renders the timestamp at 23:59:59.999999 of its day.
func endOfDayISO(t time.Time) string {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999000, t.Location()).
		Format("2006-01-02T15:04:05.999999") + "Z"
}
