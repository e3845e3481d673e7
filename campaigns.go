package ozonapi

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	campaignPageSize       = 100
	campaignMaxPages       = 100
	statisticsReportMaxIDs = 10
)

// CampaignsAPI is the campaigns subclient of the Performance API.
type CampaignsAPI struct {
	client *PerformanceClient
}

// CampaignFilter selects advertising campaigns.
type CampaignFilter struct {
	// CampaignIDs restricts the listing. Empty means all campaigns.
	CampaignIDs []string

	// AdvTypes filters by advertising object type.
	// Default: SKU and SEARCH_PROMO.
	AdvTypes []string

	// PaymentTypes filters by payment type. Nil means all.
	PaymentTypes []string
}

// Campaigns fetches advertising campaigns, paging until the listing repeats
// or runs out. Campaigns are deduplicated by ID across pages.
func (a *CampaignsAPI) Campaigns(ctx context.Context, filter CampaignFilter) ([]map[string]any, error) {
	advTypes := filter.AdvTypes
	if advTypes == nil {
		advTypes = []string{AdvTypeSKU, AdvTypeSearchPromo}
	}

	var result []map[string]any
	seen := map[string]bool{}

	for page := 1; page <= campaignMaxPages; page++ {
		params := url.Values{}
		for _, id := range filter.CampaignIDs {
			params.Add("campaignIds", id)
		}
		params.Set("page", fmt.Sprint(page))
		params.Set("pageSize", fmt.Sprint(campaignPageSize))

		resp, err := a.client.Get(ctx, EndpointClientCampaign, params)
		if err != nil {
			return nil, err
		}

		campaigns := objectList(resp, "list")
		if len(campaigns) == 0 {
			break
		}

		newOnPage := 0
		for _, camp := range campaigns {
			id := fmt.Sprint(camp["id"])
			if seen[id] {
				continue
			}
			seen[id] = true
			newOnPage++

			advType, _ := camp["advObjectType"].(string)
			if !containsString(advTypes, advType) {
				continue
			}
			if filter.PaymentTypes != nil {
				paymentType, _ := camp["PaymentType"].(string)
				if !containsString(filter.PaymentTypes, paymentType) {
					continue
				}
			}
			result = append(result, camp)
		}

		// A page with nothing new means the API is repeating itself.
		if newOnPage == 0 || len(campaigns) < campaignPageSize {
			break
		}
	}

	return result, nil
}

// CampaignByID fetches a single campaign.
func (a *CampaignsAPI) CampaignByID(ctx context.Context, campaignID string) (map[string]any, error) {
	params := url.Values{}
	params.Add("campaignIds", campaignID)

	resp, err := a.client.Get(ctx, EndpointClientCampaign, params)
	if err != nil {
		return nil, err
	}

	campaigns := objectList(resp, "list")
	if len(campaigns) == 0 {
		return nil, &APIError{Message: fmt.Sprintf("campaign %s not found", campaignID)}
	}
	return campaigns[0], nil
}

// StatisticsReportRequest describes an asynchronous statistics report.
type StatisticsReportRequest struct {
	// CampaignIDs to report on. At most 10.
	CampaignIDs []string

	// DateFrom and DateTo bound the reporting period (inclusive days).
	DateFrom time.Time
	DateTo   time.Time

	// GroupBy is the report grouping. Default: DATE.
	GroupBy string

	// MaxAttempts bounds status polling. Default: 30.
	MaxAttempts int

	// PollInterval is the wait between status checks. Default: 10s.
	PollInterval time.Duration

	// OnProgress observes each poll tick.
	OnProgress ProgressFunc
}

// CampaignReport is one campaign's slice of a statistics report.
type CampaignReport struct {
	CampaignID string
	Header     string
	Rows       []map[string]string
}

// StatisticsReport runs the full report lifecycle: submit the job, poll its
// status until ready, download and parse the result. The API returns a bare
// CSV for a single campaign and a ZIP of per-campaign CSVs for several.
func (a *CampaignsAPI) StatisticsReport(ctx context.Context, req StatisticsReportRequest) ([]CampaignReport, error) {
	if len(req.CampaignIDs) == 0 {
		return nil, errors.New("at least one campaign ID is required")
	}
	if len(req.CampaignIDs) > statisticsReportMaxIDs {
		return nil, fmt.Errorf("at most %d campaign IDs per report, got %d",
			statisticsReportMaxIDs, len(req.CampaignIDs))
	}
	if req.GroupBy == "" {
		req.GroupBy = GroupByDate
	}

	p := newPoller(req.MaxAttempts, req.PollInterval, req.OnProgress, a.client.transport.logger)

	id, err := p.run(ctx, func(ctx context.Context) (string, error) {
		return a.submitReport(ctx, req)
	}, a.reportStatus)
	if err != nil {
		return nil, err
	}

	return a.downloadReport(ctx, id, req.CampaignIDs)
}

func (a *CampaignsAPI) submitReport(ctx context.Context, req StatisticsReportRequest) (string, error) {
	resp, err := a.client.Post(ctx, EndpointStatistics, map[string]any{
		"campaigns": req.CampaignIDs,
		"from":      startOfDayISO(req.DateFrom),
		"to":        endOfDayISO(req.DateTo),
		"groupBy":   req.GroupBy,
	})
	if err != nil {
		return "", err
	}

	id, _ := resp["UUID"].(string)
	if id == "" {
		return "", &APIError{Message: "report UUID not found in API response"}
	}
	return id, nil
}

func (a *CampaignsAPI) reportStatus(ctx context.Context, id string) (pollStatus, error) {
	resp, err := a.client.Get(ctx, EndpointStatisticsStatus+id, nil)
	if err != nil {
		return pollStatus{}, err
	}

	state, _ := resp["state"].(string)
	st := pollStatus{state: state}

	switch state {
	case "OK":
		st.done = true
	case "ERROR", "FAILED":
		st.failed = true
		st.reason, _ = resp["error"].(string)
		if st.reason == "" {
			st.reason = responseMessage(resp, "report generation failed")
		}
	}
	if v, ok := resp["progress"].(float64); ok {
		st.percent = v
	}
	return st, nil
}

// downloadReport fetches the finished report and parses it, sniffing the
// content type to decide between a single CSV and a ZIP archive.
func (a *CampaignsAPI) downloadReport(ctx context.Context, id string, campaignIDs []string) ([]CampaignReport, error) {
	params := url.Values{}
	params.Set("UUID", id)

	resp, err := a.client.transport.requestRaw(ctx, http.MethodGet, EndpointStatisticsReport, nil, params)
	if err != nil {
		return nil, err
	}

	contentType := strings.ToLower(resp.header.Get("Content-Type"))
	if strings.Contains(contentType, "zip") {
		return parseReportZip(resp.body)
	}

	campaignID := "unknown"
	if len(campaignIDs) > 0 {
		campaignID = campaignIDs[0]
	}
	return []CampaignReport{parseCampaignCSV(string(resp.body), campaignID)}, nil
}

// parseReportZip extracts per-campaign CSVs from a ZIP archive; each file is
// named "<campaign_id>.csv".
func parseReportZip(data []byte) ([]CampaignReport, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open report archive: %w", err)
	}

	var reports []CampaignReport
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s in report archive: %w", f.Name, err)
		}
		text, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s in report archive: %w", f.Name, err)
		}

		campaignID := strings.TrimSuffix(f.Name, ".csv")
		reports = append(reports, parseCampaignCSV(string(text), campaignID))
	}
	return reports, nil
}

// parseCampaignCSV parses a semicolon-delimited campaign report. The first
// line is a campaign header (it starts with ";"), the second holds column
// names; malformed rows are skipped.
func parseCampaignCSV(text, campaignID string) CampaignReport {
	report := CampaignReport{CampaignID: campaignID}

	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 {
		return report
	}
	report.Header = strings.TrimSpace(lines[0])
	if len(lines) < 2 {
		return report
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines[1:], "\n")))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var columns []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		if columns == nil {
			columns = make([]string, len(record))
			for i, c := range record {
				columns[i] = strings.TrimSpace(c)
			}
			continue
		}

		row := map[string]string{}
		for i, v := range record {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			row[columns[i]] = strings.TrimSpace(v)
		}
		report.Rows = append(report.Rows, row)
	}

	return report
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
