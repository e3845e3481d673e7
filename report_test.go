package ozonapi_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ozon-tools/ozonapi"
)

var _ = Describe("Report polling", func() {
	var (
		ctx          context.Context
		cancel       context.CancelFunc
		server       *httptest.Server
		mux          *http.ServeMux
		statusCalls  atomic.Int32
		statusFn     func(w http.ResponseWriter)
		reportBody   []byte
		reportType   string
		progress     []ozonapi.ReportPollingProgress
		reportPeriod ozonapi.StatisticsReportRequest
	)

	const campaignCSV = ";Statistics 2025-01-01 - 2025-01-31;\n" +
		"sku;orders;revenue\n" +
		"1001;2;300.50\n" +
		"1002;1; 150.00\n"

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		statusCalls.Store(0)
		progress = nil
		reportBody = []byte(campaignCSV)
		reportType = "text/csv"

		mux = http.NewServeMux()
		mux.HandleFunc("/api/client/token", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-1",
				"expires_in":   1800,
			})
		})
		mux.HandleFunc("/api/client/statistics", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"UUID": "uuid-1"})
		})
		mux.HandleFunc("/api/client/statistics/report", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", reportType)
			w.Write(reportBody)
		})
		mux.HandleFunc("/api/client/statistics/", func(w http.ResponseWriter, r *http.Request) {
			statusCalls.Add(1)
			statusFn(w)
		})
		server = httptest.NewServer(mux)

		reportPeriod = ozonapi.StatisticsReportRequest{
			CampaignIDs:  []string{"42"},
			DateFrom:     time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			DateTo:       time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			PollInterval: 2 * time.Millisecond,
			OnProgress: func(p ozonapi.ReportPollingProgress) {
				progress = append(progress, p)
			},
		}
	})

	AfterEach(func() {
		cancel()
		server.Close()
	})

	newClient := func() *ozonapi.PerformanceClient {
		return ozonapi.NewPerformanceClient("client-id", "secret",
			ozonapi.WithBaseURL(server.URL),
			ozonapi.WithLogger(quietLogger()),
		)
	}

	It("polls until ready and parses the campaign CSV", func() {
		statusFn = func(w http.ResponseWriter) {
			if statusCalls.Load() < 3 {
				json.NewEncoder(w).Encode(map[string]any{
					"state":    "IN_PROGRESS",
					"progress": float64(statusCalls.Load()) * 40,
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"state": "OK"})
		}

		client := newClient()
		defer client.Close()

		reports, err := client.Campaigns().StatisticsReport(ctx, reportPeriod)
		Expect(err).NotTo(HaveOccurred())

		Expect(reports).To(HaveLen(1))
		Expect(reports[0].CampaignID).To(Equal("42"))
		Expect(reports[0].Header).To(Equal(";Statistics 2025-01-01 - 2025-01-31;"))
		Expect(reports[0].Rows).To(HaveLen(2))
		Expect(reports[0].Rows[0]).To(Equal(map[string]string{
			"sku": "1001", "orders": "2", "revenue": "300.50",
		}))
		Expect(reports[0].Rows[1]["revenue"]).To(Equal("150.00"))

		Expect(progress).To(HaveLen(3))
		Expect(progress[0].Attempt).To(Equal(1))
		Expect(progress[1].Attempt).To(Equal(2))
		Expect(progress[1].Percent).To(Equal(float64(80)))
		Expect(progress[2].Attempt).To(Equal(3))
		Expect(progress[2].Percent).To(Equal(float64(100)))
		Expect(progress[2].Status).To(Equal("OK"))
		for _, p := range progress {
			Expect(p.ReportID).To(Equal("uuid-1"))
		}
	})

	It("unpacks a ZIP of per-campaign CSVs", func() {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		for _, name := range []string{"101.csv", "102.csv"} {
			f, err := zw.Create(name)
			Expect(err).NotTo(HaveOccurred())
			_, err = f.Write([]byte(campaignCSV))
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(zw.Close()).To(Succeed())
		reportBody = buf.Bytes()
		reportType = "application/zip"

		statusFn = func(w http.ResponseWriter) {
			json.NewEncoder(w).Encode(map[string]any{"state": "OK"})
		}

		client := newClient()
		defer client.Close()

		reportPeriod.CampaignIDs = []string{"101", "102"}
		reports, err := client.Campaigns().StatisticsReport(ctx, reportPeriod)
		Expect(err).NotTo(HaveOccurred())

		Expect(reports).To(HaveLen(2))
		Expect(reports[0].CampaignID).To(Equal("101"))
		Expect(reports[1].CampaignID).To(Equal("102"))
		Expect(reports[1].Rows).To(HaveLen(2))
	})

	It("gives up after the polling budget with a timeout error", func() {
		statusFn = func(w http.ResponseWriter) {
			json.NewEncoder(w).Encode(map[string]any{"state": "IN_PROGRESS"})
		}

		client := newClient()
		defer client.Close()

		reportPeriod.MaxAttempts = 3
		_, err := client.Campaigns().StatisticsReport(ctx, reportPeriod)

		var timeoutErr *ozonapi.ReportTimeoutError
		Expect(errors.As(err, &timeoutErr)).To(BeTrue())
		Expect(timeoutErr.ReportID).To(Equal("uuid-1"))
		Expect(timeoutErr.Attempts).To(Equal(3))
		Expect(timeoutErr.LastStatus).To(Equal("IN_PROGRESS"))

		Expect(statusCalls.Load()).To(Equal(int32(3)))
		Expect(progress).To(HaveLen(3))
	})

	It("reports remote failure with the server-side reason", func() {
		statusFn = func(w http.ResponseWriter) {
			json.NewEncoder(w).Encode(map[string]any{
				"state": "ERROR",
				"error": "no statistics for the period",
			})
		}

		client := newClient()
		defer client.Close()

		_, err := client.Campaigns().StatisticsReport(ctx, reportPeriod)

		var failedErr *ozonapi.ReportFailedError
		Expect(errors.As(err, &failedErr)).To(BeTrue())
		Expect(failedErr.ReportID).To(Equal("uuid-1"))
		Expect(failedErr.Reason).To(Equal("no statistics for the period"))

		var timeoutErr *ozonapi.ReportTimeoutError
		Expect(errors.As(err, &timeoutErr)).To(BeFalse())
	})

	It("swallows panics from the progress observer", func() {
		statusFn = func(w http.ResponseWriter) {
			if statusCalls.Load() < 2 {
				json.NewEncoder(w).Encode(map[string]any{"state": "IN_PROGRESS"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"state": "OK"})
		}

		client := newClient()
		defer client.Close()

		reportPeriod.OnProgress = func(ozonapi.ReportPollingProgress) {
			panic("observer blew up")
		}
		reports, err := client.Campaigns().StatisticsReport(ctx, reportPeriod)
		Expect(err).NotTo(HaveOccurred())
		Expect(reports).To(HaveLen(1))
	})

	It("rejects more than ten campaigns per report", func() {
		client := newClient()
		defer client.Close()

		reportPeriod.CampaignIDs = []string{
			"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11",
		}
		_, err := client.Campaigns().StatisticsReport(ctx, reportPeriod)
		Expect(err).To(MatchError(ContainSubstring("at most 10 campaign IDs")))
	})

	It("aborts polling when the context is cancelled", func() {
		statusFn = func(w http.ResponseWriter) {
			json.NewEncoder(w).Encode(map[string]any{"state": "IN_PROGRESS"})
		}

		client := newClient()
		defer client.Close()

		pollCtx, pollCancel := context.WithCancel(ctx)
		reportPeriod.PollInterval = 5 * time.Second
		go func() {
			time.Sleep(20 * time.Millisecond)
			pollCancel()
		}()

		start := time.Now()
		_, err := client.Campaigns().StatisticsReport(pollCtx, reportPeriod)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
	})
})

var _ = Describe("Product CSV export", func() {
	var (
		ctx       context.Context
		cancel    context.CancelFunc
		server    *httptest.Server
		mux       *http.ServeMux
		infoCalls atomic.Int32
		infoFn    func(w http.ResponseWriter)
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		infoCalls.Store(0)

		mux = http.NewServeMux()
		mux.HandleFunc("/v1/product/list/csv", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{"code": "exp-1"},
			})
		})
		mux.HandleFunc("/v1/product/list/csv/info", func(w http.ResponseWriter, r *http.Request) {
			infoCalls.Add(1)
			infoFn(w)
		})
		server = httptest.NewServer(mux)
	})

	AfterEach(func() {
		cancel()
		server.Close()
	})

	newClient := func() *ozonapi.SellerClient {
		return ozonapi.NewSellerClient("123", "key",
			ozonapi.WithBaseURL(server.URL),
			ozonapi.WithLogger(quietLogger()),
		)
	}

	It("returns the file URL once the export finishes", func() {
		infoFn = func(w http.ResponseWriter) {
			if infoCalls.Load() < 2 {
				json.NewEncoder(w).Encode(map[string]any{
					"result": map[string]any{"status": "processing"},
				})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"status": "success",
					"file":   "https://cdn.example.com/products.csv",
				},
			})
		}

		client := newClient()
		defer client.Close()

		url, err := client.Products().ExportCSV(ctx, ozonapi.CSVExportRequest{
			PollInterval: 2 * time.Millisecond,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(url).To(Equal("https://cdn.example.com/products.csv"))
		Expect(infoCalls.Load()).To(Equal(int32(2)))
	})

	It("surfaces a failed export", func() {
		infoFn = func(w http.ResponseWriter) {
			json.NewEncoder(w).Encode(map[string]any{
				"result": map[string]any{
					"status": "failed",
					"error":  "export queue is full",
				},
			})
		}

		client := newClient()
		defer client.Close()

		_, err := client.Products().ExportCSV(ctx, ozonapi.CSVExportRequest{
			PollInterval: 2 * time.Millisecond,
		})

		var failedErr *ozonapi.ReportFailedError
		Expect(errors.As(err, &failedErr)).To(BeTrue())
		Expect(failedErr.ReportID).To(Equal("exp-1"))
		Expect(failedErr.Reason).To(Equal("export queue is full"))
	})
})
