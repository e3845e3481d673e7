package ozonapi

// Default base URLs for the two API families.
const (
	SellerBaseURL      = "https://api-seller.ozon.ru"
	PerformanceBaseURL = "https://api-performance.ozon.ru"
)

// Seller API endpoint paths.
const (
	EndpointProductList     = "/v2/product/list"
	EndpointProductInfoList = "/v2/product/info/list"
	EndpointProductCSV      = "/v1/product/list/csv"
	EndpointProductCSVInfo  = "/v1/product/list/csv/info"

	EndpointTransactionList   = "/v3/finance/transaction/list"
	EndpointTransactionTotals = "/v3/finance/transaction/totals"

	EndpointAnalyticsData = "/v1/analytics/data"

	EndpointActionsList       = "/v1/actions"
	EndpointActionsCandidates = "/v1/actions/candidates"
	EndpointActionsProducts   = "/v1/actions/products"
	EndpointActionsActivate   = "/v1/actions/products/activate"
	EndpointActionsDeactivate = "/v1/actions/products/deactivate"
)

// Performance API endpoint paths.
const (
	EndpointToken = "/api/client/token"

	EndpointClientCampaign   = "/api/client/campaign"
	EndpointStatistics       = "/api/client/statistics"
	EndpointStatisticsReport = "/api/client/statistics/report"
	EndpointStatisticsStatus = "/api/client/statistics/"
)
