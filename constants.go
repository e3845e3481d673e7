package ozonapi

// Product visibility filter values for the product list endpoint.
const (
	VisibilityAll             = "ALL"
	VisibilityVisible         = "VISIBLE"
	VisibilityInvisible       = "INVISIBLE"
	VisibilityEmptyStock      = "EMPTY_STOCK"
	VisibilityNotModerated    = "NOT_MODERATED"
	VisibilityModerated       = "MODERATED"
	VisibilityDisabled        = "DISABLED"
	VisibilityStateFailed     = "STATE_FAILED"
	VisibilityReadyToSupply   = "READY_TO_SUPPLY"
	VisibilityInSale          = "IN_SALE"
	VisibilityRemovedFromSale = "REMOVED_FROM_SALE"
	VisibilityBanned          = "BANNED"
	VisibilityOverpriced      = "OVERPRICED"
	VisibilityQuarantine      = "QUARANTINE"
	VisibilityArchived        = "ARCHIVED"
)

// Campaign state values reported by the Performance API.
const (
	CampaignStateUnknown              = "CAMPAIGN_STATE_UNKNOWN"
	CampaignStateRunning              = "CAMPAIGN_STATE_RUNNING"
	CampaignStatePlanned              = "CAMPAIGN_STATE_PLANNED"
	CampaignStateStopped              = "CAMPAIGN_STATE_STOPPED"
	CampaignStateInactive             = "CAMPAIGN_STATE_INACTIVE"
	CampaignStateArchived             = "CAMPAIGN_STATE_ARCHIVED"
	CampaignStateModerationDraft      = "CAMPAIGN_STATE_MODERATION_DRAFT"
	CampaignStateModerationInProgress = "CAMPAIGN_STATE_MODERATION_IN_PROGRESS"
	CampaignStateModerationFailed     = "CAMPAIGN_STATE_MODERATION_FAILED"
	CampaignStateFinished             = "CAMPAIGN_STATE_FINISHED"
)

// Advertising object types for Performance API campaigns.
const (
	AdvTypeSKU         = "SKU"
	AdvTypeSearchPromo = "SEARCH_PROMO"
	AdvTypeBanner      = "BANNER"
	AdvTypeBrandShelf  = "BRAND_SHELF"
	AdvTypeVideo       = "VIDEO"
)

// Payment types for Performance API campaigns.
const (
	PaymentTypeCPC = "CPC" // cost per click
	PaymentTypeCPM = "CPM" // cost per 1000 impressions
	PaymentTypeCPO = "CPO" // cost per order
)

// Group-by options for Performance API statistics reports.
const (
	GroupByDate         = "DATE"
	GroupByNone         = "NO_GROUP_BY"
	GroupByStartOfWeek  = "START_OF_WEEK"
	GroupByStartOfMonth = "START_OF_MONTH"
)

// Analytics dimensions for the Seller analytics endpoint.
const (
	DimensionSKU   = "sku"
	DimensionSPU   = "spu"
	DimensionDay   = "day"
	DimensionWeek  = "week"
	DimensionMonth = "month"
)

// Analytics metrics for the Seller analytics endpoint.
const (
	MetricRevenue      = "revenue"
	MetricOrderedUnits = "ordered_units"
)
