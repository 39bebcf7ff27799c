package telemetry

// HTTP semantic convention attributes
const (
	AttrHTTPMethod                = "http.method"
	AttrHTTPURL                   = "http.url"
	AttrHTTPStatusCode            = "http.status_code"
	AttrHTTPRequestContentLength  = "http.request_content_length"
	AttrHTTPResponseContentLength = "http.response_content_length"
	AttrHTTPDurationMS            = "http.duration_ms"
)

// GraphQL attributes
const (
	AttrGraphQLOperationName = "graphql.operation.name"
	AttrGraphQLOperationType = "graphql.operation.type"
	AttrGraphQLErrorCount    = "graphql.error_count"
)

// Polaris-specific attributes
const (
	AttrPolarisDomain      = "polaris.domain"
	AttrPolarisRequestID   = "polaris.request_id"
	AttrPolarisCatalogKey  = "polaris.catalog_key"
	AttrPolarisRecordCount = "polaris.record_count"
)

// Scrape cycle attributes
const (
	AttrScrapeDurationMS     = "scrape.duration_ms"
	AttrScrapeSLADomainCount = "scrape.sla_domain_count"
	AttrScrapeEventCount     = "scrape.event_count"
	AttrScrapeStatus         = "scrape.status"
)

// Error attributes
const (
	AttrError = "error"
)
