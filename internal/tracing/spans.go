package tracing

// Span names.
const (
	SpanReadRecords  = "persistence.read"
	SpanWriteRecords = "persistence.write"
	SpanListUsers    = "persistence.list_users"
	SpanHTTPPrefix   = "http "
)

// Attribute keys.
const (
	AttrUser        = "pagetypes.user"
	AttrType        = "pagetypes.type"
	AttrRecordCount = "pagetypes.records"
	AttrRequestID   = "http.request_id"
	AttrHTTPMethod  = "http.method"
	AttrHTTPRoute   = "http.route"
	AttrHTTPStatus  = "http.status_code"
)
