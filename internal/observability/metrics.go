package observability

type MetricKey string

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MStockMovements          MetricKey = "inventory_movements_total"
	MLoyaltyPoints           MetricKey = "loyalty_points_total"
)

// MetricSpec describes how a metric key is registered with a backend. Nil
// Buckets on a histogram means the backend default.
type MetricSpec struct {
	Key     MetricKey
	Help    string
	Labels  []string
	Buckets []float64
}

// Collaborator calls are bounded to a few hundred milliseconds, so their
// buckets are finer than the defaults.
var externalBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}

var CounterSpecs = []MetricSpec{
	{Key: MUsecaseRequests, Help: "Total number of use case invocations.", Labels: []string{"use_case", "outcome"}},
	{Key: MHTTPRequests, Help: "Total number of ops HTTP requests.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequests, Help: "Calls made to external collaborators.", Labels: []string{"peer", "endpoint", "outcome"}},
	{Key: MStockMovements, Help: "Inventory movements appended to the ledger.", Labels: []string{"movement_type"}},
	{Key: MLoyaltyPoints, Help: "Loyalty points moved, by transaction type.", Labels: []string{"type"}},
}

var HistogramSpecs = []MetricSpec{
	{Key: MUsecaseDuration, Help: "Duration of use case execution in seconds.", Labels: []string{"use_case"}},
	{Key: MHTTPRequestDuration, Help: "Duration of ops HTTP requests in seconds.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequestDuration, Help: "Duration of external collaborator calls in seconds.", Labels: []string{"peer", "endpoint"}, Buckets: externalBuckets},
}
