package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric of this module. It is separate from the
// global default registry so tests and binaries do not collide.
var Registry = prometheus.NewRegistry()

// Global metrics we care about
var (
	// server side (mock backend)
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirofish_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})
	HTTPDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "mirofish_http_request_seconds",
		Help: "HTTP request duration seconds",
	}, []string{"method", "path", "status"})
	ReportsGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirofish_reports_generated_total",
		Help: "Report generation runs by final status",
	}, []string{"status"}) // status=completed|failed

	// client side (console)
	APICalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mirofish_api_calls_total",
		Help: "Backend API calls made by the console",
	}, []string{"op", "outcome"}) // outcome=ok|error
	APICallDur = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "mirofish_api_call_seconds",
		Help: "Backend API call duration seconds",
	}, []string{"op", "outcome"})
)

func init() {
	Registry.MustRegister(HTTPRequests, HTTPDuration, ReportsGenerated, APICalls, APICallDur)
}

// Outcome maps an error to the outcome label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler exposes all metrics in Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// WriteFile dumps every metric to path in the Prometheus text format, for
// the node exporter textfile collector. The file is replaced atomically.
func WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
