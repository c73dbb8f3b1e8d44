package pacchetto

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// CreateHTTPClient returns a client whose requests carry trace context and
// produce client spans. No retries: callers decide what a failure means.
func CreateHTTPClient(cfg HTTPClientSettings) *http.Client {
	return &http.Client{
		Timeout:   cfg.Timeout(),
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}
