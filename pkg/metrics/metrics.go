// Package metrics exposes the Prometheus registry used by the proxy.
// Collectors are declared next to the code they measure (cache, instagram,
// profile, ratelimit, server) and registered with promauto.
//
// Cache (pkg/cache):
//   - igproxy_cache_hits_total{layer}
//   - igproxy_cache_misses_total{layer}
//   - igproxy_cache_writes_total{layer}
//   - igproxy_cache_errors_total{layer, operation}
//
// Upstream (pkg/instagram):
//   - igproxy_upstream_requests_total{status}
//   - igproxy_upstream_request_duration_seconds
//   - igproxy_upstream_errors_total{kind}
//
// Lookups (pkg/profile):
//   - igproxy_profile_lookups_total{result}
//   - igproxy_profile_lookup_duration_seconds{result}
//
// Rate limiting (pkg/ratelimit):
//   - igproxy_rate_limit_rejections_total{backend}
//   - igproxy_rate_limit_errors_total{backend}
//
// HTTP (internal/server):
//   - igproxy_http_requests_total{route, code}
//   - igproxy_http_request_duration_seconds{route}
//
// Cache hit rate:
//
//	sum(rate(igproxy_cache_hits_total[5m])) /
//	(sum(rate(igproxy_cache_hits_total[5m])) + sum(rate(igproxy_cache_misses_total[5m])))
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all proxy collectors use.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer paired with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}
