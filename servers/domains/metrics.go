package domains

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	toolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "domains_mcp",
		Subsystem: "tools",
		Name:      "invocations_total",
		Help:      "Tool invocations by tool name.",
	}, []string{"tool"})

	upstreamFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "domains_mcp",
		Subsystem: "search",
		Name:      "upstream_failures_total",
		Help:      "Upstream search calls that degraded to synthetic fallback results.",
	})
)
