// Package metrics defines and registers all custom Prometheus metrics for the
// evently front end. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation (promauto), so importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "evently"

// ── Access control ───────────────────────────────────────────────────────────

// GuardDecisionsTotal counts in-page guard evaluations that settled.
// Labels:
//   - state: "authorized" or "redirecting"
//   - reason: redirect reason ("login_required", "no_permission", "unverified") or "" when authorized
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of settled page guard decisions, by state and reason.",
	},
	[]string{"state", "reason"},
)

// EdgeRedirectsTotal counts requests the edge route guard turned away.
// Label:
//   - reason: "missing_token", "invalid_token", or "no_permission"
var EdgeRedirectsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "edge_redirects_total",
		Help:      "Total number of requests redirected by the edge route guard.",
	},
	[]string{"reason"},
)

// LoginAttemptsTotal counts login and registration submissions.
// Labels:
//   - action: "login" or "register"
//   - result: "ok", "invalid", "rejected", "error", or "rate_limited"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login and registration attempts, by result.",
	},
	[]string{"action", "result"},
)

// ── Backend API ──────────────────────────────────────────────────────────────

// BackendRequestDuration measures calls to the backend REST API.
// Labels:
//   - method: HTTP method
//   - route: route template, e.g. "/events/:id"
//   - status: response status code, or "0" for transport failures
var BackendRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_request_duration_seconds",
		Help:      "Duration of backend API calls.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"method", "route", "status"},
)

// ── Search ───────────────────────────────────────────────────────────────────

// SearchCacheTotal counts search cache lookups.
// Label:
//   - result: "hit", "miss", or "error"
var SearchCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_cache_total",
		Help:      "Total number of search cache lookups, labelled by result (hit/miss/released/error).",
	},
	[]string{"result"},
)

// ── Purchases ────────────────────────────────────────────────────────────────

// PurchaseDedupTotal counts purchase double-submit checks.
// Label:
//   - result: "hit" (duplicate, rejected), "miss" (first submit), "released"
//     (claim dropped after a failed purchase), or "error"
var PurchaseDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "purchase_dedup_total",
		Help:      "Total number of purchase deduplication checks, labelled by result (hit/miss/released/error).",
	},
	[]string{"result"},
)

// SearchAuditTotal counts search audit records handed to the async writer.
// Label:
//   - result: "queued", "dropped" (queue full or stopped), or "failed" (write error)
var SearchAuditTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_audit_total",
		Help:      "Total number of search audit records, labelled by result (queued/dropped/failed).",
	},
	[]string{"result"},
)
