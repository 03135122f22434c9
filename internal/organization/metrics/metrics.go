package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the organization registry.
type Metrics struct {
	OrganizationsCreated   prometheus.Counter
	OrganizationsUpdated   prometheus.Counter
	OrganizationsDissolved prometheus.Counter
	HierarchyDepth         prometheus.Histogram
	ImportRows             *prometheus.CounterVec
	SyncRuns               *prometheus.CounterVec
	SearchDuration         *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		OrganizationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "govregistry_organizations_created_total",
			Help: "Total number of organizations created.",
		}),
		OrganizationsUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "govregistry_organizations_updated_total",
			Help: "Total number of organization updates applied.",
		}),
		OrganizationsDissolved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "govregistry_organizations_dissolved_total",
			Help: "Total number of organizations soft-deleted.",
		}),
		HierarchyDepth: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "govregistry_hierarchy_walk_depth",
			Help:    "Observed depth of ancestor chain walks.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),
		ImportRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "govregistry_import_rows_total",
			Help: "CSV import rows by outcome.",
		}, []string{"outcome"}),
		SyncRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "govregistry_sync_runs_total",
			Help: "External sync runs by result.",
		}, []string{"result"}),
		SearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "govregistry_search_duration_seconds",
			Help:    "Search latency by kind (exact, fuzzy, fulltext).",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
	}
}
