// Package metrics exposes the Prometheus collectors for the pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OracleCalls counts outbound calls per external provider.
	OracleCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobscout_oracle_calls_total",
		Help: "Outbound oracle calls by provider.",
	}, []string{"provider"})

	// JobsSubmitted counts accepted search jobs.
	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobscout_jobs_submitted_total",
		Help: "Search jobs accepted for execution.",
	})

	// JobsCompleted counts jobs that ran to completion.
	JobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobscout_jobs_completed_total",
		Help: "Search jobs completed successfully.",
	})

	// JobsFailed counts jobs that ended in failure.
	JobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobscout_jobs_failed_total",
		Help: "Search jobs that failed.",
	})

	// CompaniesSaved counts companies added to the catalog.
	CompaniesSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobscout_companies_saved_total",
		Help: "Companies saved to the catalog.",
	})

	// CompaniesSkipped counts duplicate companies dropped during processing.
	CompaniesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobscout_companies_skipped_total",
		Help: "Companies skipped as duplicates.",
	})

	// CompanyErrors counts companies whose processing errored.
	CompanyErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobscout_company_errors_total",
		Help: "Companies whose processing failed.",
	})
)
