// Package reporter assembles the progress view of a search job for the API.
package reporter

import (
	"time"

	"github.com/jonesrussell/jobscout/internal/domain"
)

// Report is the wire shape of GET /search/progress. Derived fields are
// computed fresh on every call; building a report mutates nothing.
type Report struct {
	Active bool   `json:"active"`
	JobID  string `json:"job_id,omitempty"`

	Status         domain.JobStatus  `json:"status,omitempty"`
	PauseRequested bool              `json:"pause_requested"`
	Progress       domain.Progress   `json:"progress"`
	LiveStats      domain.LiveStats  `json:"live_stats"`
	RecentActivity []domain.Activity `json:"recent_activity,omitempty"`
	Results        domain.Results    `json:"results"`
	APIUsage       domain.APIUsage   `json:"api_usage"`

	ElapsedSeconds        float64 `json:"elapsed_seconds,omitempty"`
	AvgCompanySeconds     float64 `json:"avg_company_seconds,omitempty"`
	CompaniesPerMinute    float64 `json:"companies_per_minute,omitempty"`
	EstimatedRemainingSec float64 `json:"estimated_remaining_seconds,omitempty"`
}

// Reporter turns stored jobs into progress reports.
type Reporter struct {
	now func() time.Time
}

// New creates a Reporter.
func New() *Reporter {
	return &Reporter{now: time.Now}
}

// Snapshot builds the report for a job. A nil job means no search has ever
// run; the report just says idle.
func (r *Reporter) Snapshot(job *domain.SearchJob) Report {
	if job == nil {
		return Report{Active: false}
	}

	report := Report{
		Active:         job.Status == domain.JobRunning || job.Status == domain.JobPaused,
		JobID:          job.ID,
		Status:         job.Status,
		PauseRequested: job.PauseRequested,
		Progress:       job.Progress,
		LiveStats:      job.LiveStats,
		RecentActivity: job.RecentActivity,
		Results:        job.Results,
		APIUsage:       job.APIUsage,
	}

	elapsed := r.elapsed(job)
	report.ElapsedSeconds = elapsed.Seconds()
	report.AvgCompanySeconds = job.Performance.AvgCompanyTime.Seconds()

	processed := job.LiveStats.CompaniesProcessed
	if processed > 0 && elapsed > 0 {
		report.CompaniesPerMinute = float64(processed) / elapsed.Minutes()
	}

	remaining := job.LiveStats.CompaniesGenerated - processed
	if report.Active && remaining > 0 && job.Performance.AvgCompanyTime > 0 {
		report.EstimatedRemainingSec = float64(remaining) * job.Performance.AvgCompanyTime.Seconds()
	}

	return report
}

func (r *Reporter) elapsed(job *domain.SearchJob) time.Duration {
	start := job.Performance.StartedAt
	if start.IsZero() {
		return 0
	}
	if job.Status.IsTerminal() {
		return job.Performance.Duration
	}
	return r.now().Sub(start)
}
