// Package domain provides the core aggregates for jobscout: search jobs,
// companies, and the user profile submitted with a search.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a search job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobPaused    JobStatus = "paused"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Phase is one of the four ordered pipeline stages.
type Phase string

const (
	PhaseProfileAnalysis   Phase = "profile-analysis"
	PhaseCompanyGeneration Phase = "company-generation"
	PhaseCompanyProcessing Phase = "company-processing"
	PhaseCompleted         Phase = "completed"
)

// ActivityCategory classifies recent-activity entries.
type ActivityCategory string

const (
	ActivityCompanyFound     ActivityCategory = "company-found"
	ActivityCompanyProcessed ActivityCategory = "company-processed"
	ActivityContactFound     ActivityCategory = "contact-found"
	ActivityError            ActivityCategory = "error"
	ActivityMilestone        ActivityCategory = "milestone"
)

// maxRecentActivity bounds the activity log; oldest entries are evicted.
const maxRecentActivity = 50

// Progress describes where in the pipeline a job currently is.
type Progress struct {
	Phase   Phase  `json:"phase"`
	Percent int    `json:"percent"`
	Step    string `json:"step"`
}

// Activity is a single entry in the bounded activity log, newest first.
type Activity struct {
	Timestamp time.Time        `json:"timestamp"`
	Category  ActivityCategory `json:"category"`
	Message   string           `json:"message"`
	Company   string           `json:"company,omitempty"`
	Payload   map[string]any   `json:"payload,omitempty"`
}

// LiveStats is the flat set of running counters surfaced to the UI while a
// search is in flight. Counters only increase; the two averages are
// recomputed from bucket counts on every increment.
type LiveStats struct {
	CompaniesGenerated int `json:"companies_generated"`
	CompaniesProcessed int `json:"companies_processed"`
	CompaniesSaved     int `json:"companies_saved"`
	CompaniesSkipped   int `json:"companies_skipped"`
	ProcessingErrors   int `json:"processing_errors"`

	RegionACompanies    int `json:"region_a_companies"`
	RegionBCompanies    int `json:"region_b_companies"`
	NationwideCompanies int `json:"nationwide_companies"`

	ApolloContacts     int `json:"apollo_contacts"`
	HunterContacts     int `json:"hunter_contacts"`
	GenerativeContacts int `json:"generative_contacts"`
	TotalContacts      int `json:"total_contacts"`

	HighMatches     int     `json:"high_matches"`
	MediumMatches   int     `json:"medium_matches"`
	LowMatches      int     `json:"low_matches"`
	AvgMatchQuality float64 `json:"avg_match_quality"`

	ExcellentWLB int     `json:"excellent_wlb"`
	GoodWLB      int     `json:"good_wlb"`
	AverageWLB   int     `json:"average_wlb"`
	PoorWLB      int     `json:"poor_wlb"`
	AvgWLB       float64 `json:"avg_wlb"`

	CurrentCompany string `json:"current_company,omitempty"`
}

// Results accumulates the totals reported when a job finishes.
type Results struct {
	CompaniesFound     int      `json:"companies_found"`
	ContactsFound      int      `json:"contacts_found"`
	ExpandedNationwide bool     `json:"expanded_nationwide"`
	Errors             []string `json:"errors,omitempty"`
}

// APIUsage tracks per-oracle call counts and estimated spend.
type APIUsage struct {
	GenerativeCalls        int     `json:"generative_calls"`
	GenerativeInputTokens  int64   `json:"generative_input_tokens"`
	GenerativeOutputTokens int64   `json:"generative_output_tokens"`
	GenerativeCost         float64 `json:"generative_cost"`
	ApolloCalls            int     `json:"apollo_calls"`
	HunterCalls            int     `json:"hunter_calls"`
}

// Performance holds wall-clock timing for a job.
type Performance struct {
	StartedAt      time.Time     `json:"started_at,omitempty"`
	EndedAt        time.Time     `json:"ended_at,omitempty"`
	Duration       time.Duration `json:"duration,omitempty"`
	AvgCompanyTime time.Duration `json:"avg_company_time,omitempty"`

	// timedCompanies is the sample count behind AvgCompanyTime.
	TimedCompanies int `json:"timed_companies,omitempty"`
}

// SearchJob is the persisted state of one pipeline execution. Mutators change
// the in-memory value only; the orchestrator persists explicitly.
type SearchJob struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`

	// PauseRequested is written only through its own setter, never by the
	// full-state flush, so a user pause cannot be lost to a concurrent
	// progress write.
	PauseRequested bool        `json:"pause_requested"`
	Progress       Progress    `json:"progress"`
	LiveStats      LiveStats   `json:"live_stats"`
	RecentActivity []Activity  `json:"recent_activity"`
	Results        Results     `json:"results"`
	APIUsage       APIUsage    `json:"api_usage"`
	Performance    Performance `json:"performance"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// NewSearchJob creates a pending job with a fresh ID.
func NewSearchJob() *SearchJob {
	now := time.Now().UTC()
	return &SearchJob{
		ID:     uuid.New().String(),
		Status: JobPending,
		Progress: Progress{
			Phase:   PhaseProfileAnalysis,
			Percent: 0,
			Step:    "queued",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Start transitions the job to running and stamps the start time.
func (j *SearchJob) Start() {
	j.Status = JobRunning
	j.Performance.StartedAt = time.Now().UTC()
	j.touch()
}

// SetProgress updates phase, percentage, and the human-readable step.
// Within a phase the percentage never decreases; phase changes may jump.
func (j *SearchJob) SetProgress(phase Phase, percent int, step string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if phase == j.Progress.Phase && percent < j.Progress.Percent {
		percent = j.Progress.Percent
	}
	j.Progress = Progress{Phase: phase, Percent: percent, Step: step}
	j.touch()
}

// AddActivity prepends an entry to the bounded activity log.
func (j *SearchJob) AddActivity(category ActivityCategory, message, company string, payload map[string]any) {
	entry := Activity{
		Timestamp: time.Now().UTC(),
		Category:  category,
		Message:   message,
		Company:   company,
		Payload:   payload,
	}
	j.RecentActivity = append([]Activity{entry}, j.RecentActivity...)
	if len(j.RecentActivity) > maxRecentActivity {
		j.RecentActivity = j.RecentActivity[:maxRecentActivity]
	}
	j.touch()
}

// RecordMatchScore buckets a match score and refreshes the weighted average.
// Bucket midpoints (85/70/50) stand in for the true scores so the average can
// be maintained without retaining every score.
func (j *SearchJob) RecordMatchScore(score int) {
	switch {
	case score >= 80:
		j.LiveStats.HighMatches++
	case score >= 60:
		j.LiveStats.MediumMatches++
	default:
		j.LiveStats.LowMatches++
	}

	total := j.LiveStats.HighMatches + j.LiveStats.MediumMatches + j.LiveStats.LowMatches
	if total > 0 {
		weighted := float64(j.LiveStats.HighMatches)*85 +
			float64(j.LiveStats.MediumMatches)*70 +
			float64(j.LiveStats.LowMatches)*50
		j.LiveStats.AvgMatchQuality = weighted / float64(total)
	}
	j.touch()
}

// RecordWLBScore buckets a work-life-balance score and refreshes the
// weighted average from bucket midpoints (8.5/6.5/4.5/2.5).
func (j *SearchJob) RecordWLBScore(score int) {
	switch {
	case score >= 8:
		j.LiveStats.ExcellentWLB++
	case score >= 6:
		j.LiveStats.GoodWLB++
	case score >= 4:
		j.LiveStats.AverageWLB++
	default:
		j.LiveStats.PoorWLB++
	}

	total := j.LiveStats.ExcellentWLB + j.LiveStats.GoodWLB +
		j.LiveStats.AverageWLB + j.LiveStats.PoorWLB
	if total > 0 {
		weighted := float64(j.LiveStats.ExcellentWLB)*8.5 +
			float64(j.LiveStats.GoodWLB)*6.5 +
			float64(j.LiveStats.AverageWLB)*4.5 +
			float64(j.LiveStats.PoorWLB)*2.5
		j.LiveStats.AvgWLB = weighted / float64(total)
	}
	j.touch()
}

// RecordCompanyTime folds one per-company elapsed time into the running
// average: avg' = (avg*n + sample) / (n+1).
func (j *SearchJob) RecordCompanyTime(elapsed time.Duration) {
	n := j.Performance.TimedCompanies
	avg := j.Performance.AvgCompanyTime
	j.Performance.AvgCompanyTime = time.Duration(
		(int64(avg)*int64(n) + int64(elapsed)) / int64(n+1),
	)
	j.Performance.TimedCompanies = n + 1
	j.touch()
}

// RecordError appends an error string to the results and bumps the counter.
func (j *SearchJob) RecordError(msg string) {
	j.LiveStats.ProcessingErrors++
	j.Results.Errors = append(j.Results.Errors, msg)
	j.touch()
}

// Complete marks the job finished and computes the total duration.
func (j *SearchJob) Complete() {
	now := time.Now().UTC()
	j.Status = JobCompleted
	j.Performance.EndedAt = now
	if !j.Performance.StartedAt.IsZero() {
		j.Performance.Duration = now.Sub(j.Performance.StartedAt)
	}
	j.Progress = Progress{Phase: PhaseCompleted, Percent: 100, Step: "completed"}
	j.touch()
}

// Fail marks the job failed, retaining the triggering message.
func (j *SearchJob) Fail(msg string) {
	now := time.Now().UTC()
	j.Status = JobFailed
	j.Performance.EndedAt = now
	if !j.Performance.StartedAt.IsZero() {
		j.Performance.Duration = now.Sub(j.Performance.StartedAt)
	}
	j.Results.Errors = append(j.Results.Errors, msg)
	j.touch()
}

func (j *SearchJob) touch() {
	j.UpdatedAt = time.Now().UTC()
}
