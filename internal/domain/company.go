package domain

import (
	"time"

	"github.com/google/uuid"
)

// CompanyStatus is the user-driven outreach state of a company. Progression
// through the states is conventional, not enforced.
type CompanyStatus string

const (
	StatusNotContacted CompanyStatus = "not-contacted"
	StatusContacted    CompanyStatus = "contacted"
	StatusResponded    CompanyStatus = "responded"
	StatusInterview    CompanyStatus = "interview"
	StatusRejected     CompanyStatus = "rejected"
	StatusHired        CompanyStatus = "hired"
)

// IsValid reports whether s is a known company status.
func (s CompanyStatus) IsValid() bool {
	switch s {
	case StatusNotContacted, StatusContacted, StatusResponded,
		StatusInterview, StatusRejected, StatusHired:
		return true
	}
	return false
}

// ContactSource identifies where an HR contact came from.
type ContactSource string

const (
	SourceApollo     ContactSource = "apollo"
	SourceHunter     ContactSource = "hunter"
	SourceManual     ContactSource = "manual"
	SourceGenerative ContactSource = "generative"
)

// HRContact is a single discovered contact. Contacts from different providers
// are unioned, never deduplicated by email.
type HRContact struct {
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Title      string        `json:"title,omitempty"`
	Confidence int           `json:"confidence"`
	Verified   bool          `json:"verified"`
	Source     ContactSource `json:"source"`
}

// WorkLifeBalance is the generative oracle's 1-10 evaluation.
type WorkLifeBalance struct {
	Score     int      `json:"score"`
	Narrative string   `json:"narrative,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	Positives []string `json:"positives,omitempty"`
	Concerns  []string `json:"concerns,omitempty"`
}

// MatchScore is the generative oracle's 0-100 fit evaluation.
type MatchScore struct {
	Score      int      `json:"score"`
	Narrative  string   `json:"narrative,omitempty"`
	Factors    []string `json:"factors,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
	Concerns   []string `json:"concerns,omitempty"`
}

// EmailRecord is one generated outreach email, append-only.
type EmailRecord struct {
	GeneratedAt    time.Time `json:"generated_at"`
	RecipientEmail string    `json:"recipient_email"`
	Subject        string    `json:"subject"`
	Sent           bool      `json:"sent"`
}

// Company is the deduplicated catalog entry for one discovered company.
// Once created it is immutable except for status, notes, email history, and
// contact appends; the pipeline never re-scores an existing company.
type Company struct {
	ID            string `json:"id"`
	JobID         string `json:"job_id"`
	Name          string `json:"name"`
	Domain        string `json:"domain,omitempty"`
	Website       string `json:"website,omitempty"`
	Location      string `json:"location,omitempty"`
	Industry      string `json:"industry,omitempty"`
	SizeCategory  string `json:"size_category,omitempty"`
	EmployeeCount int    `json:"employee_count,omitempty"`
	Description   string `json:"description,omitempty"`
	LocalPriority bool   `json:"local_priority"`

	HRContacts      []HRContact     `json:"hr_contacts,omitempty"`
	WorkLifeBalance WorkLifeBalance `json:"work_life_balance"`
	Match           MatchScore      `json:"match"`

	Status       CompanyStatus `json:"status"`
	Notes        string        `json:"notes,omitempty"`
	EmailHistory []EmailRecord `json:"email_history,omitempty"`
	DataQuality  int           `json:"data_quality"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCompany creates a not-contacted company for a job.
func NewCompany(jobID, name string) *Company {
	now := time.Now().UTC()
	return &Company{
		ID:        uuid.New().String(),
		JobID:     jobID,
		Name:      name,
		Status:    StatusNotContacted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Data-quality weights, summing to 100.
const (
	qualityName        = 20
	qualityWebsite     = 15
	qualityLocation    = 10
	qualityIndustry    = 10
	qualityDescription = 10
	qualityContacts    = 25
	qualityWLB         = 10
)

// ComputeDataQuality derives the 0-100 completeness score from the presence
// of core fields. Recomputed on every save.
func (c *Company) ComputeDataQuality() int {
	score := 0
	if c.Name != "" {
		score += qualityName
	}
	if c.Website != "" {
		score += qualityWebsite
	}
	if c.Location != "" {
		score += qualityLocation
	}
	if c.Industry != "" {
		score += qualityIndustry
	}
	if c.Description != "" {
		score += qualityDescription
	}
	if len(c.HRContacts) > 0 {
		score += qualityContacts
	}
	if c.WorkLifeBalance.Score > 0 {
		score += qualityWLB
	}
	return score
}

// AppendEmail records a generated outreach email.
func (c *Company) AppendEmail(record EmailRecord) {
	c.EmailHistory = append(c.EmailHistory, record)
	c.UpdatedAt = time.Now().UTC()
}
