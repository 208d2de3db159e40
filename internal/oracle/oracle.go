// Package oracle provides typed clients for the three external services the
// pipeline depends on: the Anthropic-backed generative oracle and the Apollo
// and Hunter contact-enrichment providers.
//
// Every client shares the same degradation contract: a missing credential
// turns the client into a no-op that returns empty results without network
// I/O, and every outbound call waits on a per-provider minimum-interval
// limiter first. Transport and parse failures surface as *OracleError; no
// client retries on its own.
package oracle

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jonesrussell/jobscout/internal/domain"
)

// Provider names used in errors, usage counters, and logs.
const (
	ProviderAnthropic = "anthropic"
	ProviderApollo    = "apollo"
	ProviderHunter    = "hunter"
)

// OracleError is a typed failure from a named external provider.
type OracleError struct {
	Provider string
	Op       string
	Err      error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// TokenUsage reports what a single generative call consumed.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	Cost         float64
}

// IsZero reports whether the call was a no-op (disabled client).
func (u TokenUsage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0
}

// ProfileAnalysis is the generative oracle's read of a user profile.
type ProfileAnalysis struct {
	Summary             string   `json:"summary"`
	Strengths           []string `json:"strengths,omitempty"`
	TargetRoles         []string `json:"target_roles,omitempty"`
	SuggestedIndustries []string `json:"suggested_industries,omitempty"`
}

// CompanySuggestion is one candidate company from the generative oracle.
// All fields beyond the name are best-effort.
type CompanySuggestion struct {
	Name          string `json:"name"`
	Domain        string `json:"domain,omitempty"`
	Website       string `json:"website,omitempty"`
	Location      string `json:"location,omitempty"`
	Industry      string `json:"industry,omitempty"`
	SizeCategory  string `json:"size_category,omitempty"`
	EmployeeCount int    `json:"employee_count,omitempty"`
	Description   string `json:"description,omitempty"`
}

// EnrichmentPatch is one provider's partial view of a company. Zero-valued
// fields mean the provider had nothing to say; the merge treats generative
// suggestion fields as defaults that present provider fields override, while
// contact lists are unioned and never overridden.
type EnrichmentPatch struct {
	Contacts      []domain.HRContact
	Domain        string
	Website       string
	Industry      string
	EmployeeCount int
}

// EmailDraft is a generated outreach email.
type EmailDraft struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

const (
	defaultHTTPTimeout         = 30 * time.Second
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second
)

// newHTTPClient builds the tuned HTTP client shared by the REST providers.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
			IdleConnTimeout:     defaultIdleConnTimeout,
		},
	}
}
