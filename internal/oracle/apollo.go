package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonesrussell/jobscout/internal/config"
	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/logger"
)

const defaultApolloBaseURL = "https://api.apollo.io"

// Titles worth contacting about openings, in Apollo's search vocabulary.
var apolloHRTitles = []string{
	"recruiter", "talent acquisition", "hr manager",
	"head of people", "people operations", "hiring manager",
}

const apolloPageSize = 5

// Apollo looks up a company and its HR contacts by name and location via
// Apollo's people search. Besides contacts, the matched organization supplies
// website, industry, and headcount metadata.
type Apollo struct {
	apiKey  string
	baseURL string
	http    *http.Client
	pacer   *pacer
	logger  logger.Logger
}

// NewApollo creates the Apollo client. An empty API key disables it.
func NewApollo(cfg config.ApolloConfig, log logger.Logger) *Apollo {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultApolloBaseURL
	}
	return &Apollo{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		http:    newHTTPClient(),
		pacer:   newPacer(cfg.MinInterval),
		logger:  log,
	}
}

// Enabled reports whether a credential is configured.
func (a *Apollo) Enabled() bool {
	return a.apiKey != ""
}

type apolloSearchRequest struct {
	OrganizationName      string   `json:"q_organization_name"`
	OrganizationLocations []string `json:"organization_locations,omitempty"`
	PersonTitles          []string `json:"person_titles"`
	PerPage               int      `json:"per_page"`
}

type apolloOrganization struct {
	Name                  string `json:"name"`
	PrimaryDomain         string `json:"primary_domain"`
	WebsiteURL            string `json:"website_url"`
	Industry              string `json:"industry"`
	EstimatedNumEmployees int    `json:"estimated_num_employees"`
}

type apolloPerson struct {
	Name         string             `json:"name"`
	Title        string             `json:"title"`
	Email        string             `json:"email"`
	EmailStatus  string             `json:"email_status"`
	Organization apolloOrganization `json:"organization"`
}

type apolloSearchResponse struct {
	People []apolloPerson `json:"people"`
}

// LookupCompanyAndContacts searches Apollo for HR people at the named company,
// narrowed by location when one is known. Contacts without an email address
// are dropped; organization metadata from the first match fills the patch.
func (a *Apollo) LookupCompanyAndContacts(ctx context.Context, companyName, location string) (EnrichmentPatch, error) {
	if !a.Enabled() {
		return EnrichmentPatch{}, nil
	}

	if err := a.pacer.wait(ctx); err != nil {
		return EnrichmentPatch{}, &OracleError{Provider: ProviderApollo, Op: "lookup_company", Err: err}
	}

	search := apolloSearchRequest{
		OrganizationName: companyName,
		PersonTitles:     apolloHRTitles,
		PerPage:          apolloPageSize,
	}
	if location != "" {
		search.OrganizationLocations = []string{location}
	}

	payload, err := json.Marshal(search)
	if err != nil {
		return EnrichmentPatch{}, &OracleError{Provider: ProviderApollo, Op: "lookup_company", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/mixed_people/search", bytes.NewReader(payload))
	if err != nil {
		return EnrichmentPatch{}, &OracleError{Provider: ProviderApollo, Op: "lookup_company", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", a.apiKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return EnrichmentPatch{}, &OracleError{Provider: ProviderApollo, Op: "lookup_company", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return EnrichmentPatch{}, &OracleError{
			Provider: ProviderApollo,
			Op:       "lookup_company",
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var result apolloSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return EnrichmentPatch{}, &OracleError{Provider: ProviderApollo, Op: "lookup_company", Err: err}
	}

	var (
		patch   EnrichmentPatch
		orgSeen bool
	)
	for _, person := range result.People {
		if !orgSeen && person.Organization != (apolloOrganization{}) {
			orgSeen = true
			patch.Domain = person.Organization.PrimaryDomain
			patch.Website = person.Organization.WebsiteURL
			patch.Industry = person.Organization.Industry
			patch.EmployeeCount = person.Organization.EstimatedNumEmployees
		}
		if person.Email == "" {
			continue
		}
		patch.Contacts = append(patch.Contacts, domain.HRContact{
			Name:       person.Name,
			Email:      person.Email,
			Title:      person.Title,
			Confidence: apolloConfidence(person.EmailStatus),
			Verified:   person.EmailStatus == "verified",
			Source:     domain.SourceApollo,
		})
	}

	a.logger.Debug("apollo company lookup",
		logger.String("company", companyName),
		logger.Int("contacts", len(patch.Contacts)),
	)

	return patch, nil
}

func apolloConfidence(emailStatus string) int {
	switch emailStatus {
	case "verified":
		return 95
	case "guessed":
		return 60
	default:
		return 75
	}
}
