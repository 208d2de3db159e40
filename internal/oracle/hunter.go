package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jonesrussell/jobscout/internal/config"
	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/logger"
)

const defaultHunterBaseURL = "https://api.hunter.io"

const hunterPageSize = 5

// Hunter finds email addresses by company domain via Hunter's domain search.
// Unlike Apollo it needs a website domain, so companies without one are
// skipped by the caller.
type Hunter struct {
	apiKey  string
	baseURL string
	http    *http.Client
	pacer   *pacer
	logger  logger.Logger
}

// NewHunter creates the Hunter client. An empty API key disables it.
func NewHunter(cfg config.HunterConfig, log logger.Logger) *Hunter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultHunterBaseURL
	}
	return &Hunter{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		http:    newHTTPClient(),
		pacer:   newPacer(cfg.MinInterval),
		logger:  log,
	}
}

// Enabled reports whether a credential is configured.
func (h *Hunter) Enabled() bool {
	return h.apiKey != ""
}

type hunterEmail struct {
	Value        string `json:"value"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Position     string `json:"position"`
	Confidence   int    `json:"confidence"`
	Verification struct {
		Status string `json:"status"`
	} `json:"verification"`
}

type hunterDomainResponse struct {
	Data struct {
		Domain string        `json:"domain"`
		Emails []hunterEmail `json:"emails"`
	} `json:"data"`
}

// LookupContactsByDomain searches Hunter for HR-department emails at the
// given domain. An empty domain is a no-op. Hunter contributes only contacts;
// the rest of its patch stays empty.
func (h *Hunter) LookupContactsByDomain(ctx context.Context, companyDomain string) (EnrichmentPatch, error) {
	if !h.Enabled() || companyDomain == "" {
		return EnrichmentPatch{}, nil
	}

	if err := h.pacer.wait(ctx); err != nil {
		return EnrichmentPatch{}, &OracleError{Provider: ProviderHunter, Op: "domain_search", Err: err}
	}

	query := url.Values{}
	query.Set("domain", companyDomain)
	query.Set("department", "hr")
	query.Set("limit", fmt.Sprint(hunterPageSize))
	query.Set("api_key", h.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		h.baseURL+"/v2/domain-search?"+query.Encode(), nil)
	if err != nil {
		return EnrichmentPatch{}, &OracleError{Provider: ProviderHunter, Op: "domain_search", Err: err}
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return EnrichmentPatch{}, &OracleError{Provider: ProviderHunter, Op: "domain_search", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return EnrichmentPatch{}, &OracleError{
			Provider: ProviderHunter,
			Op:       "domain_search",
			Err:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	var result hunterDomainResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return EnrichmentPatch{}, &OracleError{Provider: ProviderHunter, Op: "domain_search", Err: err}
	}

	contacts := make([]domain.HRContact, 0, len(result.Data.Emails))
	for _, email := range result.Data.Emails {
		if email.Value == "" {
			continue
		}
		name := email.FirstName
		if email.LastName != "" {
			if name != "" {
				name += " "
			}
			name += email.LastName
		}
		contacts = append(contacts, domain.HRContact{
			Name:       name,
			Email:      email.Value,
			Title:      email.Position,
			Confidence: email.Confidence,
			Verified:   email.Verification.Status == "valid",
			Source:     domain.SourceHunter,
		})
	}

	h.logger.Debug("hunter domain search",
		logger.String("domain", companyDomain),
		logger.Int("contacts", len(contacts)),
	)

	return EnrichmentPatch{Contacts: contacts}, nil
}
