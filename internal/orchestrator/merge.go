package orchestrator

import (
	"strings"

	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/oracle"
)

// buildCompany turns one suggestion into a catalog entry. localPriority comes
// from the region classifier: companies in either local sub-region are marked
// regardless of which generation pass produced them.
func buildCompany(jobID string, s oracle.CompanySuggestion, localPriority bool) *domain.Company {
	c := domain.NewCompany(jobID, strings.TrimSpace(s.Name))
	c.Domain = strings.TrimSpace(s.Domain)
	c.Website = strings.TrimSpace(s.Website)
	c.Location = strings.TrimSpace(s.Location)
	c.Industry = strings.TrimSpace(s.Industry)
	c.SizeCategory = s.SizeCategory
	c.EmployeeCount = s.EmployeeCount
	c.Description = strings.TrimSpace(s.Description)
	c.LocalPriority = localPriority

	if c.Domain == "" && c.Website != "" {
		c.Domain = domainFromWebsite(c.Website)
	}

	return c
}

// applyPatch merges one provider's enrichment patch onto the company. The
// suggestion's fields are defaults; present provider fields override them.
// Contacts are unioned across providers, never deduplicated, and each retains
// its source attribution.
func applyPatch(c *domain.Company, p oracle.EnrichmentPatch) {
	c.HRContacts = append(c.HRContacts, p.Contacts...)

	if p.Domain != "" {
		c.Domain = p.Domain
	}
	if p.Website != "" {
		c.Website = p.Website
	}
	if p.Industry != "" {
		c.Industry = p.Industry
	}
	if p.EmployeeCount > 0 {
		c.EmployeeCount = p.EmployeeCount
	}
}

// domainFromWebsite extracts a bare domain from a website URL.
func domainFromWebsite(website string) string {
	s := website
	for _, prefix := range []string{"https://", "http://"} {
		s = strings.TrimPrefix(s, prefix)
	}
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}
