// Package email produces outreach emails for cataloged companies. The
// generative oracle writes them when it can; a static template covers
// everything else, so generation never fails outright.
package email

import (
	"context"
	"fmt"

	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/logger"
	"github.com/jonesrussell/jobscout/internal/oracle"
)

// Drafter is the slice of the generative oracle the generator uses.
type Drafter interface {
	Enabled() bool
	DraftOutreachEmail(ctx context.Context, company *domain.Company, contact domain.HRContact, profile *domain.UserProfile) (oracle.EmailDraft, oracle.TokenUsage, error)
}

// Generated is a finished outreach email and how it was produced.
type Generated struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Recipient string `json:"recipient"`
	Template  bool   `json:"template"`
}

// Generator writes outreach emails.
type Generator struct {
	drafter Drafter
	logger  logger.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(drafter Drafter, log logger.Logger) *Generator {
	return &Generator{drafter: drafter, logger: log}
}

// Generate produces an outreach email for the company, addressed to the given
// contact. Oracle failures degrade to the static template.
func (g *Generator) Generate(ctx context.Context, company *domain.Company, contact domain.HRContact, profile *domain.UserProfile) Generated {
	if g.drafter.Enabled() {
		draft, _, err := g.drafter.DraftOutreachEmail(ctx, company, contact, profile)
		if err == nil && draft.Subject != "" && draft.Body != "" {
			return Generated{
				Subject:   draft.Subject,
				Body:      draft.Body,
				Recipient: contact.Email,
			}
		}
		if err != nil {
			g.logger.Warn("email draft failed, using template",
				logger.String("company", company.Name), logger.Error(err))
		}
	}

	return g.fromTemplate(company, contact, profile)
}

func (g *Generator) fromTemplate(company *domain.Company, contact domain.HRContact, profile *domain.UserProfile) Generated {
	greeting := "Hello"
	if contact.Name != "" {
		greeting = "Hi " + contact.Name
	}

	subject := fmt.Sprintf("Interest in opportunities at %s", company.Name)
	body := fmt.Sprintf(`%s,

I came across %s and was impressed by your work%s. I'm exploring my next role and believe my background could be a strong fit for your team.

I'd welcome the chance to talk about any current or upcoming openings.

Best regards,
%s
%s`,
		greeting,
		company.Name,
		industryClause(company.Industry),
		profile.Personal.Name,
		profile.Personal.Email,
	)

	return Generated{
		Subject:   subject,
		Body:      body,
		Recipient: contact.Email,
		Template:  true,
	}
}

func industryClause(industry string) string {
	if industry == "" {
		return ""
	}
	return " in " + industry
}
