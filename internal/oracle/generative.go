package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/jonesrussell/jobscout/internal/config"
	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/logger"
)

// Claude Sonnet pricing per million tokens, used for the usage estimate only.
const (
	inputCostPerMTok  = 3.0
	outputCostPerMTok = 15.0
	tokensPerMillion  = 1_000_000.0
)

const systemPrompt = "You are a job-search research assistant. " +
	"Answer with a single JSON document matching the requested shape and nothing else."

// Generative wraps the Anthropic Messages API. Structured outputs are trusted
// as parsed; a response that does not parse as the expected shape is an
// OracleError the caller's enclosing scope decides what to do with.
type Generative struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	pacer     *pacer
	enabled   bool
	logger    logger.Logger
}

// NewGenerative creates the generative oracle client. An empty API key yields
// a disabled client whose calls return empty results without network I/O.
func NewGenerative(cfg config.AnthropicConfig, log logger.Logger) *Generative {
	g := &Generative{
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		pacer:     newPacer(cfg.MinInterval),
		enabled:   cfg.APIKey != "",
		logger:    log,
	}
	if g.enabled {
		g.client = anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	}
	return g
}

// Enabled reports whether a credential is configured.
func (g *Generative) Enabled() bool {
	return g.enabled
}

// AnalyzeProfile summarizes the user's resume and preferences.
func (g *Generative) AnalyzeProfile(ctx context.Context, profile *domain.UserProfile) (ProfileAnalysis, TokenUsage, error) {
	if !g.enabled {
		return ProfileAnalysis{}, TokenUsage{}, nil
	}

	prompt := fmt.Sprintf(`Analyze this candidate profile and respond with JSON
{"summary": string, "strengths": [string], "target_roles": [string], "suggested_industries": [string]}.

Name: %s
Resume:
%s

Personal statement:
%s

Preferred company sizes: %s
Preferred industries: %s`,
		profile.Personal.Name,
		profile.Professional.Resume,
		profile.Professional.PersonalStatement,
		strings.Join(profile.Preferences.CompanySizes, ", "),
		strings.Join(profile.Preferences.Industries, ", "),
	)

	var analysis ProfileAnalysis
	usage, err := g.complete(ctx, "analyze_profile", prompt, &analysis)
	if err != nil {
		return ProfileAnalysis{}, usage, err
	}
	return analysis, usage, nil
}

// SuggestRequest parameterizes one company-generation call.
type SuggestRequest struct {
	Profile    *domain.UserProfile
	Region     string
	Nationwide bool
	Max        int
}

// SuggestCompanies asks for up to Max candidate companies, either within the
// configured region or nationwide.
func (g *Generative) SuggestCompanies(ctx context.Context, req SuggestRequest) ([]CompanySuggestion, TokenUsage, error) {
	if !g.enabled {
		return nil, TokenUsage{}, nil
	}

	scope := fmt.Sprintf("headquartered in or near %s", req.Region)
	if req.Nationwide {
		scope = "anywhere in the United States, remote-friendly preferred"
	}

	prompt := fmt.Sprintf(`Suggest up to %d real companies %s that would suit this candidate.
Respond with a JSON array of objects:
{"name": string, "domain": string, "website": string, "location": string, "industry": string,
 "size_category": string, "employee_count": number, "description": string}.

Candidate summary: %s
Preferred company sizes: %s
Preferred industries: %s`,
		req.Max,
		scope,
		req.Profile.Analysis,
		strings.Join(req.Profile.Preferences.CompanySizes, ", "),
		strings.Join(req.Profile.Preferences.Industries, ", "),
	)

	var suggestions []CompanySuggestion
	usage, err := g.complete(ctx, "suggest_companies", prompt, &suggestions)
	if err != nil {
		return nil, usage, err
	}
	if len(suggestions) > req.Max {
		suggestions = suggestions[:req.Max]
	}
	return suggestions, usage, nil
}

// EvaluateWorkLifeBalance scores a company's work-life balance 1-10.
func (g *Generative) EvaluateWorkLifeBalance(ctx context.Context, company *domain.Company) (domain.WorkLifeBalance, TokenUsage, error) {
	if !g.enabled {
		return domain.WorkLifeBalance{}, TokenUsage{}, nil
	}

	prompt := fmt.Sprintf(`Evaluate work-life balance at %s (%s, %s).
Respond with JSON {"score": number 1-10, "narrative": string, "sources": [string],
"positives": [string], "concerns": [string]}.
Company description: %s`,
		company.Name, company.Industry, company.Location, company.Description,
	)

	var wlb domain.WorkLifeBalance
	usage, err := g.complete(ctx, "evaluate_wlb", prompt, &wlb)
	if err != nil {
		return domain.WorkLifeBalance{}, usage, err
	}
	return wlb, usage, nil
}

// EvaluateMatch scores candidate/company fit 0-100.
func (g *Generative) EvaluateMatch(ctx context.Context, company *domain.Company, profile *domain.UserProfile) (domain.MatchScore, TokenUsage, error) {
	if !g.enabled {
		return domain.MatchScore{}, TokenUsage{}, nil
	}

	prompt := fmt.Sprintf(`Score how well %s (%s, %s) matches this candidate, 0-100.
Respond with JSON {"score": number, "narrative": string, "factors": [string],
"highlights": [string], "concerns": [string]}.

Candidate summary: %s
Preferred company sizes: %s
Preferred industries: %s`,
		company.Name, company.Industry, company.SizeCategory,
		profile.Analysis,
		strings.Join(profile.Preferences.CompanySizes, ", "),
		strings.Join(profile.Preferences.Industries, ", "),
	)

	var match domain.MatchScore
	usage, err := g.complete(ctx, "evaluate_match", prompt, &match)
	if err != nil {
		return domain.MatchScore{}, usage, err
	}
	return match, usage, nil
}

// DraftOutreachEmail writes a personalized outreach email. Callers fall back
// to a static template on any error here; this method never does.
func (g *Generative) DraftOutreachEmail(ctx context.Context, company *domain.Company, contact domain.HRContact, profile *domain.UserProfile) (EmailDraft, TokenUsage, error) {
	if !g.enabled {
		return EmailDraft{}, TokenUsage{}, &OracleError{
			Provider: ProviderAnthropic,
			Op:       "draft_email",
			Err:      errors.New("no credential configured"),
		}
	}

	contactName := contact.Name
	if contactName == "" {
		contactName = "the hiring team"
	}

	prompt := fmt.Sprintf(`Write a short outreach email from %s to %s at %s.
Respond with JSON {"subject": string, "body": string}.

About the company: %s
About the candidate: %s`,
		profile.Personal.Name, contactName, company.Name,
		company.Description, profile.Analysis,
	)

	var draft EmailDraft
	usage, err := g.complete(ctx, "draft_email", prompt, &draft)
	if err != nil {
		return EmailDraft{}, usage, err
	}
	return draft, usage, nil
}

// complete issues one Messages call and parses the reply into out.
func (g *Generative) complete(ctx context.Context, op, prompt string, out any) (TokenUsage, error) {
	if err := g.pacer.wait(ctx); err != nil {
		return TokenUsage{}, &OracleError{Provider: ProviderAnthropic, Op: op, Err: err}
	}

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return TokenUsage{}, &OracleError{Provider: ProviderAnthropic, Op: op, Err: err}
	}

	usage := TokenUsage{
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}
	usage.Cost = float64(usage.InputTokens)*inputCostPerMTok/tokensPerMillion +
		float64(usage.OutputTokens)*outputCostPerMTok/tokensPerMillion

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if err := decodeJSONReply(text.String(), out); err != nil {
		return usage, &OracleError{Provider: ProviderAnthropic, Op: op, Err: err}
	}

	g.logger.Debug("generative oracle call",
		logger.String("op", op),
		logger.Int64("input_tokens", usage.InputTokens),
		logger.Int64("output_tokens", usage.OutputTokens),
	)

	return usage, nil
}

// decodeJSONReply parses the model's reply, tolerating markdown code fences
// and prose around the JSON document.
func decodeJSONReply(reply string, out any) error {
	trimmed := strings.TrimSpace(reply)

	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return fmt.Errorf("no JSON document in reply: %q", truncate(trimmed, 80))
	}

	var end int
	if trimmed[start] == '{' {
		end = strings.LastIndex(trimmed, "}")
	} else {
		end = strings.LastIndex(trimmed, "]")
	}
	if end <= start {
		return fmt.Errorf("unterminated JSON document in reply: %q", truncate(trimmed, 80))
	}

	if err := json.Unmarshal([]byte(trimmed[start:end+1]), out); err != nil {
		return fmt.Errorf("parse reply: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
