// Package orchestrator runs the search pipeline: profile analysis, company
// generation with optional nationwide expansion, and sequential per-company
// enrichment and scoring, with progress flushed to storage as it goes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/jobscout/internal/config"
	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/logger"
	"github.com/jonesrussell/jobscout/internal/metrics"
	"github.com/jonesrussell/jobscout/internal/oracle"
)

// Progress percentages at phase boundaries.
const (
	pctAnalysisStart   = 5
	pctAnalysisDone    = 15
	pctRegionalDone    = 35
	pctGenerationDone  = 55
	pctProcessingStart = 60
	pctProcessingSpan  = 35
)

// pausePollInterval is how often a paused job re-checks its status.
const pausePollInterval = 2 * time.Second

// errStopped signals that the job was terminated from outside mid-pipeline.
var errStopped = errors.New("job stopped externally")

// JobStore is the persistence the orchestrator needs for jobs.
type JobStore interface {
	Update(ctx context.Context, job *domain.SearchJob) error
	GetByID(ctx context.Context, id string) (*domain.SearchJob, error)
}

// CompanyStore is the persistence the orchestrator needs for companies.
type CompanyStore interface {
	Insert(ctx context.Context, c *domain.Company) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// ProfileStore persists the analyzed user profile.
type ProfileStore interface {
	Upsert(ctx context.Context, profile *domain.UserProfile) error
}

// GenerativeOracle is the slice of the generative client the pipeline uses.
type GenerativeOracle interface {
	Enabled() bool
	AnalyzeProfile(ctx context.Context, profile *domain.UserProfile) (oracle.ProfileAnalysis, oracle.TokenUsage, error)
	SuggestCompanies(ctx context.Context, req oracle.SuggestRequest) ([]oracle.CompanySuggestion, oracle.TokenUsage, error)
	EvaluateWorkLifeBalance(ctx context.Context, company *domain.Company) (domain.WorkLifeBalance, oracle.TokenUsage, error)
	EvaluateMatch(ctx context.Context, company *domain.Company, profile *domain.UserProfile) (domain.MatchScore, oracle.TokenUsage, error)
}

// CompanyEnricher looks a company up by name and location, returning contacts
// plus whatever organization metadata the provider holds.
type CompanyEnricher interface {
	Enabled() bool
	LookupCompanyAndContacts(ctx context.Context, name, location string) (oracle.EnrichmentPatch, error)
}

// DomainEnricher finds additional contacts by website domain.
type DomainEnricher interface {
	Enabled() bool
	LookupContactsByDomain(ctx context.Context, domain string) (oracle.EnrichmentPatch, error)
}

// Orchestrator executes one search job end to end.
type Orchestrator struct {
	jobs       JobStore
	companies  CompanyStore
	profiles   ProfileStore
	generative GenerativeOracle
	apollo     CompanyEnricher
	hunter     DomainEnricher
	classifier *Classifier
	cfg        config.SearchConfig
	logger     logger.Logger

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an Orchestrator.
func New(
	jobs JobStore,
	companies CompanyStore,
	profiles ProfileStore,
	generative GenerativeOracle,
	apollo CompanyEnricher,
	hunter DomainEnricher,
	cfg config.SearchConfig,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		jobs:       jobs,
		companies:  companies,
		profiles:   profiles,
		generative: generative,
		apollo:     apollo,
		hunter:     hunter,
		classifier: NewClassifier(cfg.Region),
		cfg:        cfg,
		logger:     log,
		sleep:      ctxSleep,
	}
}

// Execute runs the full pipeline for one job. The job row must already exist;
// progress is flushed at phase boundaries, every few companies, and on every
// per-company error. A returned error means the job was marked failed.
func (o *Orchestrator) Execute(ctx context.Context, jobID string, req *domain.SearchRequest) error {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	job.Start()
	job.AddActivity(domain.ActivityMilestone, "search started", "", nil)
	if err := o.flush(ctx, job); err != nil {
		return err
	}

	profile := req.Profile

	if err := o.analyzeProfile(ctx, job, &profile); err != nil {
		return o.fail(ctx, job, err)
	}

	suggestions, err := o.generateCompanies(ctx, job, &profile, req)
	if err != nil {
		return o.fail(ctx, job, err)
	}

	if err := o.processCompanies(ctx, job, &profile, suggestions); err != nil {
		if errors.Is(err, errStopped) {
			// Terminated from outside; the stored state already says how.
			return nil
		}
		return o.fail(ctx, job, err)
	}

	job.Results.CompaniesFound = job.LiveStats.CompaniesSaved
	job.Results.ContactsFound = job.LiveStats.TotalContacts
	job.Complete()
	job.AddActivity(domain.ActivityMilestone, "search completed", "", map[string]any{
		"companies": job.Results.CompaniesFound,
		"contacts":  job.Results.ContactsFound,
	})
	metrics.JobsCompleted.Inc()

	o.logger.Info("search job completed",
		logger.String("job_id", job.ID),
		logger.Int("companies", job.Results.CompaniesFound),
		logger.Int("contacts", job.Results.ContactsFound),
		logger.Duration("duration", job.Performance.Duration),
	)

	return o.flush(ctx, job)
}

// analyzeProfile is the first phase. A generative failure here fails the
// whole job; without the analysis nothing downstream is useful.
func (o *Orchestrator) analyzeProfile(ctx context.Context, job *domain.SearchJob, profile *domain.UserProfile) error {
	job.SetProgress(domain.PhaseProfileAnalysis, pctAnalysisStart, "analyzing profile")
	if err := o.flush(ctx, job); err != nil {
		return err
	}

	analysis, usage, err := o.generative.AnalyzeProfile(ctx, profile)
	o.recordGenerativeUsage(job, usage)
	if err != nil {
		return fmt.Errorf("profile analysis: %w", err)
	}

	profile.Analysis = analysis.Summary

	if err := o.profiles.Upsert(ctx, profile); err != nil {
		// The analysis still lives on the in-memory profile; losing the
		// cached copy is not worth failing the search.
		o.logger.Warn("profile cache write failed",
			logger.String("job_id", job.ID), logger.Error(err))
	}

	job.SetProgress(domain.PhaseProfileAnalysis, pctAnalysisDone, "profile analyzed")
	job.AddActivity(domain.ActivityMilestone, "profile analyzed", "", nil)
	return o.flush(ctx, job)
}

// generatedCompany pairs a suggestion with its region classification, fixed
// at generation time.
type generatedCompany struct {
	suggestion oracle.CompanySuggestion
	region     RegionClass
}

// generateCompanies is the second phase: a regional pass, then a nationwide
// expansion when the regional pass came up short. Regional suggestions keep
// their position ahead of nationwide ones.
func (o *Orchestrator) generateCompanies(ctx context.Context, job *domain.SearchJob, profile *domain.UserProfile, req *domain.SearchRequest) ([]generatedCompany, error) {
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = o.cfg.MaxResults
	}
	region := req.Region
	if region == "" {
		region = o.cfg.Region
	}

	job.SetProgress(domain.PhaseCompanyGeneration, pctAnalysisDone, "generating regional companies")
	if err := o.flush(ctx, job); err != nil {
		return nil, err
	}

	regional, usage, err := o.generative.SuggestCompanies(ctx, oracle.SuggestRequest{
		Profile: profile,
		Region:  region,
		Max:     maxResults,
	})
	o.recordGenerativeUsage(job, usage)
	if err != nil {
		return nil, fmt.Errorf("regional company generation: %w", err)
	}

	companies := make([]generatedCompany, 0, maxResults)
	seen := make(map[string]bool)
	for _, s := range regional {
		// Every suggestion is classified and tallied, even ones later
		// dropped as duplicates or settled as errors.
		class := o.classifier.Classify(s.Location)
		o.recordRegion(job, class)
		if !appendUnique(seen, s.Name) {
			continue
		}
		companies = append(companies, generatedCompany{suggestion: s, region: class})
	}

	job.SetProgress(domain.PhaseCompanyGeneration, pctRegionalDone,
		fmt.Sprintf("%d regional companies generated", len(companies)))
	job.AddActivity(domain.ActivityMilestone,
		fmt.Sprintf("regional pass produced %d companies", len(companies)), "", nil)
	if err := o.flush(ctx, job); err != nil {
		return nil, err
	}

	if len(companies) < o.cfg.ExpandBelow && len(companies) < maxResults {
		nationwide, usage, err := o.generative.SuggestCompanies(ctx, oracle.SuggestRequest{
			Profile:    profile,
			Region:     region,
			Nationwide: true,
			Max:        maxResults - len(companies),
		})
		o.recordGenerativeUsage(job, usage)
		if err != nil {
			return nil, fmt.Errorf("nationwide company generation: %w", err)
		}

		added := 0
		for _, s := range nationwide {
			class := o.classifier.Classify(s.Location)
			o.recordRegion(job, class)
			if !appendUnique(seen, s.Name) {
				continue
			}
			companies = append(companies, generatedCompany{suggestion: s, region: class})
			added++
		}

		job.Results.ExpandedNationwide = true
		job.AddActivity(domain.ActivityMilestone,
			fmt.Sprintf("expanded nationwide, %d companies added", added), "", nil)
	}

	job.LiveStats.CompaniesGenerated = len(companies)
	job.SetProgress(domain.PhaseCompanyGeneration, pctGenerationDone,
		fmt.Sprintf("%d companies to process", len(companies)))
	if err := o.flush(ctx, job); err != nil {
		return nil, err
	}

	return companies, nil
}

// processCompanies is the third phase: sequential enrichment and scoring.
// Every company resolves to exactly one of saved, skipped, or errored.
func (o *Orchestrator) processCompanies(ctx context.Context, job *domain.SearchJob, profile *domain.UserProfile, companies []generatedCompany) error {
	total := len(companies)
	job.SetProgress(domain.PhaseCompanyProcessing, pctProcessingStart, "processing companies")
	if err := o.flush(ctx, job); err != nil {
		return err
	}

	for i, gc := range companies {
		stop, err := o.waitIfPaused(ctx, job)
		if err != nil {
			return err
		}
		if stop {
			return errStopped
		}

		if i > 0 && o.cfg.CompanyDelay > 0 {
			if err := o.sleep(ctx, o.cfg.CompanyDelay); err != nil {
				return err
			}
		}

		o.processCompany(ctx, job, profile, gc)

		job.LiveStats.CompaniesProcessed++
		percent := pctProcessingStart + job.LiveStats.CompaniesProcessed*pctProcessingSpan/total
		job.SetProgress(domain.PhaseCompanyProcessing, percent,
			fmt.Sprintf("processed %d of %d companies", job.LiveStats.CompaniesProcessed, total))

		if job.LiveStats.CompaniesProcessed%o.flushEvery() == 0 {
			if err := o.flush(ctx, job); err != nil {
				return err
			}
		}
	}

	job.LiveStats.CurrentCompany = ""
	return o.flush(ctx, job)
}

// processCompany handles one company and settles its outcome on the job.
// It never returns an error; failures are recorded and the pipeline moves on.
func (o *Orchestrator) processCompany(ctx context.Context, job *domain.SearchJob, profile *domain.UserProfile, gc generatedCompany) {
	name := gc.suggestion.Name
	job.LiveStats.CurrentCompany = name
	started := time.Now()

	exists, err := o.companies.ExistsByName(ctx, name)
	if err != nil {
		o.recordCompanyError(ctx, job, name, fmt.Errorf("dedupe check: %w", err))
		return
	}
	if exists {
		job.LiveStats.CompaniesSkipped++
		job.AddActivity(domain.ActivityCompanyProcessed, "already cataloged, skipped", name, nil)
		metrics.CompaniesSkipped.Inc()
		return
	}

	company := buildCompany(job.ID, gc.suggestion, gc.region != RegionNationwide)

	o.enrichContacts(ctx, job, company)

	wlb, usage, err := o.generative.EvaluateWorkLifeBalance(ctx, company)
	o.recordGenerativeUsage(job, usage)
	if err != nil {
		o.recordCompanyError(ctx, job, name, fmt.Errorf("work-life balance: %w", err))
		return
	}
	company.WorkLifeBalance = wlb

	match, usage, err := o.generative.EvaluateMatch(ctx, company, profile)
	o.recordGenerativeUsage(job, usage)
	if err != nil {
		o.recordCompanyError(ctx, job, name, fmt.Errorf("match evaluation: %w", err))
		return
	}
	company.Match = match

	company.DataQuality = company.ComputeDataQuality()

	inserted, err := o.companies.Insert(ctx, company)
	if err != nil {
		o.recordCompanyError(ctx, job, name, fmt.Errorf("save company: %w", err))
		return
	}
	if !inserted {
		// Another job cataloged the name between the dedupe check and
		// the insert.
		job.LiveStats.CompaniesSkipped++
		job.AddActivity(domain.ActivityCompanyProcessed, "already cataloged, skipped", name, nil)
		metrics.CompaniesSkipped.Inc()
		return
	}

	job.LiveStats.CompaniesSaved++
	job.RecordMatchScore(match.Score)
	job.RecordWLBScore(wlb.Score)
	job.RecordCompanyTime(time.Since(started))
	job.AddActivity(domain.ActivityCompanyProcessed, "company saved", name, map[string]any{
		"match_score": match.Score,
		"wlb_score":   wlb.Score,
		"contacts":    len(company.HRContacts),
	})
	metrics.CompaniesSaved.Inc()
}

// enrichContacts merges both providers' patches onto the company: contacts
// are unioned and provider metadata overrides the suggestion's defaults.
// Provider failures degrade to an empty contribution from that provider.
// Apollo runs first so a domain it discovers can unlock the Hunter lookup.
func (o *Orchestrator) enrichContacts(ctx context.Context, job *domain.SearchJob, company *domain.Company) {
	if o.apollo.Enabled() {
		patch, err := o.apollo.LookupCompanyAndContacts(ctx, company.Name, company.Location)
		job.APIUsage.ApolloCalls++
		metrics.OracleCalls.WithLabelValues(oracle.ProviderApollo).Inc()
		if err != nil {
			o.logger.Warn("apollo enrichment failed",
				logger.String("company", company.Name), logger.Error(err))
		} else {
			applyPatch(company, patch)
			job.LiveStats.ApolloContacts += len(patch.Contacts)
		}
	}

	if o.hunter.Enabled() && company.Domain != "" {
		patch, err := o.hunter.LookupContactsByDomain(ctx, company.Domain)
		job.APIUsage.HunterCalls++
		metrics.OracleCalls.WithLabelValues(oracle.ProviderHunter).Inc()
		if err != nil {
			o.logger.Warn("hunter enrichment failed",
				logger.String("company", company.Name), logger.Error(err))
		} else {
			applyPatch(company, patch)
			job.LiveStats.HunterContacts += len(patch.Contacts)
		}
	}

	if n := len(company.HRContacts); n > 0 {
		job.LiveStats.TotalContacts += n
		job.AddActivity(domain.ActivityContactFound,
			fmt.Sprintf("%d contacts found", n), company.Name, nil)
	}
}

// waitIfPaused blocks while a pause is requested, re-reading the stored flag.
// It reports true when the job should stop processing entirely.
func (o *Orchestrator) waitIfPaused(ctx context.Context, job *domain.SearchJob) (bool, error) {
	for {
		stored, err := o.jobs.GetByID(ctx, job.ID)
		if err != nil {
			return false, fmt.Errorf("poll job status: %w", err)
		}

		if stored.Status.IsTerminal() {
			// Externally failed or completed; stop quietly.
			return true, nil
		}

		if !stored.PauseRequested {
			if job.Status == domain.JobPaused {
				job.Status = domain.JobRunning
				job.AddActivity(domain.ActivityMilestone, "search resumed", "", nil)
				if err := o.flush(ctx, job); err != nil {
					return false, err
				}
				o.logger.Info("search job resumed", logger.String("job_id", job.ID))
			}
			return false, nil
		}

		if job.Status != domain.JobPaused {
			job.Status = domain.JobPaused
			job.AddActivity(domain.ActivityMilestone, "search paused", "", nil)
			if err := o.flush(ctx, job); err != nil {
				return false, err
			}
			o.logger.Info("search job paused", logger.String("job_id", job.ID))
		}

		if err := o.sleep(ctx, pausePollInterval); err != nil {
			return true, err
		}
	}
}

func (o *Orchestrator) recordRegion(job *domain.SearchJob, class RegionClass) {
	switch class {
	case RegionA:
		job.LiveStats.RegionACompanies++
	case RegionB:
		job.LiveStats.RegionBCompanies++
	default:
		job.LiveStats.NationwideCompanies++
	}
}

func (o *Orchestrator) recordGenerativeUsage(job *domain.SearchJob, usage oracle.TokenUsage) {
	if usage.IsZero() {
		return
	}
	job.APIUsage.GenerativeCalls++
	job.APIUsage.GenerativeInputTokens += usage.InputTokens
	job.APIUsage.GenerativeOutputTokens += usage.OutputTokens
	job.APIUsage.GenerativeCost += usage.Cost
	metrics.OracleCalls.WithLabelValues(oracle.ProviderAnthropic).Inc()
}

// recordCompanyError settles a company as errored and flushes immediately so
// the failure is visible without waiting for the periodic flush.
func (o *Orchestrator) recordCompanyError(ctx context.Context, job *domain.SearchJob, name string, err error) {
	job.RecordError(fmt.Sprintf("%s: %v", name, err))
	job.AddActivity(domain.ActivityError, err.Error(), name, nil)
	metrics.CompanyErrors.Inc()

	o.logger.Warn("company processing failed",
		logger.String("job_id", job.ID),
		logger.String("company", name),
		logger.Error(err),
	)

	if flushErr := o.flush(ctx, job); flushErr != nil {
		o.logger.Error("flush after company error failed",
			logger.String("job_id", job.ID), logger.Error(flushErr))
	}
}

func (o *Orchestrator) fail(ctx context.Context, job *domain.SearchJob, err error) error {
	job.Fail(err.Error())
	job.AddActivity(domain.ActivityError, err.Error(), "", nil)
	metrics.JobsFailed.Inc()

	o.logger.Error("search job failed",
		logger.String("job_id", job.ID), logger.Error(err))

	if flushErr := o.flush(ctx, job); flushErr != nil {
		o.logger.Error("flush after job failure failed",
			logger.String("job_id", job.ID), logger.Error(flushErr))
	}

	return err
}

func (o *Orchestrator) flush(ctx context.Context, job *domain.SearchJob) error {
	if err := o.jobs.Update(ctx, job); err != nil {
		return fmt.Errorf("flush job state: %w", err)
	}
	return nil
}

func (o *Orchestrator) flushEvery() int {
	if o.cfg.FlushEvery <= 0 {
		return 1
	}
	return o.cfg.FlushEvery
}

// appendUnique records a case-folded name, reporting whether it was new.
func appendUnique(seen map[string]bool, name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || seen[key] {
		return false
	}
	seen[key] = true
	return true
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
