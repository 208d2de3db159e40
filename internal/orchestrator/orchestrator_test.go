package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/jobscout/internal/config"
	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/logger"
	"github.com/jonesrussell/jobscout/internal/oracle"
)

type fakeJobStore struct {
	mu       sync.Mutex
	job      *domain.SearchJob
	flushes  []domain.Progress
	statuses []domain.JobStatus

	// pauseRequested mirrors the column only SetPauseRequested touches.
	pauseRequested bool
}

func (f *fakeJobStore) Update(_ context.Context, job *domain.SearchJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Write through to the shared aggregate so assertions on the fixture's
	// job observe the last flushed state.
	*f.job = *job
	f.flushes = append(f.flushes, job.Progress)
	f.statuses = append(f.statuses, job.Status)
	return nil
}

func (f *fakeJobStore) GetByID(_ context.Context, _ string) (*domain.SearchJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := *f.job
	copied.PauseRequested = f.pauseRequested
	return &copied, nil
}

func (f *fakeJobStore) setPauseRequested(requested bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauseRequested = requested
}

type fakeCompanyStore struct {
	existing map[string]bool
	conflict map[string]bool
	saved    []*domain.Company
}

func (f *fakeCompanyStore) Insert(_ context.Context, c *domain.Company) (bool, error) {
	if f.conflict[c.Name] {
		return false, nil
	}
	f.saved = append(f.saved, c)
	return true, nil
}

func (f *fakeCompanyStore) ExistsByName(_ context.Context, name string) (bool, error) {
	return f.existing[name], nil
}

type fakeProfileStore struct {
	upserts int
}

func (f *fakeProfileStore) Upsert(_ context.Context, _ *domain.UserProfile) error {
	f.upserts++
	return nil
}

type fakeGenerative struct {
	regional   []oracle.CompanySuggestion
	nationwide []oracle.CompanySuggestion

	nationwideCalls int
	nationwideMax   int

	analyzeErr error
	wlbErrFor  map[string]bool
}

func (f *fakeGenerative) Enabled() bool { return true }

func (f *fakeGenerative) AnalyzeProfile(_ context.Context, _ *domain.UserProfile) (oracle.ProfileAnalysis, oracle.TokenUsage, error) {
	if f.analyzeErr != nil {
		return oracle.ProfileAnalysis{}, oracle.TokenUsage{InputTokens: 100, OutputTokens: 50}, f.analyzeErr
	}
	return oracle.ProfileAnalysis{Summary: "senior backend engineer"},
		oracle.TokenUsage{InputTokens: 500, OutputTokens: 200, Cost: 0.0045}, nil
}

func (f *fakeGenerative) SuggestCompanies(_ context.Context, req oracle.SuggestRequest) ([]oracle.CompanySuggestion, oracle.TokenUsage, error) {
	usage := oracle.TokenUsage{InputTokens: 300, OutputTokens: 400, Cost: 0.0069}
	if req.Nationwide {
		f.nationwideCalls++
		f.nationwideMax = req.Max
		out := f.nationwide
		if len(out) > req.Max {
			out = out[:req.Max]
		}
		return out, usage, nil
	}
	return f.regional, usage, nil
}

func (f *fakeGenerative) EvaluateWorkLifeBalance(_ context.Context, c *domain.Company) (domain.WorkLifeBalance, oracle.TokenUsage, error) {
	usage := oracle.TokenUsage{InputTokens: 200, OutputTokens: 100, Cost: 0.0021}
	if f.wlbErrFor[c.Name] {
		return domain.WorkLifeBalance{}, usage, &oracle.OracleError{
			Provider: oracle.ProviderAnthropic, Op: "evaluate_wlb",
			Err: errors.New("malformed reply"),
		}
	}
	return domain.WorkLifeBalance{Score: 8, Narrative: "flexible"}, usage, nil
}

func (f *fakeGenerative) EvaluateMatch(_ context.Context, _ *domain.Company, _ *domain.UserProfile) (domain.MatchScore, oracle.TokenUsage, error) {
	return domain.MatchScore{Score: 82, Narrative: "strong fit"},
		oracle.TokenUsage{InputTokens: 250, OutputTokens: 150, Cost: 0.003}, nil
}

// fakeFinder serves as either enrichment provider.
type fakeFinder struct {
	enabled bool
	patch   oracle.EnrichmentPatch
	err     error
	calls   int
}

func (f *fakeFinder) Enabled() bool { return f.enabled }

func (f *fakeFinder) LookupCompanyAndContacts(_ context.Context, _, _ string) (oracle.EnrichmentPatch, error) {
	f.calls++
	return f.patch, f.err
}

func (f *fakeFinder) LookupContactsByDomain(_ context.Context, _ string) (oracle.EnrichmentPatch, error) {
	f.calls++
	return f.patch, f.err
}

func suggestions(regional bool, names ...string) []oracle.CompanySuggestion {
	out := make([]oracle.CompanySuggestion, len(names))
	for i, name := range names {
		location := "Austin, TX"
		if regional {
			location = "Lehi, UT"
		}
		out[i] = oracle.CompanySuggestion{
			Name:     name,
			Website:  fmt.Sprintf("https://%s.test", name),
			Location: location,
			Industry: "software",
		}
	}
	return out
}

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		Region:      "utah",
		MaxResults:  10,
		ExpandBelow: 100,
		FlushEvery:  5,
	}
}

type fixture struct {
	orch       *Orchestrator
	jobs       *fakeJobStore
	companies  *fakeCompanyStore
	profiles   *fakeProfileStore
	generative *fakeGenerative
	apollo     *fakeFinder
	hunter     *fakeFinder
	job        *domain.SearchJob
}

func newFixture(t *testing.T, gen *fakeGenerative, cfg config.SearchConfig) *fixture {
	t.Helper()

	f := &fixture{
		jobs:       &fakeJobStore{},
		companies:  &fakeCompanyStore{existing: map[string]bool{}, conflict: map[string]bool{}},
		profiles:   &fakeProfileStore{},
		generative: gen,
		apollo: &fakeFinder{enabled: true, patch: oracle.EnrichmentPatch{Contacts: []domain.HRContact{
			{Name: "Jane Doe", Email: "jane@example.test", Source: domain.SourceApollo},
		}}},
		hunter: &fakeFinder{enabled: true, patch: oracle.EnrichmentPatch{Contacts: []domain.HRContact{
			{Name: "John Roe", Email: "hr@example.test", Source: domain.SourceHunter},
		}}},
		job: domain.NewSearchJob(),
	}
	f.jobs.job = f.job

	f.orch = New(f.jobs, f.companies, f.profiles, f.generative, f.apollo, f.hunter, cfg, logger.NewNop())
	f.orch.sleep = func(context.Context, time.Duration) error { return nil }

	return f
}

func testRequest() *domain.SearchRequest {
	return &domain.SearchRequest{
		Profile: domain.UserProfile{
			Personal:     domain.PersonalInfo{Name: "Alex Chen", Email: "alex@example.test"},
			Professional: domain.ProfessionalInfo{Resume: "resume", PersonalStatement: "statement"},
			Preferences: domain.Preferences{
				CompanySizes: []string{"medium"},
				Industries:   []string{"software"},
			},
		},
	}
}

func TestExecuteExpandsWhenRegionalShort(t *testing.T) {
	gen := &fakeGenerative{
		regional:   suggestions(true, "alpha", "beta", "gamma", "delta", "epsilon", "zeta"),
		nationwide: suggestions(false, "eta", "theta", "iota", "kappa", "lambda"),
	}
	f := newFixture(t, gen, testConfig())

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.NoError(t, err)

	// 6 regional + expansion capped at max-regional = 4.
	assert.Equal(t, 1, gen.nationwideCalls)
	assert.Equal(t, 4, gen.nationwideMax)
	assert.Equal(t, 10, f.job.LiveStats.CompaniesGenerated)
	assert.True(t, f.job.Results.ExpandedNationwide)

	// Regional companies precede nationwide ones in the catalog order.
	require.Len(t, f.companies.saved, 10)
	assert.Equal(t, "alpha", f.companies.saved[0].Name)
	assert.True(t, f.companies.saved[0].LocalPriority)
	assert.Equal(t, "eta", f.companies.saved[6].Name)
	assert.False(t, f.companies.saved[6].LocalPriority)

	assert.Equal(t, domain.JobCompleted, f.job.Status)
	assert.Equal(t, 100, f.job.Progress.Percent)
	assert.Equal(t, 10, f.job.Results.CompaniesFound)
}

func TestExecuteSkipsExpansionWhenRegionalEnough(t *testing.T) {
	gen := &fakeGenerative{
		regional: suggestions(true, "alpha", "beta", "gamma"),
	}
	cfg := testConfig()
	cfg.ExpandBelow = 3
	f := newFixture(t, gen, cfg)

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.NoError(t, err)

	assert.Zero(t, gen.nationwideCalls)
	assert.False(t, f.job.Results.ExpandedNationwide)
	assert.Equal(t, 3, f.job.LiveStats.CompaniesSaved)
}

func TestExecuteOutcomeAccounting(t *testing.T) {
	gen := &fakeGenerative{
		regional:  suggestions(true, "alpha", "beta", "gamma", "delta"),
		wlbErrFor: map[string]bool{"gamma": true},
	}
	cfg := testConfig()
	cfg.ExpandBelow = 1
	f := newFixture(t, gen, cfg)
	f.companies.existing["beta"] = true

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.NoError(t, err)

	stats := f.job.LiveStats
	assert.Equal(t, 4, stats.CompaniesProcessed)
	assert.Equal(t, 2, stats.CompaniesSaved)
	assert.Equal(t, 1, stats.CompaniesSkipped)
	assert.Equal(t, 1, stats.ProcessingErrors)

	// Every processed company settles as exactly one outcome.
	assert.Equal(t, stats.CompaniesProcessed,
		stats.CompaniesSaved+stats.CompaniesSkipped+stats.ProcessingErrors)

	require.Len(t, f.job.Results.Errors, 1)
	assert.Contains(t, f.job.Results.Errors[0], "gamma")
	assert.Equal(t, domain.JobCompleted, f.job.Status)
}

func TestExecuteInsertConflictCountsAsSkip(t *testing.T) {
	gen := &fakeGenerative{regional: suggestions(true, "alpha", "beta")}
	cfg := testConfig()
	cfg.ExpandBelow = 1
	f := newFixture(t, gen, cfg)
	f.companies.conflict["beta"] = true

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.NoError(t, err)

	assert.Equal(t, 1, f.job.LiveStats.CompaniesSaved)
	assert.Equal(t, 1, f.job.LiveStats.CompaniesSkipped)
	assert.Zero(t, f.job.LiveStats.ProcessingErrors)
}

func TestExecuteProfileAnalysisFailureFailsJob(t *testing.T) {
	gen := &fakeGenerative{analyzeErr: errors.New("malformed reply")}
	f := newFixture(t, gen, testConfig())

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.Error(t, err)

	assert.Equal(t, domain.JobFailed, f.job.Status)
	require.NotEmpty(t, f.job.Results.Errors)
	assert.Contains(t, f.job.Results.Errors[0], "profile analysis")

	// The failed call still counts against usage.
	assert.Equal(t, 1, f.job.APIUsage.GenerativeCalls)
}

func TestExecuteProgressMonotonicWithinPhase(t *testing.T) {
	gen := &fakeGenerative{
		regional: suggestions(true, "alpha", "beta", "gamma", "delta", "epsilon", "zeta"),
	}
	cfg := testConfig()
	cfg.ExpandBelow = 1
	cfg.FlushEvery = 1
	f := newFixture(t, gen, cfg)

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.NoError(t, err)

	byPhase := map[domain.Phase]int{}
	for _, p := range f.jobs.flushes {
		last, ok := byPhase[p.Phase]
		if ok {
			assert.GreaterOrEqual(t, p.Percent, last,
				"progress regressed within phase %s", p.Phase)
		}
		byPhase[p.Phase] = p.Percent
	}

	final := f.jobs.flushes[len(f.jobs.flushes)-1]
	assert.Equal(t, domain.PhaseCompleted, final.Phase)
	assert.Equal(t, 100, final.Percent)
}

func TestExecutePauseAndResume(t *testing.T) {
	gen := &fakeGenerative{
		regional: suggestions(true, "alpha", "beta", "gamma"),
	}
	cfg := testConfig()
	cfg.ExpandBelow = 1
	f := newFixture(t, gen, cfg)

	// The fake sleep clears the pause, standing in for the user hitting
	// the pause endpoint again to resume.
	pausedOnce := false
	f.orch.sleep = func(_ context.Context, _ time.Duration) error {
		f.jobs.setPauseRequested(false)
		return nil
	}
	// Request the pause after the first company settles by hooking the
	// dedupe check of the second.
	firstDone := false
	f.orch.companies = &pauseTripStore{
		inner: f.companies,
		trip: func() {
			if !firstDone {
				firstDone = true
				return
			}
			if !pausedOnce {
				pausedOnce = true
				f.jobs.setPauseRequested(true)
			}
		},
	}

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.NoError(t, err)

	assert.True(t, pausedOnce)
	assert.Equal(t, domain.JobCompleted, f.job.Status)
	assert.Equal(t, 3, f.job.LiveStats.CompaniesSaved)

	// The pause and resume left their marks on the flushed statuses.
	assert.Contains(t, f.jobs.statuses, domain.JobPaused)
}

// pauseTripStore invokes trip before delegating the dedupe check.
type pauseTripStore struct {
	inner CompanyStore
	trip  func()
}

func (p *pauseTripStore) Insert(ctx context.Context, c *domain.Company) (bool, error) {
	return p.inner.Insert(ctx, c)
}

func (p *pauseTripStore) ExistsByName(ctx context.Context, name string) (bool, error) {
	p.trip()
	return p.inner.ExistsByName(ctx, name)
}

func TestExecuteAccruesUsageAndContacts(t *testing.T) {
	gen := &fakeGenerative{regional: suggestions(true, "alpha", "beta")}
	cfg := testConfig()
	cfg.ExpandBelow = 1
	f := newFixture(t, gen, cfg)

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.NoError(t, err)

	// analyze + regional suggest + 2x(wlb + match) = 6 generative calls.
	assert.Equal(t, 6, f.job.APIUsage.GenerativeCalls)
	assert.Positive(t, f.job.APIUsage.GenerativeCost)
	assert.Equal(t, 2, f.job.APIUsage.ApolloCalls)
	assert.Equal(t, 2, f.job.APIUsage.HunterCalls)

	assert.Equal(t, 2, f.job.LiveStats.ApolloContacts)
	assert.Equal(t, 2, f.job.LiveStats.HunterContacts)
	assert.Equal(t, 4, f.job.LiveStats.TotalContacts)
	assert.Equal(t, 4, f.job.Results.ContactsFound)

	// Regional suggestions land in region B (Lehi).
	assert.Equal(t, 2, f.job.LiveStats.RegionBCompanies)
	assert.Equal(t, 1, f.profiles.upserts)
}

func TestExecuteEnrichmentFailureDegrades(t *testing.T) {
	gen := &fakeGenerative{regional: suggestions(true, "alpha")}
	cfg := testConfig()
	cfg.ExpandBelow = 1
	f := newFixture(t, gen, cfg)
	f.apollo.err = errors.New("rate limited")

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.NoError(t, err)

	// Provider failure degrades to fewer contacts, not a company error.
	assert.Equal(t, 1, f.job.LiveStats.CompaniesSaved)
	assert.Zero(t, f.job.LiveStats.ProcessingErrors)
	assert.Zero(t, f.job.LiveStats.ApolloContacts)
	assert.Equal(t, 1, f.job.LiveStats.HunterContacts)
}

func TestExecuteDeduplicatesGeneratedNames(t *testing.T) {
	gen := &fakeGenerative{
		regional:   suggestions(true, "alpha", "Alpha ", "beta"),
		nationwide: suggestions(false, "BETA", "gamma"),
	}
	f := newFixture(t, gen, testConfig())

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.NoError(t, err)

	assert.Equal(t, 3, f.job.LiveStats.CompaniesGenerated)
	require.Len(t, f.companies.saved, 3)
	assert.Equal(t, "alpha", f.companies.saved[0].Name)
	assert.Equal(t, "beta", f.companies.saved[1].Name)
	assert.Equal(t, "gamma", f.companies.saved[2].Name)
}

func TestExecuteRegionCountersTallyAllSuggestions(t *testing.T) {
	gen := &fakeGenerative{
		regional:  suggestions(true, "alpha", "beta", "beta"),
		wlbErrFor: map[string]bool{"alpha": true},
	}
	cfg := testConfig()
	cfg.ExpandBelow = 1
	f := newFixture(t, gen, cfg)

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.NoError(t, err)

	// Region counters tally every generated suggestion, including the
	// duplicate name and the company that later settles as an error.
	assert.Equal(t, 3, f.job.LiveStats.RegionBCompanies)
	assert.Equal(t, 2, f.job.LiveStats.CompaniesGenerated)
	assert.Equal(t, 1, f.job.LiveStats.CompaniesSaved)
	assert.Equal(t, 1, f.job.LiveStats.ProcessingErrors)
}

func TestExecuteEnrichmentMetadataOverridesSuggestion(t *testing.T) {
	gen := &fakeGenerative{regional: suggestions(true, "alpha")}
	cfg := testConfig()
	cfg.ExpandBelow = 1
	f := newFixture(t, gen, cfg)
	f.apollo.patch = oracle.EnrichmentPatch{
		Contacts: []domain.HRContact{
			{Name: "Jane Doe", Email: "jane@example.test", Source: domain.SourceApollo},
		},
		Domain:        "acme.io",
		Industry:      "fintech",
		EmployeeCount: 400,
	}

	err := f.orch.Execute(context.Background(), f.job.ID, testRequest())
	require.NoError(t, err)

	require.Len(t, f.companies.saved, 1)
	saved := f.companies.saved[0]

	// Provider metadata overrides what the suggestion guessed.
	assert.Equal(t, "acme.io", saved.Domain)
	assert.Equal(t, "fintech", saved.Industry)
	assert.Equal(t, 400, saved.EmployeeCount)

	// Contacts from both providers are unioned, never replaced.
	require.Len(t, saved.HRContacts, 2)
	assert.Equal(t, domain.SourceApollo, saved.HRContacts[0].Source)
	assert.Equal(t, domain.SourceHunter, saved.HRContacts[1].Source)
}

func TestApplyPatchPrecedence(t *testing.T) {
	c := domain.NewCompany("job-1", "Acme")
	c.Domain = "acme.test"
	c.Industry = "software"
	c.HRContacts = []domain.HRContact{{Email: "existing@acme.test"}}

	applyPatch(c, oracle.EnrichmentPatch{
		Contacts: []domain.HRContact{{Email: "new@acme.test"}},
		Industry: "fintech",
	})

	// Present patch fields win; absent ones leave the defaults untouched.
	assert.Equal(t, "fintech", c.Industry)
	assert.Equal(t, "acme.test", c.Domain)
	require.Len(t, c.HRContacts, 2)
	assert.Equal(t, "existing@acme.test", c.HRContacts[0].Email)
}
