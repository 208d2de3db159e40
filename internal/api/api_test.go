package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/email"
	"github.com/jonesrussell/jobscout/internal/logger"
	"github.com/jonesrussell/jobscout/internal/oracle"
	"github.com/jonesrussell/jobscout/internal/queue"
	"github.com/jonesrussell/jobscout/internal/reporter"
	"github.com/jonesrussell/jobscout/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeJobStore struct {
	latest       *domain.SearchJob
	created      []*domain.SearchJob
	pauseFlagSet []bool
}

func (f *fakeJobStore) Create(_ context.Context, job *domain.SearchJob) error {
	f.created = append(f.created, job)
	return nil
}

func (f *fakeJobStore) Latest(_ context.Context) (*domain.SearchJob, error) {
	if f.latest == nil {
		return nil, repository.ErrNotFound
	}
	return f.latest, nil
}

func (f *fakeJobStore) SetPauseRequested(_ context.Context, _ string, requested bool) error {
	f.pauseFlagSet = append(f.pauseFlagSet, requested)
	return nil
}

type fakeDispatcher struct {
	tasks []*queue.SearchTask
}

func (f *fakeDispatcher) Dispatch(_ context.Context, task *queue.SearchTask) error {
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeCompanyStore struct {
	byID       map[string]*domain.Company
	listed     []*domain.Company
	gotFilter  repository.ListFilter
	bulkCount  int
	historyFor []string
}

func (f *fakeCompanyStore) GetByID(_ context.Context, id string) (*domain.Company, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeCompanyStore) List(_ context.Context, filter repository.ListFilter) ([]*domain.Company, error) {
	f.gotFilter = filter
	return f.listed, nil
}

func (f *fakeCompanyStore) Count(_ context.Context, _ repository.ListFilter) (int, error) {
	return len(f.listed), nil
}

func (f *fakeCompanyStore) UpdateStatusNotes(_ context.Context, id string, status domain.CompanyStatus, notes string) error {
	c, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	c.Notes = notes
	return nil
}

func (f *fakeCompanyStore) BulkUpdateStatus(_ context.Context, ids []string, _ domain.CompanyStatus) (int, error) {
	f.bulkCount = len(ids)
	return len(ids), nil
}

func (f *fakeCompanyStore) AppendEmailHistory(_ context.Context, c *domain.Company) error {
	f.historyFor = append(f.historyFor, c.ID)
	return nil
}

type fakeProfileStore struct {
	profile *domain.UserProfile
}

func (f *fakeProfileStore) Latest(_ context.Context) (*domain.UserProfile, error) {
	if f.profile == nil {
		return nil, repository.ErrNotFound
	}
	return f.profile, nil
}

type disabledDrafter struct{}

func (disabledDrafter) Enabled() bool { return false }

func (disabledDrafter) DraftOutreachEmail(context.Context, *domain.Company, domain.HRContact, *domain.UserProfile) (oracle.EmailDraft, oracle.TokenUsage, error) {
	return oracle.EmailDraft{}, oracle.TokenUsage{}, nil
}

type testServer struct {
	router     *gin.Engine
	jobs       *fakeJobStore
	dispatcher *fakeDispatcher
	companies  *fakeCompanyStore
	profiles   *fakeProfileStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	s := &testServer{
		jobs:       &fakeJobStore{},
		dispatcher: &fakeDispatcher{},
		companies:  &fakeCompanyStore{byID: map[string]*domain.Company{}},
		profiles: &fakeProfileStore{profile: &domain.UserProfile{
			Personal: domain.PersonalInfo{Name: "Alex Chen", Email: "alex@example.test"},
		}},
	}

	log := logger.NewNop()
	search := NewSearchHandler(s.jobs, s.dispatcher, reporter.New(), true, log)
	companies := NewCompanyHandler(s.companies, s.profiles,
		email.NewGenerator(disabledDrafter{}, log), log)

	s.router = NewRouter(search, companies, []string{"http://localhost:3000"}, log)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func validSearchRequest() domain.SearchRequest {
	return domain.SearchRequest{
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

func TestStartSearch(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/search", validSearchRequest())
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["job_id"])

	require.Len(t, s.jobs.created, 1)
	require.Len(t, s.dispatcher.tasks, 1)
	assert.Equal(t, s.jobs.created[0].ID, s.dispatcher.tasks[0].JobID)
	assert.Equal(t, 1, s.dispatcher.tasks[0].Attempt)
}

func TestStartSearchRejectsIncompleteProfile(t *testing.T) {
	s := newTestServer(t)

	req := validSearchRequest()
	req.Profile.Professional.Resume = ""

	w := s.do(t, http.MethodPost, "/api/v1/search", req)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "profile.professional.resume")
	assert.Empty(t, s.jobs.created)
}

func TestStartSearchConflictsWithActiveJob(t *testing.T) {
	s := newTestServer(t)
	active := domain.NewSearchJob()
	active.Start()
	s.jobs.latest = active

	w := s.do(t, http.MethodPost, "/api/v1/search", validSearchRequest())
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, s.dispatcher.tasks)
}

func TestProgressIdle(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/search/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report reporter.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.False(t, report.Active)
}

func TestProgressActive(t *testing.T) {
	s := newTestServer(t)
	job := domain.NewSearchJob()
	job.Start()
	job.SetProgress(domain.PhaseCompanyProcessing, 72, "processing Acme")
	s.jobs.latest = job

	w := s.do(t, http.MethodGet, "/api/v1/search/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var report reporter.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.True(t, report.Active)
	assert.Equal(t, 72, report.Progress.Percent)
}

func TestPauseToggles(t *testing.T) {
	s := newTestServer(t)
	job := domain.NewSearchJob()
	job.Start()
	s.jobs.latest = job

	w := s.do(t, http.MethodPost, "/api/v1/search/pause", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []bool{true}, s.jobs.pauseFlagSet)

	job.PauseRequested = true
	w = s.do(t, http.MethodPost, "/api/v1/search/pause", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []bool{true, false}, s.jobs.pauseFlagSet)
}

func TestPauseWithoutJob(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/search/pause", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListCompaniesFilters(t *testing.T) {
	s := newTestServer(t)
	s.companies.listed = []*domain.Company{domain.NewCompany("job-1", "Acme")}

	w := s.do(t, http.MethodGet,
		"/api/v1/companies?status=contacted&min_match_score=80&size=medium&has_contacts=true&sort_by=match_score&page=2&page_size=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	filter := s.companies.gotFilter
	assert.Equal(t, "contacted", filter.Status)
	assert.Equal(t, 80, filter.MinMatchScore)
	assert.Equal(t, "medium", filter.SizeCategory)
	assert.True(t, filter.HasContacts)
	assert.Equal(t, "match_score", filter.SortBy)
	assert.Equal(t, 10, filter.Limit)
	assert.Equal(t, 10, filter.Offset)
}

func TestListCompaniesRejectsUnknownStatus(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/companies?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateCompany(t *testing.T) {
	s := newTestServer(t)
	company := domain.NewCompany("job-1", "Acme")
	s.companies.byID[company.ID] = company

	w := s.do(t, http.MethodPatch, "/api/v1/companies/"+company.ID,
		map[string]any{"status": "contacted", "notes": "sent intro email"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, domain.StatusContacted, company.Status)
	assert.Equal(t, "sent intro email", company.Notes)
}

func TestUpdateCompanyRejectsUnknownStatus(t *testing.T) {
	s := newTestServer(t)
	company := domain.NewCompany("job-1", "Acme")
	s.companies.byID[company.ID] = company

	w := s.do(t, http.MethodPatch, "/api/v1/companies/"+company.ID,
		map[string]any{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkUpdate(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/companies/bulk",
		map[string]any{"ids": []string{"a", "b"}, "status": "contacted"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, s.companies.bulkCount)
}

func TestGenerateEmail(t *testing.T) {
	s := newTestServer(t)
	company := domain.NewCompany("job-1", "Acme")
	company.HRContacts = []domain.HRContact{
		{Name: "Jane Doe", Email: "jane@acme.test", Source: domain.SourceApollo},
	}
	s.companies.byID[company.ID] = company

	w := s.do(t, http.MethodPost, "/api/v1/companies/"+company.ID+"/email", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var generated email.Generated
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &generated))
	assert.True(t, generated.Template)
	assert.Equal(t, "jane@acme.test", generated.Recipient)

	require.Len(t, company.EmailHistory, 1)
	assert.Equal(t, []string{company.ID}, s.companies.historyFor)
}

func TestGenerateEmailWithoutContacts(t *testing.T) {
	s := newTestServer(t)
	company := domain.NewCompany("job-1", "Acme")
	s.companies.byID[company.ID] = company

	w := s.do(t, http.MethodPost, "/api/v1/companies/"+company.ID+"/email", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
