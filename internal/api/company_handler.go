package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/email"
	"github.com/jonesrussell/jobscout/internal/logger"
	"github.com/jonesrussell/jobscout/internal/repository"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// CompanyStore is the catalog persistence the handlers need.
type CompanyStore interface {
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	List(ctx context.Context, filter repository.ListFilter) ([]*domain.Company, error)
	Count(ctx context.Context, filter repository.ListFilter) (int, error)
	UpdateStatusNotes(ctx context.Context, id string, status domain.CompanyStatus, notes string) error
	BulkUpdateStatus(ctx context.Context, ids []string, status domain.CompanyStatus) (int, error)
	AppendEmailHistory(ctx context.Context, c *domain.Company) error
}

// ProfileStore fetches the stored user profile for email generation.
type ProfileStore interface {
	Latest(ctx context.Context) (*domain.UserProfile, error)
}

// CompanyHandler serves the company catalog.
type CompanyHandler struct {
	companies CompanyStore
	profiles  ProfileStore
	emails    *email.Generator
	logger    logger.Logger
}

// NewCompanyHandler creates a CompanyHandler.
func NewCompanyHandler(companies CompanyStore, profiles ProfileStore, emails *email.Generator, log logger.Logger) *CompanyHandler {
	return &CompanyHandler{
		companies: companies,
		profiles:  profiles,
		emails:    emails,
		logger:    log,
	}
}

// List returns a filtered, sorted page of the catalog.
func (h *CompanyHandler) List(c *gin.Context) {
	filter := repository.ListFilter{
		JobID:        c.Query("job_id"),
		Status:       c.Query("status"),
		Industry:     c.Query("industry"),
		Location:     c.Query("location"),
		SizeCategory: c.Query("size"),
		Search:       c.Query("search"),
		HasContacts:  c.Query("has_contacts") == "true",
		SortBy:       c.Query("sort_by"),
		SortOrder:    c.Query("sort_order"),
	}

	if s := c.Query("status"); s != "" && !domain.CompanyStatus(s).IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status", "status": s})
		return
	}

	filter.MinMatchScore = intQuery(c, "min_match_score")
	filter.MinWLBScore = intQuery(c, "min_wlb_score")

	page := intQuery(c, "page")
	if page < 1 {
		page = 1
	}
	size := intQuery(c, "page_size")
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	filter.Limit = size
	filter.Offset = (page - 1) * size

	companies, err := h.companies.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list companies", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list companies"})
		return
	}

	total, err := h.companies.Count(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to count companies", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list companies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"companies": companies,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}

// GetByID returns one company.
func (h *CompanyHandler) GetByID(c *gin.Context) {
	company, err := h.companies.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
			return
		}
		h.logger.Error("Failed to load company", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load company"})
		return
	}

	c.JSON(http.StatusOK, company)
}

type updateCompanyRequest struct {
	Status domain.CompanyStatus `json:"status"`
	Notes  *string              `json:"notes"`
}

// Update changes the outreach status and notes of one company.
func (h *CompanyHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req updateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	company, err := h.companies.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
			return
		}
		h.logger.Error("Failed to load company", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update company"})
		return
	}

	status := company.Status
	if req.Status != "" {
		if !req.Status.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status", "status": req.Status})
			return
		}
		status = req.Status
	}
	notes := company.Notes
	if req.Notes != nil {
		notes = *req.Notes
	}

	if err := h.companies.UpdateStatusNotes(c.Request.Context(), id, status, notes); err != nil {
		h.logger.Error("Failed to update company",
			logger.String("company_id", id), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update company"})
		return
	}

	h.logger.Info("Company updated",
		logger.String("company_id", id),
		logger.String("status", string(status)),
	)

	company.Status = status
	company.Notes = notes
	c.JSON(http.StatusOK, company)
}

type bulkUpdateRequest struct {
	IDs    []string             `json:"ids"`
	Status domain.CompanyStatus `json:"status"`
}

// BulkUpdate applies one status to many companies.
func (h *CompanyHandler) BulkUpdate(c *gin.Context) {
	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No company IDs given"})
		return
	}
	if !req.Status.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status", "status": req.Status})
		return
	}

	updated, err := h.companies.BulkUpdateStatus(c.Request.Context(), req.IDs, req.Status)
	if err != nil {
		h.logger.Error("Failed to bulk update companies", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update companies"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

type emailRequest struct {
	RecipientEmail string `json:"recipient_email"`
}

// GenerateEmail writes an outreach email for one company and records it in
// the company's email history.
func (h *CompanyHandler) GenerateEmail(c *gin.Context) {
	id := c.Param("id")

	// The body is optional; without it the first contact is used.
	var req emailRequest
	_ = c.ShouldBindJSON(&req)

	company, err := h.companies.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
			return
		}
		h.logger.Error("Failed to load company", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate email"})
		return
	}

	contact, ok := pickContact(company, req.RecipientEmail)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Company has no contacts to email"})
		return
	}

	profile, err := h.profiles.Latest(c.Request.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No profile on file; run a search first"})
			return
		}
		h.logger.Error("Failed to load profile", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate email"})
		return
	}

	generated := h.emails.Generate(c.Request.Context(), company, contact, profile)

	company.AppendEmail(domain.EmailRecord{
		GeneratedAt:    time.Now().UTC(),
		RecipientEmail: generated.Recipient,
		Subject:        generated.Subject,
	})
	if err := h.companies.AppendEmailHistory(c.Request.Context(), company); err != nil {
		h.logger.Error("Failed to record email",
			logger.String("company_id", id), logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate email"})
		return
	}

	h.logger.Info("Outreach email generated",
		logger.String("company_id", id),
		logger.String("recipient", generated.Recipient),
		logger.Bool("template", generated.Template),
	)

	c.JSON(http.StatusOK, generated)
}

// pickContact chooses the recipient: a contact matching the requested email,
// or the first contact when none was requested.
func pickContact(company *domain.Company, requested string) (domain.HRContact, bool) {
	if len(company.HRContacts) == 0 {
		return domain.HRContact{}, false
	}
	if requested == "" {
		return company.HRContacts[0], true
	}
	for _, contact := range company.HRContacts {
		if contact.Email == requested {
			return contact, true
		}
	}
	return domain.HRContact{}, false
}

func intQuery(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return v
}
