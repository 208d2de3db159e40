package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jonesrussell/jobscout/internal/domain"
	"github.com/jonesrussell/jobscout/internal/logger"
)

// CompanyRepository persists the deduplicated company catalog.
type CompanyRepository struct {
	db     *sql.DB
	logger logger.Logger
}

// NewCompanyRepository creates a CompanyRepository.
func NewCompanyRepository(db *sql.DB, log logger.Logger) *CompanyRepository {
	return &CompanyRepository{db: db, logger: log}
}

// ListFilter narrows and orders a catalog listing. Zero values mean
// "no constraint".
type ListFilter struct {
	JobID         string
	Status        string
	Industry      string
	Location      string
	SizeCategory  string
	Search        string
	MinMatchScore int
	MinWLBScore   int
	HasContacts   bool
	SortBy        string
	SortOrder     string
	Limit         int
	Offset        int
}

// listSortColumns whitelists the columns a listing may sort by.
var listSortColumns = map[string]string{
	"name":         "name",
	"match_score":  "match_score",
	"wlb_score":    "wlb_score",
	"data_quality": "data_quality",
	"status":       "status",
	"created_at":   "created_at",
	"updated_at":   "updated_at",
}

const companyColumns = `id, job_id, name, domain, website, location, industry,
	size_category, employee_count, description, local_priority, hr_contacts,
	work_life_balance, match, status, notes, email_history, data_quality,
	created_at, updated_at`

// Insert adds a company to the catalog. A name collision with an existing
// company is not an error: the insert is a no-op and Insert reports false.
// The unique index on lower(name) closes the race between concurrent jobs.
func (r *CompanyRepository) Insert(ctx context.Context, c *domain.Company) (bool, error) {
	query := `
		INSERT INTO companies (` + companyColumns + `, match_score, wlb_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (lower(name)) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		c.ID, c.JobID, c.Name, c.Domain, c.Website, c.Location, c.Industry,
		c.SizeCategory, c.EmployeeCount, c.Description, c.LocalPriority,
		domain.JSONB[[]domain.HRContact]{V: c.HRContacts},
		domain.JSONB[domain.WorkLifeBalance]{V: c.WorkLifeBalance},
		domain.JSONB[domain.MatchScore]{V: c.Match},
		string(c.Status), c.Notes,
		domain.JSONB[[]domain.EmailRecord]{V: c.EmailHistory},
		c.DataQuality, c.CreatedAt, c.UpdatedAt,
		c.Match.Score, c.WorkLifeBalance.Score,
	)
	if err != nil {
		return false, fmt.Errorf("insert company: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert company rows affected: %w", err)
	}

	return rows > 0, nil
}

// ExistsByName reports whether a company with this name is already cataloged.
// The check is case-insensitive.
func (r *CompanyRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM companies WHERE lower(name) = lower($1))`

	if err := r.db.QueryRowContext(ctx, query, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check company exists: %w", err)
	}
	return exists, nil
}

// GetByID fetches one company.
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1`

	c, err := scanCompany(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	return c, nil
}

// List returns a filtered, ordered page of the catalog.
func (r *CompanyRepository) List(ctx context.Context, filter ListFilter) ([]*domain.Company, error) {
	where, args := buildListWhere(filter)

	query := `SELECT ` + companyColumns + ` FROM companies` + where +
		buildListOrder(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []*domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company row: %w", err)
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}

	return companies, nil
}

// Count returns the number of catalog rows matching the filter.
func (r *CompanyRepository) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := buildListWhere(filter)

	var count int
	query := `SELECT COUNT(*) FROM companies` + where
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count companies: %w", err)
	}
	return count, nil
}

// UpdateStatusNotes changes the user-driven fields of one company.
func (r *CompanyRepository) UpdateStatusNotes(ctx context.Context, id string, status domain.CompanyStatus, notes string) error {
	query := `
		UPDATE companies
		SET status = $2, notes = $3, updated_at = now()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, string(status), notes)
	if err != nil {
		return fmt.Errorf("update company status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update company status rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update company %s: %w", id, ErrNotFound)
	}

	return nil
}

// BulkUpdateStatus applies one status to many companies, returning how many
// rows actually changed.
func (r *CompanyRepository) BulkUpdateStatus(ctx context.Context, ids []string, status domain.CompanyStatus) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, string(status))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	query := `UPDATE companies SET status = $1, updated_at = now() WHERE id IN (` +
		strings.Join(placeholders, ", ") + `)`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk update status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk update rows affected: %w", err)
	}

	return int(rows), nil
}

// AppendEmailHistory persists the updated email history of one company.
func (r *CompanyRepository) AppendEmailHistory(ctx context.Context, c *domain.Company) error {
	query := `
		UPDATE companies
		SET email_history = $2, updated_at = $3
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, c.ID,
		domain.JSONB[[]domain.EmailRecord]{V: c.EmailHistory}, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("append email history: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append email history rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("append email history on %s: %w", c.ID, ErrNotFound)
	}

	return nil
}

func buildListWhere(filter ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	add := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.JobID != "" {
		add("job_id = $%d", filter.JobID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Industry != "" {
		add("industry ILIKE $%d", filter.Industry)
	}
	if filter.Location != "" {
		add("location ILIKE '%%' || $%d || '%%'", filter.Location)
	}
	if filter.SizeCategory != "" {
		add("size_category = $%d", filter.SizeCategory)
	}
	if filter.Search != "" {
		add("name ILIKE '%%' || $%d || '%%'", filter.Search)
	}
	if filter.MinMatchScore > 0 {
		add("match_score >= $%d", filter.MinMatchScore)
	}
	if filter.MinWLBScore > 0 {
		add("wlb_score >= $%d", filter.MinWLBScore)
	}
	if filter.HasContacts {
		clauses = append(clauses, "jsonb_array_length(coalesce(hr_contacts, '[]'::jsonb)) > 0")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildListOrder(filter ListFilter) string {
	column, ok := listSortColumns[filter.SortBy]
	if !ok {
		column = "match_score"
	}

	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	return fmt.Sprintf(" ORDER BY %s %s, name ASC", column, direction)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*domain.Company, error) {
	var (
		c        domain.Company
		status   string
		contacts domain.JSONB[[]domain.HRContact]
		wlb      domain.JSONB[domain.WorkLifeBalance]
		match    domain.JSONB[domain.MatchScore]
		emails   domain.JSONB[[]domain.EmailRecord]
	)

	err := row.Scan(&c.ID, &c.JobID, &c.Name, &c.Domain, &c.Website,
		&c.Location, &c.Industry, &c.SizeCategory, &c.EmployeeCount,
		&c.Description, &c.LocalPriority, &contacts, &wlb, &match,
		&status, &c.Notes, &emails, &c.DataQuality,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Status = domain.CompanyStatus(status)
	c.HRContacts = contacts.V
	c.WorkLifeBalance = wlb.V
	c.Match = match.V
	c.EmailHistory = emails.V

	return &c, nil
}
