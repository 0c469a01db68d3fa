package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/safar/b2b-ordering/internal/database"
	"github.com/safar/b2b-ordering/internal/models"
)

func CreateCompany(ctx context.Context, q database.Querier, name string, salespersonID *int64) (*models.Company, error) {
	company := &models.Company{}
	var salesperson sql.NullInt64

	query := `
		INSERT INTO companies (name, salesperson_id, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, name, salesperson_id, created_at`

	err := q.QueryRowContext(ctx, query, name, nullInt64(salespersonID)).Scan(
		&company.ID,
		&company.Name,
		&salesperson,
		&company.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("create company: %w", err)
	}
	company.SalespersonID = int64Ptr(salesperson)

	return company, nil
}

// AssignSalesperson puts a company in a salesperson's scope.
func AssignSalesperson(ctx context.Context, q database.Querier, companyID, salespersonID int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE companies SET salesperson_id = $1 WHERE id = $2`,
		salespersonID, companyID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrUserNotFound
		}
		return fmt.Errorf("assign salesperson: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrCompanyNotFound
	}

	return nil
}

func CreateUser(ctx context.Context, q database.Querier, email, name string, role models.Role, companyID *int64) (*models.User, error) {
	user := &models.User{}
	var company sql.NullInt64

	query := `
		INSERT INTO users (email, name, role, company_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, email, name, role, company_id, created_at`

	err := q.QueryRowContext(ctx, query, email, name, int(role), nullInt64(companyID)).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&company,
		&user.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, database.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	user.CompanyID = int64Ptr(company)

	return user, nil
}

func GetUser(ctx context.Context, q database.Querier, id int64) (*models.User, error) {
	user := &models.User{}
	var company sql.NullInt64

	query := `
		SELECT id, email, name, role, company_id, created_at
		FROM users
		WHERE id = $1`

	err := q.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&company,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.CompanyID = int64Ptr(company)

	return user, nil
}

// SalespersonForUser returns the salesperson assigned to the user's company,
// nil when the user has no company or the company has no salesperson.
func SalespersonForUser(ctx context.Context, q database.Querier, userID int64) (*int64, error) {
	var salesperson sql.NullInt64

	err := q.QueryRowContext(ctx,
		`SELECT c.salesperson_id
		 FROM users u
		 LEFT JOIN companies c ON c.id = u.company_id
		 WHERE u.id = $1`,
		userID).Scan(&salesperson)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get salesperson for user: %w", err)
	}

	return int64Ptr(salesperson), nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
