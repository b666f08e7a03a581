package repository

import (
	"context"
	"time"

	"github.com/findmymua/fmm-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository interface {
	Create(ctx context.Context, kind string, req *domain.RegisterRequest, role, bio, passwordHash string) (*domain.Account, error)
	FindByEmail(ctx context.Context, kind, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id int64) (*domain.Account, error)
	UpdateProfile(ctx context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.Account, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetResetToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id int64) error
	ConsumeResetToken(ctx context.Context, kind, tokenHash, newPasswordHash string) (*domain.Account, error)
	List(ctx context.Context, limit, offset int) ([]domain.Account, error)
	UpdateRole(ctx context.Context, id int64, role string) error
}

type accountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

const accountCols = `id, kind, role, fname, lname, email, password_hash, avatar, bio, contact_no,
	location, location_served, experience, specialisation, certified_by, images,
	reset_token_hash, reset_expires_at, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.Kind, &a.Role, &a.FirstName, &a.LastName, &a.Email, &a.PasswordHash,
		&a.Avatar, &a.Bio, &a.ContactNo, &a.Location, &a.LocationServed, &a.Experience,
		&a.Specialisation, &a.CertifiedBy, &a.Images,
		&a.ResetPasswordTokenHash, &a.ResetPasswordExpiry, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepository) Create(ctx context.Context, kind string, req *domain.RegisterRequest, role, bio, passwordHash string) (*domain.Account, error) {
	const q = `
		INSERT INTO accounts (kind, role, fname, lname, email, password_hash, bio)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + accountCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return scanAccount(r.pool.QueryRow(ctx, q, kind, role, req.FirstName, req.LastName, req.Email, passwordHash, bio))
}

func (r *accountRepository) FindByEmail(ctx context.Context, kind, email string) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE kind = $1 AND email = $2`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAccount(r.pool.QueryRow(ctx, q, kind, email))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *accountRepository) FindByID(ctx context.Context, id int64) (*domain.Account, error) {
	const q = `SELECT ` + accountCols + ` FROM accounts WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAccount(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *accountRepository) UpdateProfile(ctx context.Context, id int64, req *domain.UpdateProfileRequest) (*domain.Account, error) {
	const q = `
		UPDATE accounts
		SET
			fname = COALESCE($2, fname),
			lname = COALESCE($3, lname),
			email = COALESCE($4, email),
			avatar = COALESCE($5, avatar),
			bio = COALESCE($6, bio),
			contact_no = COALESCE($7, contact_no),
			location = COALESCE($8, location),
			location_served = COALESCE($9, location_served),
			experience = COALESCE($10, experience),
			specialisation = COALESCE($11, specialisation),
			certified_by = COALESCE($12, certified_by),
			images = COALESCE($13, images),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + accountCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAccount(r.pool.QueryRow(ctx, q, id,
		req.FirstName, req.LastName, req.Email, req.Avatar, req.Bio, req.ContactNo,
		req.Location, req.LocationServed, req.Experience, req.Specialisation,
		req.CertifiedBy, req.Images,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	const q = `UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

func (r *accountRepository) SetResetToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	const q = `
		UPDATE accounts
		SET reset_token_hash = $2, reset_expires_at = $3, updated_at = now()
		WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, tokenHash, expiresAt)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}

func (r *accountRepository) ClearResetToken(ctx context.Context, id int64) error {
	const q = `
		UPDATE accounts
		SET reset_token_hash = NULL, reset_expires_at = NULL, updated_at = now()
		WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// ConsumeResetToken sets the new password hash and clears the reset fields in
// one statement, so a token can never be redeemed twice.
func (r *accountRepository) ConsumeResetToken(ctx context.Context, kind, tokenHash, newPasswordHash string) (*domain.Account, error) {
	const q = `
		UPDATE accounts
		SET password_hash = $3, reset_token_hash = NULL, reset_expires_at = NULL, updated_at = now()
		WHERE kind = $1
		  AND reset_token_hash = $2
		  AND reset_expires_at > now()
		RETURNING ` + accountCols

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	a, err := scanAccount(r.pool.QueryRow(ctx, q, kind, tokenHash, newPasswordHash))
	if err == pgx.ErrNoRows {
		return nil, nil // invalid, consumed, or expired
	}
	return a, err
}

func (r *accountRepository) List(ctx context.Context, limit, offset int) ([]domain.Account, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const q = `
		SELECT ` + accountCols + `
		FROM accounts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}

	return accounts, rows.Err()
}

func (r *accountRepository) UpdateRole(ctx context.Context, id int64, role string) error {
	const q = `UPDATE accounts SET role = $2, updated_at = now() WHERE id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, id, role)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	return nil
}
