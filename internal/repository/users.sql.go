package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const activateUser = `-- name: ActivateUser :exec
UPDATE users
SET is_active = TRUE, updated_at = now()
WHERE id = $1
`

func (q *Queries) ActivateUser(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, activateUser, id)
	return err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (email, first_name, last_name, company_name, phone, password_hash)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, email, first_name, last_name, is_active, created_at, updated_at, password_hash, phone, company_name, last_login
`

type CreateUserParams struct {
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	CompanyName  string `json:"company_name"`
	Phone        string `json:"phone"`
	PasswordHash string `json:"password_hash"`
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.Email,
		arg.FirstName,
		arg.LastName,
		arg.CompanyName,
		arg.Phone,
		arg.PasswordHash,
	)
	return scanUser(row)
}

const emailTaken = `-- name: EmailTaken :one
SELECT EXISTS (
    SELECT 1 FROM users
    WHERE lower(email) = lower($1) AND id IS DISTINCT FROM $2
)
`

type EmailTakenParams struct {
	Email     string      `json:"email"`
	ExcludeID pgtype.UUID `json:"exclude_id"`
}

func (q *Queries) EmailTaken(ctx context.Context, arg EmailTakenParams) (bool, error) {
	row := q.db.QueryRow(ctx, emailTaken, arg.Email, arg.ExcludeID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const getActiveUser = `-- name: GetActiveUser :one
SELECT id, email, first_name, last_name, is_active, created_at, updated_at, password_hash, phone, company_name, last_login
FROM users
WHERE id = $1 AND is_active = TRUE
`

func (q *Queries) GetActiveUser(ctx context.Context, id pgtype.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getActiveUser, id))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, first_name, last_name, is_active, created_at, updated_at, password_hash, phone, company_name, last_login
FROM users
WHERE lower(email) = lower($1)
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserForUpdate = `-- name: GetUserForUpdate :one
SELECT id, email, first_name, last_name, is_active, created_at, updated_at, password_hash, phone, company_name, last_login
FROM users
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetUserForUpdate(ctx context.Context, id pgtype.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserForUpdate, id))
}

const updateLastLogin = `-- name: UpdateLastLogin :exec
UPDATE users
SET last_login = now()
WHERE id = $1
`

func (q *Queries) UpdateLastLogin(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, updateLastLogin, id)
	return err
}

const updateUserEmail = `-- name: UpdateUserEmail :exec
UPDATE users
SET email = $2, updated_at = now()
WHERE id = $1
`

type UpdateUserEmailParams struct {
	ID    pgtype.UUID `json:"id"`
	Email string      `json:"email"`
}

func (q *Queries) UpdateUserEmail(ctx context.Context, arg UpdateUserEmailParams) error {
	_, err := q.db.Exec(ctx, updateUserEmail, arg.ID, arg.Email)
	return err
}

const updateUserPassword = `-- name: UpdateUserPassword :exec
UPDATE users
SET password_hash = $2, updated_at = now()
WHERE id = $1
`

type UpdateUserPasswordParams struct {
	ID           pgtype.UUID `json:"id"`
	PasswordHash string      `json:"password_hash"`
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.Exec(ctx, updateUserPassword, arg.ID, arg.PasswordHash)
	return err
}

const updateUserProfile = `-- name: UpdateUserProfile :one
UPDATE users
SET email = $2,
    first_name = $3,
    last_name = $4,
    phone = $5,
    company_name = $6,
    updated_at = now()
WHERE id = $1
RETURNING id, email, first_name, last_name, is_active, created_at, updated_at, password_hash, phone, company_name, last_login
`

type UpdateUserProfileParams struct {
	ID          pgtype.UUID `json:"id"`
	Email       string      `json:"email"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Phone       string      `json:"phone"`
	CompanyName string      `json:"company_name"`
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	row := q.db.QueryRow(ctx, updateUserProfile,
		arg.ID,
		arg.Email,
		arg.FirstName,
		arg.LastName,
		arg.Phone,
		arg.CompanyName,
	)
	return scanUser(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.FirstName,
		&i.LastName,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
		&i.PasswordHash,
		&i.Phone,
		&i.CompanyName,
		&i.LastLogin,
	)
	return i, err
}
