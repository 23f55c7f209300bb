package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createAccountToken = `-- name: CreateAccountToken :exec
INSERT INTO account_tokens (user_id, kind, token_hash, new_email, expires_at)
VALUES ($1, $2, $3, $4, $5)
`

type CreateAccountTokenParams struct {
	UserID    pgtype.UUID        `json:"user_id"`
	Kind      string             `json:"kind"`
	TokenHash string             `json:"token_hash"`
	NewEmail  string             `json:"new_email"`
	ExpiresAt pgtype.Timestamptz `json:"expires_at"`
}

func (q *Queries) CreateAccountToken(ctx context.Context, arg CreateAccountTokenParams) error {
	_, err := q.db.Exec(ctx, createAccountToken,
		arg.UserID,
		arg.Kind,
		arg.TokenHash,
		arg.NewEmail,
		arg.ExpiresAt,
	)
	return err
}

const getLiveAccountTokenForUpdate = `-- name: GetLiveAccountTokenForUpdate :one
SELECT id, user_id, kind, token_hash, new_email, expires_at, used_at, created_at
FROM account_tokens
WHERE token_hash = $1 AND kind = $2 AND used_at IS NULL AND expires_at > now()
FOR UPDATE
`

type GetLiveAccountTokenForUpdateParams struct {
	TokenHash string `json:"token_hash"`
	Kind      string `json:"kind"`
}

func (q *Queries) GetLiveAccountTokenForUpdate(ctx context.Context, arg GetLiveAccountTokenForUpdateParams) (AccountToken, error) {
	row := q.db.QueryRow(ctx, getLiveAccountTokenForUpdate, arg.TokenHash, arg.Kind)
	var i AccountToken
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Kind,
		&i.TokenHash,
		&i.NewEmail,
		&i.ExpiresAt,
		&i.UsedAt,
		&i.CreatedAt,
	)
	return i, err
}

const invalidateAccountTokens = `-- name: InvalidateAccountTokens :execrows
UPDATE account_tokens
SET used_at = now()
WHERE user_id = $1 AND kind = $2 AND used_at IS NULL
`

type InvalidateAccountTokensParams struct {
	UserID pgtype.UUID `json:"user_id"`
	Kind   string      `json:"kind"`
}

func (q *Queries) InvalidateAccountTokens(ctx context.Context, arg InvalidateAccountTokensParams) (int64, error) {
	result, err := q.db.Exec(ctx, invalidateAccountTokens, arg.UserID, arg.Kind)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
