package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const addressColumns = `id, user_id, label, first_name, last_name, company, address_line_1, address_line_2, city, state, postal_code, country, phone, is_primary, created_at, updated_at`

const addressLabelTaken = `-- name: AddressLabelTaken :one
SELECT EXISTS (
    SELECT 1 FROM addresses
    WHERE user_id = $1 AND label = $2 AND id IS DISTINCT FROM $3
)
`

type AddressLabelTakenParams struct {
	UserID    pgtype.UUID `json:"user_id"`
	Label     string      `json:"label"`
	ExcludeID pgtype.UUID `json:"exclude_id"`
}

func (q *Queries) AddressLabelTaken(ctx context.Context, arg AddressLabelTakenParams) (bool, error) {
	row := q.db.QueryRow(ctx, addressLabelTaken, arg.UserID, arg.Label, arg.ExcludeID)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const clearPrimaryAddress = `-- name: ClearPrimaryAddress :exec
UPDATE addresses
SET is_primary = FALSE, updated_at = now()
WHERE user_id = $1 AND is_primary
`

func (q *Queries) ClearPrimaryAddress(ctx context.Context, userID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, clearPrimaryAddress, userID)
	return err
}

const countAddresses = `-- name: CountAddresses :one
SELECT COUNT(*)
FROM addresses
WHERE user_id = $1
`

func (q *Queries) CountAddresses(ctx context.Context, userID pgtype.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countAddresses, userID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createAddress = `-- name: CreateAddress :one
INSERT INTO addresses (
    user_id, label, first_name, last_name, company, address_line_1, address_line_2,
    city, state, postal_code, country, phone, is_primary
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + addressColumns

type CreateAddressParams struct {
	UserID       pgtype.UUID `json:"user_id"`
	Label        string      `json:"label"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	Company      string      `json:"company"`
	AddressLine1 string      `json:"address_line_1"`
	AddressLine2 string      `json:"address_line_2"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	PostalCode   string      `json:"postal_code"`
	Country      string      `json:"country"`
	Phone        string      `json:"phone"`
	IsPrimary    bool        `json:"is_primary"`
}

func (q *Queries) CreateAddress(ctx context.Context, arg CreateAddressParams) (Address, error) {
	row := q.db.QueryRow(ctx, createAddress,
		arg.UserID,
		arg.Label,
		arg.FirstName,
		arg.LastName,
		arg.Company,
		arg.AddressLine1,
		arg.AddressLine2,
		arg.City,
		arg.State,
		arg.PostalCode,
		arg.Country,
		arg.Phone,
		arg.IsPrimary,
	)
	return scanAddress(row)
}

const deleteAddress = `-- name: DeleteAddress :execrows
DELETE FROM addresses
WHERE id = $1 AND user_id = $2
`

type DeleteAddressParams struct {
	ID     pgtype.UUID `json:"id"`
	UserID pgtype.UUID `json:"user_id"`
}

func (q *Queries) DeleteAddress(ctx context.Context, arg DeleteAddressParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteAddress, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getAddress = `-- name: GetAddress :one
SELECT ` + addressColumns + `
FROM addresses
WHERE id = $1 AND user_id = $2
`

type GetAddressParams struct {
	ID     pgtype.UUID `json:"id"`
	UserID pgtype.UUID `json:"user_id"`
}

func (q *Queries) GetAddress(ctx context.Context, arg GetAddressParams) (Address, error) {
	return scanAddress(q.db.QueryRow(ctx, getAddress, arg.ID, arg.UserID))
}

const listAddresses = `-- name: ListAddresses :many
SELECT ` + addressColumns + `
FROM addresses
WHERE user_id = $1
ORDER BY is_primary DESC, created_at, id
`

func (q *Queries) ListAddresses(ctx context.Context, userID pgtype.UUID) ([]Address, error) {
	rows, err := q.db.Query(ctx, listAddresses, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Address
	for rows.Next() {
		i, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const setPrimaryAddress = `-- name: SetPrimaryAddress :one
UPDATE addresses
SET is_primary = TRUE, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + addressColumns

type SetPrimaryAddressParams struct {
	ID     pgtype.UUID `json:"id"`
	UserID pgtype.UUID `json:"user_id"`
}

func (q *Queries) SetPrimaryAddress(ctx context.Context, arg SetPrimaryAddressParams) (Address, error) {
	return scanAddress(q.db.QueryRow(ctx, setPrimaryAddress, arg.ID, arg.UserID))
}

const updateAddress = `-- name: UpdateAddress :one
UPDATE addresses
SET label = $3,
    first_name = $4,
    last_name = $5,
    company = $6,
    address_line_1 = $7,
    address_line_2 = $8,
    city = $9,
    state = $10,
    postal_code = $11,
    country = $12,
    phone = $13,
    is_primary = $14,
    updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + addressColumns

type UpdateAddressParams struct {
	ID           pgtype.UUID `json:"id"`
	UserID       pgtype.UUID `json:"user_id"`
	Label        string      `json:"label"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	Company      string      `json:"company"`
	AddressLine1 string      `json:"address_line_1"`
	AddressLine2 string      `json:"address_line_2"`
	City         string      `json:"city"`
	State        string      `json:"state"`
	PostalCode   string      `json:"postal_code"`
	Country      string      `json:"country"`
	Phone        string      `json:"phone"`
	IsPrimary    bool        `json:"is_primary"`
}

func (q *Queries) UpdateAddress(ctx context.Context, arg UpdateAddressParams) (Address, error) {
	row := q.db.QueryRow(ctx, updateAddress,
		arg.ID,
		arg.UserID,
		arg.Label,
		arg.FirstName,
		arg.LastName,
		arg.Company,
		arg.AddressLine1,
		arg.AddressLine2,
		arg.City,
		arg.State,
		arg.PostalCode,
		arg.Country,
		arg.Phone,
		arg.IsPrimary,
	)
	return scanAddress(row)
}

func scanAddress(row rowScanner) (Address, error) {
	var i Address
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Label,
		&i.FirstName,
		&i.LastName,
		&i.Company,
		&i.AddressLine1,
		&i.AddressLine2,
		&i.City,
		&i.State,
		&i.PostalCode,
		&i.Country,
		&i.Phone,
		&i.IsPrimary,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
