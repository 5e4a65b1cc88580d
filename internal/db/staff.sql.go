package db

import (
	"context"

	"github.com/google/uuid"
)

const staffColumns = `id, email, name, password_hash, role, is_active, created_at`

func scanStaffUser(row interface{ Scan(...any) error }) (StaffUser, error) {
	var u StaffUser
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}

const getStaffUserByEmail = `-- name: GetStaffUserByEmail :one
SELECT ` + staffColumns + ` FROM staff_users WHERE lower(email) = lower($1)
`

func (q *Queries) GetStaffUserByEmail(ctx context.Context, email string) (StaffUser, error) {
	return scanStaffUser(q.db.QueryRow(ctx, getStaffUserByEmail, email))
}

const getStaffUser = `-- name: GetStaffUser :one
SELECT ` + staffColumns + ` FROM staff_users WHERE id = $1
`

func (q *Queries) GetStaffUser(ctx context.Context, id uuid.UUID) (StaffUser, error) {
	return scanStaffUser(q.db.QueryRow(ctx, getStaffUser, id))
}

const upsertStaffUser = `-- name: UpsertStaffUser :one
INSERT INTO staff_users (email, name, password_hash, role)
VALUES (lower($1), $2, $3, $4)
ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash, role = EXCLUDED.role
RETURNING ` + staffColumns

type UpsertStaffUserParams struct {
	Email        string
	Name         string
	PasswordHash string
	Role         string
}

func (q *Queries) UpsertStaffUser(ctx context.Context, arg UpsertStaffUserParams) (StaffUser, error) {
	return scanStaffUser(q.db.QueryRow(ctx, upsertStaffUser, arg.Email, arg.Name, arg.PasswordHash, arg.Role))
}
