package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hazard-Tom2004/TESA-API/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

type userRow struct {
	ID            string         `db:"id"`
	FullName      string         `db:"full_name"`
	Email         string         `db:"email"`
	Avatar        sql.NullString `db:"avatar"`
	Department    pq.StringArray `db:"department"`
	Level         pq.StringArray `db:"level"`
	Role          string         `db:"role"`
	Verified      bool           `db:"verified"`
	PendingUpdate []byte         `db:"pending_update"`
	PasswordHash  []byte         `db:"password_hash"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r userRow) toUser() (user.User, error) {
	usr := user.User{
		ID:           r.ID,
		FullName:     r.FullName,
		Email:        r.Email,
		Avatar:       r.Avatar.String,
		Department:   r.Department,
		Level:        r.Level,
		Role:         r.Role,
		Verified:     r.Verified,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if len(r.PendingUpdate) > 0 {
		var pu user.PendingUpdate
		if err := json.Unmarshal(r.PendingUpdate, &pu); err != nil {
			return user.User{}, errors.Wrap(err, "decoding pending update")
		}
		usr.PendingUpdate = &pu
	}
	return usr, nil
}

func toRow(usr *user.User) (userRow, error) {
	row := userRow{
		ID:           usr.ID,
		FullName:     usr.FullName,
		Email:        usr.Email,
		Avatar:       sql.NullString{String: usr.Avatar, Valid: usr.Avatar != ""},
		Department:   usr.Department,
		Level:        usr.Level,
		Role:         usr.Role,
		Verified:     usr.Verified,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt,
		UpdatedAt:    usr.UpdatedAt,
	}
	if usr.PendingUpdate != nil {
		data, err := json.Marshal(usr.PendingUpdate)
		if err != nil {
			return userRow{}, errors.Wrap(err, "encoding pending update")
		}
		row.PendingUpdate = data
	}
	return row, nil
}

const insertUser = `
INSERT INTO "user" (id, full_name, email, avatar, department, level, role, verified, pending_update, password_hash, created_at, updated_at)
VALUES (:id, :full_name, :email, :avatar, :department, :level, :role, :verified, :pending_update, :password_hash, :created_at, :updated_at)`

func (repo *userRepository) CreateUser(ctx context.Context, usr *user.User) error {
	row, err := toRow(usr)
	if err != nil {
		return err
	}
	if _, err = repo.db.NamedExecContext(ctx, insertUser, row); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return user.ErrEmailExists
		}
		return errors.Wrap(err, "inserting user")
	}
	return nil
}

const updateUser = `
UPDATE "user"
SET full_name = :full_name, email = :email, avatar = :avatar, department = :department,
    level = :level, role = :role, verified = :verified, pending_update = :pending_update,
    password_hash = :password_hash, updated_at = :updated_at
WHERE id = :id`

func (repo *userRepository) UpdateUser(ctx context.Context, usr *user.User) error {
	row, err := toRow(usr)
	if err != nil {
		return err
	}
	res, err := repo.db.NamedExecContext(ctx, updateUser, row)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (repo *userRepository) getUser(ctx context.Context, query, arg string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "fetching user")
	}
	return row.toUser()
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, `SELECT * FROM "user" WHERE id = $1`, id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, `SELECT * FROM "user" WHERE email = $1`, email)
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "user" ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		usr, err := row.toUser()
		if err != nil {
			return nil, err
		}
		users = append(users, usr)
	}
	return users, nil
}

func (repo *userRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}
