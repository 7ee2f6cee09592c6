package user

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/muhammadheryan/catalog-api/model"
)

type SQL struct {
	conn *sqlx.DB
}

type UserRepository interface {
	Create(ctx context.Context, req *model.UserEntity) (*model.UserEntity, error)
	Get(ctx context.Context, filter *model.UserFilter) (*model.UserEntity, error)
	UpdateRole(ctx context.Context, userID, roleID string) (bool, error)
}

func NewUserRepository(conn *sqlx.DB) UserRepository {
	return &SQL{conn: conn}
}

const (
	insertUserQuery = `INSERT INTO users (id, email, hashed_password, is_active, role_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	getUserBase     = `SELECT u.id, u.email, u.hashed_password, u.is_active, u.role_id, r.name AS role_name, u.created_at, u.updated_at
FROM users u
LEFT JOIN roles r ON r.id = u.role_id
WHERE true`
	updateUserRoleQuery = `UPDATE users SET role_id = ?, updated_at = ? WHERE id = ?`
)

func (s *SQL) Create(ctx context.Context, data *model.UserEntity) (*model.UserEntity, error) {
	if data.ID == "" {
		data.ID = uuid.NewString()
	}
	data.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.conn.ExecContext(ctx, insertUserQuery, data.ID, data.Email, data.PasswordHash, data.IsActive, data.RoleID, data.CreatedAt)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Get returns nil, nil when no user matches.
func (s *SQL) Get(ctx context.Context, filter *model.UserFilter) (*model.UserEntity, error) {
	query := getUserBase
	args := make([]any, 0, 2)

	if filter.ID != "" {
		query += " AND u.id = ?"
		args = append(args, filter.ID)
	}
	if filter.Email != "" {
		query += " AND u.email = ?"
		args = append(args, filter.Email)
	}
	query += " LIMIT 1"

	var entity model.UserEntity
	if err := s.conn.QueryRowxContext(ctx, query, args...).StructScan(&entity); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entity, nil
}

// UpdateRole reports false when the user does not exist.
func (s *SQL) UpdateRole(ctx context.Context, userID, roleID string) (bool, error) {
	res, err := s.conn.ExecContext(ctx, updateUserRoleQuery, roleID, time.Now().UTC(), userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
