package role

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/muhammadheryan/catalog-api/model"
)

type SQL struct {
	conn *sqlx.DB
}

type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*model.RoleEntity, error)
	EnsureRole(ctx context.Context, name, description string) error
}

func NewRoleRepository(conn *sqlx.DB) RoleRepository {
	return &SQL{conn: conn}
}

const (
	getRoleByNameQuery = `SELECT id, name, description FROM roles WHERE name = ? LIMIT 1`
	// the unique name key turns a repeated insert into a no-op
	ensureRoleQuery = `INSERT INTO roles (id, name, description) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE name = name`
)

// GetByName returns nil, nil when the role does not exist.
func (s *SQL) GetByName(ctx context.Context, name string) (*model.RoleEntity, error) {
	var role model.RoleEntity
	if err := s.conn.GetContext(ctx, &role, getRoleByNameQuery, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (s *SQL) EnsureRole(ctx context.Context, name, description string) error {
	_, err := s.conn.ExecContext(ctx, ensureRoleQuery, uuid.NewString(), name, description)
	return err
}
