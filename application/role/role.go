package role

import (
	"context"
	"fmt"

	"github.com/muhammadheryan/catalog-api/constant"
	roleRepo "github.com/muhammadheryan/catalog-api/repository/role"
	"github.com/muhammadheryan/catalog-api/utils/logger"
	"go.uber.org/zap"
)

type RoleApp interface {
	Seed(ctx context.Context) error
}

type roleAppImpl struct {
	roleRepo roleRepo.RoleRepository
}

func NewRoleApp(roleRepo roleRepo.RoleRepository) RoleApp {
	return &roleAppImpl{roleRepo: roleRepo}
}

// Seed inserts the default roles that are missing. Running it again is a no-op.
func (s *roleAppImpl) Seed(ctx context.Context) error {
	for _, r := range constant.DefaultRoles {
		if err := s.roleRepo.EnsureRole(ctx, r.Name, r.Description); err != nil {
			logger.Error("[Seed] err roleRepo.EnsureRole", zap.String("role", r.Name), zap.String("error", err.Error()))
			return fmt.Errorf("seed role %s: %w", r.Name, err)
		}
	}
	return nil
}
