package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"docapproval/internal/apperror"
	"docapproval/internal/model"
	"docapproval/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultRoles is the chain created on first start when no roles exist.
var DefaultRoles = []model.Role{
	{Name: "Supervisor", Sequence: 1},
	{Name: "Department Manager", Sequence: 2},
	{Name: "Auditor", Sequence: 3},
	{Name: "General Manager", Sequence: 4},
}

// --- DTOs ---

type CreateRoleRequest struct {
	Name     string `json:"name" binding:"required"`
	Sequence int    `json:"sequence" binding:"required"`
}

type RoleResponse struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Sequence int    `json:"sequence"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context) ([]RoleResponse, error)
	CreateRole(ctx context.Context, req CreateRoleRequest, userID uint) (*RoleResponse, error)
	EnsureDefaultRoles(ctx context.Context) error
}

type roleService struct {
	txManager repository.TransactionManager
	roleRepo  repository.RoleRepository
	auditRepo repository.AuditRepository
	log       *zap.Logger
}

func NewRoleService(txManager repository.TransactionManager, roleRepo repository.RoleRepository, auditRepo repository.AuditRepository, log *zap.Logger) RoleService {
	return &roleService{txManager: txManager, roleRepo: roleRepo, auditRepo: auditRepo, log: log}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context) ([]RoleResponse, error) {
	roles, err := s.roleRepo.ListBySequence(ctx)
	if err != nil {
		return nil, apperror.FromDB(err, "roles", "list")
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

// CreateRole adds a stage to the chain. Documents created earlier keep the steps they already have.
func (s *roleService) CreateRole(ctx context.Context, req CreateRoleRequest, userID uint) (*RoleResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.InvalidInput("name", "must not be empty")
	}
	if req.Sequence <= 0 {
		return nil, apperror.InvalidInput("sequence", "must be positive")
	}

	role := model.Role{Name: name, Sequence: req.Sequence}
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureFree(txCtx, role); err != nil {
			return err
		}
		if err := s.roleRepo.Create(txCtx, &role); err != nil {
			return apperror.FromDB(err, "role", name)
		}
		return writeAudit(txCtx, s.auditRepo, uintRef(userID), model.ActionCreateRole, strconv.FormatUint(uint64(role.ID), 10), role.Name, map[string]interface{}{
			"sequence": role.Sequence,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("role created", zap.Uint("role_id", role.ID), zap.String("name", role.Name), zap.Int("sequence", role.Sequence))
	res := toRoleResponse(role)
	return &res, nil
}

func (s *roleService) ensureFree(ctx context.Context, role model.Role) error {
	if _, err := s.roleRepo.FindBySequence(ctx, role.Sequence); err == nil {
		return apperror.InvalidInput("sequence", fmt.Sprintf("%d is already taken", role.Sequence))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.FromDB(err, "role", role.Sequence)
	}

	if _, err := s.roleRepo.FindByName(ctx, role.Name); err == nil {
		return apperror.InvalidInput("name", fmt.Sprintf("%q already exists", role.Name))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.FromDB(err, "role", role.Name)
	}
	return nil
}

// EnsureDefaultRoles seeds DefaultRoles when the table is empty.
func (s *roleService) EnsureDefaultRoles(ctx context.Context) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		count, err := s.roleRepo.Count(txCtx)
		if err != nil {
			return apperror.FromDB(err, "roles", "count")
		}
		if count > 0 {
			return nil
		}

		for _, r := range DefaultRoles {
			role := r
			if err := s.roleRepo.Create(txCtx, &role); err != nil {
				return apperror.FromDB(err, "role", role.Name)
			}
		}
		s.log.Info("default approval roles created", zap.Int("count", len(DefaultRoles)))
		return nil
	})
}

func toRoleResponse(r model.Role) RoleResponse {
	return RoleResponse{ID: r.ID, Name: r.Name, Sequence: r.Sequence}
}
