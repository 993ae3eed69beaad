package main

import (
	"context"
	"errors"
	"log"

	"docapproval/internal/config"
	"docapproval/internal/database"
	"docapproval/internal/logger"
	"docapproval/internal/model"
	"docapproval/internal/repository"
	"docapproval/internal/service"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type seedUser struct {
	username   string
	department string
	role       string // empty = not an approver
	admin      bool
}

var departments = []string{"Finance", "Logistics"}

var users = []seedUser{
	{username: "admin", admin: true},
	{username: "fin.supervisor", department: "Finance", role: "Supervisor"},
	{username: "fin.manager", department: "Finance", role: "Department Manager"},
	{username: "fin.auditor", department: "Finance", role: "Auditor"},
	{username: "fin.gm", department: "Finance", role: "General Manager"},
	{username: "log.supervisor.a", department: "Logistics", role: "Supervisor"},
	{username: "log.supervisor.b", department: "Logistics", role: "Supervisor"},
	{username: "log.clerk", department: "Logistics"},
}

const demoPassword = "password123"

// Seeds departments and demo users on top of the default role chain. Safe to run repeatedly.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	zlog, err := logger.New(cfg.GinMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.NewConnection(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}

	if err := seed(context.Background(), db, zlog); err != nil {
		zlog.Fatal("seeding failed", zap.Error(err))
	}
	zlog.Info("seed complete", zap.String("password", demoPassword))
}

func seed(ctx context.Context, db *gorm.DB, zlog *zap.Logger) error {
	txManager := repository.NewTransactionManager(db)
	roleRepo := repository.NewRoleRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	userRepo := repository.NewUserRepository(db)

	roleService := service.NewRoleService(txManager, roleRepo, repository.NewAuditRepository(db), zlog)
	if err := roleService.EnsureDefaultRoles(ctx); err != nil {
		return err
	}

	hash, err := service.HashPassword(demoPassword)
	if err != nil {
		return err
	}

	return txManager.RunInTx(ctx, func(txCtx context.Context) error {
		deptIDs := make(map[string]uint, len(departments))
		for _, name := range departments {
			dept, err := deptRepo.FindByName(txCtx, name)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				dept = &model.Department{Name: name}
				err = deptRepo.Create(txCtx, dept)
			}
			if err != nil {
				return err
			}
			deptIDs[name] = dept.ID
		}

		for _, su := range users {
			if _, err := userRepo.GetByUsername(txCtx, su.username); err == nil {
				continue
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			u := &model.User{
				Username: su.username,
				Email:    su.username + "@example.com",
				Password: hash,
				IsAdmin:  su.admin,
			}
			if su.department != "" {
				id := deptIDs[su.department]
				u.DepartmentID = &id
			}
			if su.role != "" {
				role, err := roleRepo.FindByName(txCtx, su.role)
				if err != nil {
					return err
				}
				u.ApprovalRoleID = &role.ID
			}
			if err := userRepo.Create(txCtx, u); err != nil {
				return err
			}
			zlog.Info("user created", zap.String("username", u.Username))
		}
		return nil
	})
}
