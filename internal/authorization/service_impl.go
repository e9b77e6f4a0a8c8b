package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/quoteflow/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectClient   = "client"
	ObjectProfile  = "profile"
	ObjectBudget   = "budget"
	ObjectAuditLog = "audit_log"
)

const (
	ActionClientView   = "client.view"
	ActionClientCreate = "client.create"
	ActionClientUpdate = "client.update"
	ActionClientDelete = "client.delete"

	ActionProfileView   = "profile.view"
	ActionProfileUpdate = "profile.update"
	ActionProfileDelete = "profile.delete"

	ActionBudgetView   = "budget.view"
	ActionBudgetCreate = "budget.create"
	ActionBudgetUpdate = "budget.update"
	ActionBudgetDelete = "budget.delete"
	ActionBudgetExport = "budget.export"

	ActionAuditLogView = "audit_log.view"
)

const (
	RoleUser     = "role:user"
	RoleInactive = "role:inactive"
)

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID snowflake.ID, object string, action string) error {
	if userID == 0 {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	roleName, err := s.roleForUser(ctx, userID)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("user:%s", userID.String())
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("user_id", userID.String()),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDenied(ctx, userID, object, action)
		return ErrForbidden
	}
	return nil
}

// roleForUser maps account state to a role. Unknown users are rejected as invalid actors.
func (s *ServiceImpl) roleForUser(ctx context.Context, userID snowflake.ID) (string, error) {
	var row struct {
		ID       int64 `gorm:"column:id"`
		IsActive bool  `gorm:"column:is_active"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT id, is_active
		 FROM users
		 WHERE id = ?
		 LIMIT 1`,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}
	if row.ID == 0 {
		return "", ErrInvalidActor
	}
	if !row.IsActive {
		return RoleInactive, nil
	}
	return RoleUser, nil
}

// ensureGrouping keeps exactly one role assignment per subject.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, userID snowflake.ID, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	actorID := userID.String()
	_ = s.auditSvc.AuditLog(ctx, userID, auditdomain.ActorTypeUser, &actorID, "authorization.denied", "authorization", nil, map[string]any{
		"object": object,
		"action": action,
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{RoleUser, ObjectClient, ActionClientView},
		{RoleUser, ObjectClient, ActionClientCreate},
		{RoleUser, ObjectClient, ActionClientUpdate},
		{RoleUser, ObjectClient, ActionClientDelete},

		{RoleUser, ObjectProfile, ActionProfileView},
		{RoleUser, ObjectProfile, ActionProfileUpdate},
		{RoleUser, ObjectProfile, ActionProfileDelete},

		{RoleUser, ObjectBudget, ActionBudgetView},
		{RoleUser, ObjectBudget, ActionBudgetCreate},
		{RoleUser, ObjectBudget, ActionBudgetUpdate},
		{RoleUser, ObjectBudget, ActionBudgetDelete},
		{RoleUser, ObjectBudget, ActionBudgetExport},

		{RoleUser, ObjectAuditLog, ActionAuditLogView},

		// Deactivated accounts keep read access to their own history only.
		{RoleInactive, ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
