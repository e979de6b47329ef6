package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	RolePriest = "priest"
	RoleAdmin  = "admin"
)

const (
	ObjectUser   = "user"
	ObjectReport = "report"
)

const (
	ActionUserList       = "user.list"
	ActionUserDeactivate = "user.deactivate"
	ActionUserViewAny    = "user.view_any"
	ActionUserUpdateAny  = "user.update_any"
	ActionReportExport   = "report.export"
)

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)

type Service interface {
	Authorize(ctx context.Context, userID snowflake.ID, role, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and seeds the
// built-in role grants.
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
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, userID snowflake.ID, role, object, action string) error {
	role = strings.ToLower(strings.TrimSpace(role))
	object, action = strings.TrimSpace(object), strings.TrimSpace(action)
	switch {
	case userID == 0, role == "":
		return ErrInvalidActor
	case object == "":
		return ErrInvalidObject
	case action == "":
		return ErrInvalidAction
	}

	subject := "user:" + userID.String()
	if err := s.syncRole(subject, "role:"+role); err != nil {
		return fmt.Errorf("sync role for %s: %w", subject, err)
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// syncRole makes roleName the only role linked to subject, so a role change
// on the user record takes effect on the next request.
func (s *ServiceImpl) syncRole(subject, roleName string) error {
	roles, err := s.enforcer.GetRolesForUser(subject)
	if err != nil {
		return err
	}
	if len(roles) == 1 && roles[0] == roleName {
		return nil
	}
	if len(roles) > 0 {
		if _, err := s.enforcer.DeleteRolesForUser(subject); err != nil {
			return err
		}
	}
	_, err = s.enforcer.AddRoleForUser(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{"role:priest", ObjectReport, ActionReportExport},

		{"role:admin", ObjectReport, ActionReportExport},
		{"role:admin", ObjectUser, ActionUserList},
		{"role:admin", ObjectUser, ActionUserDeactivate},
		{"role:admin", ObjectUser, ActionUserViewAny},
		{"role:admin", ObjectUser, ActionUserUpdateAny},
	}
	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
