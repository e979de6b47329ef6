// Package testkit wires the real services against an in-memory database so
// cross-package tests exercise the same code paths as the server.
package testkit

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
	authrepo "github.com/smallbiznis/masstrack/internal/auth/repository"
	authservice "github.com/smallbiznis/masstrack/internal/auth/service"
	"github.com/smallbiznis/masstrack/internal/authorization"
	bulkdomain "github.com/smallbiznis/masstrack/internal/bulkintention/domain"
	bulkrepo "github.com/smallbiznis/masstrack/internal/bulkintention/repository"
	bulkservice "github.com/smallbiznis/masstrack/internal/bulkintention/service"
	celebrationdomain "github.com/smallbiznis/masstrack/internal/celebration/domain"
	celebrationrepo "github.com/smallbiznis/masstrack/internal/celebration/repository"
	celebrationservice "github.com/smallbiznis/masstrack/internal/celebration/service"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	intentionrepo "github.com/smallbiznis/masstrack/internal/intention/repository"
	intentionservice "github.com/smallbiznis/masstrack/internal/intention/service"
	"github.com/smallbiznis/masstrack/internal/migration"
	notificationdomain "github.com/smallbiznis/masstrack/internal/notification/domain"
	notificationrepo "github.com/smallbiznis/masstrack/internal/notification/repository"
	notificationservice "github.com/smallbiznis/masstrack/internal/notification/service"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
	obligationrepo "github.com/smallbiznis/masstrack/internal/obligation/repository"
	obligationservice "github.com/smallbiznis/masstrack/internal/obligation/service"
	"github.com/smallbiznis/masstrack/internal/observability/metrics"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"github.com/smallbiznis/masstrack/internal/ratelimit"
	"github.com/smallbiznis/masstrack/pkg/db"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Epoch is the fake clock's starting instant.
var Epoch = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type Harness struct {
	DB         *gorm.DB
	Clock      *clock.FakeClock
	Node       *snowflake.Node
	Config     config.Config
	Thresholds *config.ThresholdHolder
	Metrics    *metrics.Metrics
	Log        *zap.Logger

	Auth          authdomain.Service
	Authz         authorization.Service
	Intentions    intentiondomain.Service
	Bulk          bulkdomain.Service
	BulkRepo      bulkdomain.Repository
	Celebrations  celebrationdomain.Service
	Obligations   obligationdomain.Service
	Notifications notificationdomain.Service
}

// Config returns the settings the harness runs with.
func Config() config.Config {
	return config.Config{
		Environment: "test",
		Auth: config.AuthConfig{
			JWTSecret:        "test-access-secret",
			JWTRefreshSecret: "test-refresh-secret",
			AccessTokenTTL:   time.Hour,
			RefreshTokenTTL:  30 * 24 * time.Hour,
			UserCacheTTL:     time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			Enabled:          true,
			LoginMaxAttempts: 5,
			LoginWindow:      15 * time.Minute,
		},
		Masses: config.MassConfig{
			MonthlyPersonalTarget: 3,
			BulkWarningThreshold:  10,
			BulkCriticalThreshold: 5,
			NotificationRetention: 30,
		},
		Paging: config.PagingConfig{DefaultPageSize: 20, MaxPageSize: 100},
	}
}

func New(t testing.TB) *Harness {
	t.Helper()
	conn := db.NewTest(t, migration.Models()...)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	h := &Harness{
		DB:      conn,
		Clock:   clock.NewFakeClock(Epoch),
		Node:    node,
		Config:  Config(),
		Metrics: metrics.NewNoop(),
		Log:     zap.NewNop(),
	}
	h.Thresholds = config.NewStaticThresholdHolder(config.DefaultThresholds(h.Config))

	enforcer, err := authorization.NewEnforcer(conn)
	require.NoError(t, err)
	h.Authz = authorization.NewService(authorization.Params{Log: h.Log, Enforcer: enforcer})

	issuer, err := authservice.NewIssuer(h.Config, h.Clock, node)
	require.NoError(t, err)
	users, tokens := authrepo.New(conn)
	h.Auth = authservice.New(authservice.Params{
		Log:       h.Log,
		Clock:     h.Clock,
		GenID:     node,
		Config:    h.Config,
		Repo:      users,
		TokenRepo: tokens,
		Issuer:    issuer,
		Authz:     h.Authz,
		Limiter: ratelimit.NewAttemptLimiter(
			ratelimit.NewMemoryStore(h.Clock),
			"login:attempts:",
			h.Config.RateLimit.LoginMaxAttempts,
			h.Config.RateLimit.LoginWindow,
		),
		Metrics: h.Metrics,
	})

	intentionRepository := intentionrepo.Provide()
	h.Intentions = intentionservice.New(intentionservice.Params{
		DB: conn, Log: h.Log, GenID: node, Clock: h.Clock, Config: h.Config, Repo: intentionRepository,
	})
	h.BulkRepo = bulkrepo.Provide()
	h.Bulk = bulkservice.New(bulkservice.Params{
		DB: conn, Log: h.Log, GenID: node, Clock: h.Clock, Config: h.Config,
		Thresholds: h.Thresholds, Metrics: h.Metrics,
		Repo: h.BulkRepo, IntentionRepo: intentionRepository,
	})
	obligationRepository := obligationrepo.Provide()
	h.Obligations = obligationservice.New(obligationservice.Params{
		DB: conn, Log: h.Log, GenID: node, Clock: h.Clock, Config: h.Config,
		Thresholds: h.Thresholds, Repo: obligationRepository,
	})
	h.Notifications = notificationservice.New(notificationservice.Params{
		DB: conn, Log: h.Log, GenID: node, Clock: h.Clock, Config: h.Config,
		Thresholds: h.Thresholds, Metrics: h.Metrics, Repo: notificationrepo.Provide(),
	})
	h.Celebrations = celebrationservice.New(celebrationservice.Params{
		DB:             conn,
		Log:            h.Log,
		GenID:          node,
		Clock:          h.Clock,
		Config:         h.Config,
		Thresholds:     h.Thresholds,
		Metrics:        h.Metrics,
		Repo:           celebrationrepo.Provide(),
		BulkRepo:       h.BulkRepo,
		Intentions:     h.Intentions,
		Obligations:    h.Obligations,
		ObligationRepo: obligationRepository,
		Notifier:       h.Notifications,
	})
	return h
}

// Priest registers an active priest and returns a context acting as them.
func (h *Harness) Priest(t testing.TB, username string) (*authdomain.User, context.Context) {
	t.Helper()
	user, err := h.Auth.Register(context.Background(), authdomain.RegisterRequest{
		Username: username,
		Email:    username + "@parish.example",
		Password: Password,
		FullName: "Fr. " + username,
	})
	require.NoError(t, err)
	return user, AsUser(user)
}

// Password is used for every user the harness registers.
const Password = "correct-horse"

func AsUser(user *authdomain.User) context.Context {
	ctx := priestcontext.WithPriestID(context.Background(), user.ID)
	return priestcontext.WithRole(ctx, string(user.Role))
}

// Intention creates an active intention assigned to the caller in ctx.
func (h *Harness) Intention(t testing.TB, ctx context.Context, typ intentiondomain.IntentionType, title string) *intentiondomain.MassIntention {
	t.Helper()
	in, err := h.Intentions.Create(ctx, intentiondomain.CreateRequest{
		IntentionType: typ,
		Title:         title,
		Source:        intentiondomain.SourceProvince,
	})
	require.NoError(t, err)
	return in
}

// BulkBatch creates a bulk intention with total masses to celebrate.
func (h *Harness) BulkBatch(t testing.TB, ctx context.Context, title string, total int) *bulkdomain.BulkIntention {
	t.Helper()
	in := h.Intention(t, ctx, intentiondomain.TypeBulk, title)
	bulk, err := h.Bulk.Create(ctx, bulkdomain.CreateRequest{IntentionID: in.ID, TotalCount: total})
	require.NoError(t, err)
	return bulk
}

// Admin creates the administrator account.
func (h *Harness) Admin(t testing.TB) (*authdomain.User, context.Context) {
	t.Helper()
	user, _, err := h.Auth.EnsureAdmin(context.Background(), authdomain.RegisterRequest{
		Username: "admin",
		Email:    "admin@parish.example",
		Password: Password,
		FullName: "Administrator",
	})
	require.NoError(t, err)
	require.NotNil(t, user)
	return user, AsUser(user)
}
