package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/masstrack/internal/auth/domain"
	"github.com/smallbiznis/masstrack/internal/auth/password"
	"github.com/smallbiznis/masstrack/internal/auth/token"
	"github.com/smallbiznis/masstrack/internal/authorization"
	"github.com/smallbiznis/masstrack/internal/cache"
	"github.com/smallbiznis/masstrack/internal/clock"
	"github.com/smallbiznis/masstrack/internal/config"
	"github.com/smallbiznis/masstrack/internal/observability/metrics"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"github.com/smallbiznis/masstrack/internal/ratelimit"
	"github.com/smallbiznis/masstrack/internal/validation"
	"github.com/smallbiznis/masstrack/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const (
	minUsernameLength = 3
	userCacheSize     = 4096
	tokenType         = "Bearer"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	GenID     *snowflake.Node
	Config    config.Config
	Repo      domain.Repository
	TokenRepo domain.RefreshTokenRepository
	Issuer    *token.Issuer
	Authz     authorization.Service
	Limiter   *ratelimit.AttemptLimiter `optional:"true"`
	Metrics   *metrics.Metrics          `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	genID     *snowflake.Node
	paging    config.PagingConfig
	repo      domain.Repository
	tokenRepo domain.RefreshTokenRepository
	issuer    *token.Issuer
	authz     authorization.Service
	limiter   *ratelimit.AttemptLimiter
	metrics   *metrics.Metrics
	users     cache.Cache[snowflake.ID, domain.User]
}

func New(p Params) domain.Service {
	ttl := p.Config.Auth.UserCacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Service{
		log:       p.Log.Named("auth.service"),
		clock:     p.Clock,
		genID:     p.GenID,
		paging:    p.Config.Paging,
		repo:      p.Repo,
		tokenRepo: p.TokenRepo,
		issuer:    p.Issuer,
		authz:     p.Authz,
		limiter:   p.Limiter,
		metrics:   p.Metrics,
		users:     cache.NewTTLCache[snowflake.ID, domain.User](userCacheSize, ttl),
	}
}

// NewIssuer builds the token issuer from auth config.
func NewIssuer(cfg config.Config, c clock.Clock, genID *snowflake.Node) (*token.Issuer, error) {
	return token.NewIssuer(token.Config{
		AccessSecret:  cfg.Auth.JWTSecret,
		RefreshSecret: cfg.Auth.JWTRefreshSecret,
		AccessTTL:     cfg.Auth.AccessTokenTTL,
		RefreshTTL:    cfg.Auth.RefreshTokenTTL,
	}, c, genID)
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	user, err := s.newUser(req, domain.RolePriest)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.Exists(ctx, user.Username, user.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrUserExists
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
	)
	return user, nil
}

func (s *Service) EnsureAdmin(ctx context.Context, req domain.RegisterRequest) (*domain.User, bool, error) {
	user, err := s.newUser(req, domain.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	exists, err := s.repo.Exists(ctx, user.Username, user.Email)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, false, nil
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))
	if identifier == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	key := cache.Key(req.IPAddress, identifier)
	status, err := s.limiter.Allowed(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("login limiter: %w", err)
	}
	if !status.Allowed {
		s.metrics.RecordLoginDenied(ctx, "rate_limited")
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.repo.FindByIdentifier(ctx, identifier)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, s.loginFailed(ctx, key)
	case err != nil:
		return nil, err
	}
	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, s.loginFailed(ctx, key)
	}
	if !user.IsActive {
		s.metrics.RecordLoginDenied(ctx, "inactive")
		return nil, domain.ErrUserInactive
	}

	if err := s.limiter.Reset(ctx, key); err != nil {
		s.log.Warn("reset login attempts failed", zap.Error(err))
	}
	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{"last_login": now}); err != nil {
		return nil, err
	}
	user.LastLogin = &now

	pair, err := s.issuePair(ctx, user, req.UserAgent, req.IPAddress, nil)
	if err != nil {
		return nil, err
	}
	s.log.Info("user logged in", zap.String("user_id", user.ID.String()))
	return &domain.LoginResult{User: user, Tokens: *pair}, nil
}

func (s *Service) loginFailed(ctx context.Context, key string) error {
	s.metrics.RecordLoginDenied(ctx, "invalid_credentials")
	if _, err := s.limiter.RecordFailure(ctx, key); err != nil {
		s.log.Warn("record login failure failed", zap.Error(err))
	}
	return domain.ErrInvalidCredentials
}

// Refresh rotates a refresh token. Each token can be exchanged once.
func (s *Service) Refresh(ctx context.Context, req domain.RefreshRequest) (*domain.TokenPair, error) {
	stored, user, err := s.verifyRefresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	return s.issuePair(ctx, user, req.UserAgent, req.IPAddress, &stored.ID)
}

func (s *Service) Logout(ctx context.Context, rawRefreshToken string) error {
	claims, err := s.issuer.ParseRefresh(rawRefreshToken)
	if err != nil {
		return domain.ErrInvalidToken
	}
	stored, err := s.tokenRepo.FindRefreshTokenByHash(ctx, hashToken(rawRefreshToken))
	if err != nil {
		return err
	}
	if stored.ID.String() != claims.ID {
		return domain.ErrInvalidToken
	}
	return s.tokenRepo.RevokeRefreshToken(ctx, stored.ID, s.clock.Now())
}

func (s *Service) Authenticate(ctx context.Context, rawAccessToken string) (*domain.Principal, error) {
	claims, err := s.issuer.ParseAccess(rawAccessToken)
	switch {
	case errors.Is(err, token.ErrExpired):
		return nil, domain.ErrTokenExpired
	case err != nil:
		return nil, domain.ErrInvalidToken
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	user, err := s.cachedUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	return &domain.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if !password.Verify(current, user.PasswordHash) {
		return domain.ErrInvalidCurrentPassword
	}
	if !password.Acceptable(next) {
		return domain.ErrInvalidPassword
	}
	hashed, err := password.Hash(next)
	if err != nil {
		return err
	}
	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, user.ID, map[string]any{
		"password_hash": hashed,
		"updated_at":    now,
	}); err != nil {
		return err
	}
	s.users.Delete(user.ID)
	return s.tokenRepo.RevokeUserRefreshTokens(ctx, user.ID, now)
}

func (s *Service) CurrentUser(ctx context.Context) (*domain.User, error) {
	userID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, userID)
}

func (s *Service) GetUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	if err := s.authorizeSelfOr(ctx, id, authorization.ActionUserViewAny); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id snowflake.ID, req domain.ProfileUpdate) (*domain.User, error) {
	if err := s.authorizeSelfOr(ctx, id, authorization.ActionUserUpdateAny); err != nil {
		return nil, err
	}
	if err := validation.Struct(req); err != nil {
		return nil, profileError(err)
	}

	fields := map[string]any{}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, domain.ErrInvalidFullName
		}
		fields["full_name"] = name
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			return nil, domain.ErrInvalidEmail
		}
		taken, err := s.repo.EmailTaken(ctx, email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, domain.ErrUserExists
		}
		fields["email"] = email
	}
	if req.OrdinationDate != nil {
		fields["ordination_date"] = clock.DateOf(*req.OrdinationDate)
	}
	setOptional(fields, "current_assignment", req.CurrentAssignment)
	setOptional(fields, "diocese", req.Diocese)
	setOptional(fields, "province", req.Province)
	setOptional(fields, "phone", req.Phone)
	setOptional(fields, "address", req.Address)
	setOptional(fields, "profile_image_url", req.ProfileImageURL)
	if req.Preferences != nil {
		fields["preferences"] = datatypes.JSONMap(req.Preferences)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNoUpdateData
	}
	fields["updated_at"] = s.clock.Now()

	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		return nil, err
	}
	s.users.Delete(id)
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	if err := s.authorizeAdmin(ctx, authorization.ActionUserList); err != nil {
		return nil, err
	}
	return s.list(ctx, req.IsActive, "", req.Page)
}

func (s *Service) SearchUsers(ctx context.Context, req domain.SearchRequest) (*domain.ListResponse, error) {
	if err := s.authorizeAdmin(ctx, authorization.ActionUserList); err != nil {
		return nil, err
	}
	query := strings.TrimSpace(req.Query)
	if len(query) < 2 {
		return nil, domain.ErrInvalidQuery
	}
	return s.list(ctx, nil, query, req.Page)
}

func (s *Service) DeactivateUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	if err := s.authorizeAdmin(ctx, authorization.ActionUserDeactivate); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, id, map[string]any{
		"is_active":  false,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}
	s.users.Delete(id)
	if err := s.tokenRepo.RevokeUserRefreshTokens(ctx, id, now); err != nil {
		return nil, err
	}
	s.log.Info("user deactivated", zap.String("user_id", id.String()))
	return s.repo.FindByID(ctx, id)
}

func (s *Service) list(ctx context.Context, isActive *bool, query string, page pagination.Pagination) (*domain.ListResponse, error) {
	page = page.Normalize(s.paging.DefaultPageSize, s.paging.MaxPageSize)
	users, total, err := s.repo.List(ctx, isActive, query, page)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return &domain.ListResponse{Items: users, PageInfo: pagination.BuildPageInfo(page, total)}, nil
}

func (s *Service) newUser(req domain.RegisterRequest, role domain.Role) (*domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if len(username) < minUsernameLength {
		return nil, domain.ErrInvalidUsername
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if !password.Acceptable(req.Password) {
		return nil, domain.ErrInvalidPassword
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, domain.ErrInvalidFullName
	}
	if err := validation.Struct(req); err != nil {
		return nil, profileError(err)
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	user := &domain.User{
		ID:                s.genID.Generate(),
		UUID:              uuid.NewString(),
		Username:          username,
		Email:             email,
		PasswordHash:      hashed,
		FullName:          fullName,
		CurrentAssignment: trimmedPtr(req.CurrentAssignment),
		Diocese:           trimmedPtr(req.Diocese),
		Province:          trimmedPtr(req.Province),
		Phone:             trimmedPtr(req.Phone),
		Address:           trimmedPtr(req.Address),
		Role:              role,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.OrdinationDate != nil {
		d := clock.DateOf(*req.OrdinationDate)
		user.OrdinationDate = &d
	}
	if req.Preferences != nil {
		user.Preferences = datatypes.JSONMap(req.Preferences)
	}
	return user, nil
}

func (s *Service) issuePair(ctx context.Context, user *domain.User, userAgent, ip string, replaces *snowflake.ID) (*domain.TokenPair, error) {
	access, err := s.issuer.IssueAccess(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefresh(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	row := &domain.RefreshToken{
		ID:        refresh.ID,
		UserID:    user.ID,
		TokenHash: hashToken(refresh.Token),
		UserAgent: strings.TrimSpace(userAgent),
		IPAddress: strings.TrimSpace(ip),
		ExpiresAt: refresh.ExpiresAt,
		CreatedAt: s.clock.Now(),
	}
	if replaces != nil {
		err = s.tokenRepo.RotateRefreshToken(ctx, *replaces, row, s.clock.Now())
	} else {
		err = s.tokenRepo.CreateRefreshToken(ctx, row)
	}
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		TokenType:        tokenType,
		ExpiresIn:        int64(s.issuer.AccessTTL().Seconds()),
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

func (s *Service) verifyRefresh(ctx context.Context, raw string) (*domain.RefreshToken, *domain.User, error) {
	claims, err := s.issuer.ParseRefresh(raw)
	switch {
	case errors.Is(err, token.ErrExpired):
		return nil, nil, domain.ErrTokenExpired
	case err != nil:
		return nil, nil, domain.ErrInvalidToken
	}
	stored, err := s.tokenRepo.FindRefreshTokenByHash(ctx, hashToken(raw))
	if err != nil {
		return nil, nil, err
	}
	if stored.ID.String() != claims.ID {
		return nil, nil, domain.ErrInvalidToken
	}
	if stored.RevokedAt != nil {
		return nil, nil, domain.ErrTokenRevoked
	}
	if !s.clock.Now().Before(stored.ExpiresAt) {
		return nil, nil, domain.ErrTokenExpired
	}
	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsActive {
		return nil, nil, domain.ErrUserInactive
	}
	return stored, user, nil
}

func (s *Service) cachedUser(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	if user, ok := s.users.Get(id); ok {
		return &user, nil
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.users.Set(id, *user)
	return user, nil
}

func (s *Service) authorizeSelfOr(ctx context.Context, target snowflake.ID, action string) error {
	userID, err := priestcontext.Require(ctx)
	if err != nil {
		return err
	}
	if userID == target {
		return nil
	}
	return s.authorizeAdmin(ctx, action)
}

func (s *Service) authorizeAdmin(ctx context.Context, action string) error {
	userID, err := priestcontext.Require(ctx)
	if err != nil {
		return err
	}
	role := priestcontext.RoleFromContext(ctx)
	if err := s.authz.Authorize(ctx, userID, role, authorization.ObjectUser, action); err != nil {
		if errors.Is(err, authorization.ErrForbidden) || errors.Is(err, authorization.ErrInvalidActor) {
			return domain.ErrForbidden
		}
		return err
	}
	return nil
}

func profileError(err error) error {
	fields := validation.FieldErrors(err)
	switch {
	case fields["preferences"] != "":
		return domain.ErrInvalidPreferences
	case fields["email"] != "":
		return domain.ErrInvalidEmail
	case fields["username"] != "":
		return domain.ErrInvalidUsername
	case fields["password"] != "":
		return domain.ErrInvalidPassword
	case fields["full_name"] != "":
		return domain.ErrInvalidFullName
	default:
		return domain.ErrInvalidProfile
	}
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

func setOptional(fields map[string]any, column string, value *string) {
	if value == nil {
		return
	}
	if trimmed := strings.TrimSpace(*value); trimmed != "" {
		fields[column] = trimmed
		return
	}
	fields[column] = nil
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
