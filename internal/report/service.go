package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	authdomain "github.com/smallbiznis/masstrack/internal/auth/domain"
	"github.com/smallbiznis/masstrack/internal/authorization"
	celebrationdomain "github.com/smallbiznis/masstrack/internal/celebration/domain"
	"github.com/smallbiznis/masstrack/internal/clock"
	obligationdomain "github.com/smallbiznis/masstrack/internal/obligation/domain"
	"github.com/smallbiznis/masstrack/internal/priestcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const ContentTypePDF = "application/pdf"

var (
	ErrInvalidYear  = errors.New("invalid_year")
	ErrInvalidMonth = errors.New("invalid_month")
	ErrForbidden    = errors.New("report_forbidden")
)

type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

type Service interface {
	MonthlyRegister(ctx context.Context, year, month int) (*Document, error)
}

type Params struct {
	fx.In

	Log          *zap.Logger
	Clock        clock.Clock
	Users        authdomain.Service
	Authz        authorization.Service
	Celebrations celebrationdomain.Service
	Obligations  obligationdomain.Service
	Renderer     Renderer
}

type service struct {
	log          *zap.Logger
	clock        clock.Clock
	users        authdomain.Service
	authz        authorization.Service
	celebrations celebrationdomain.Service
	obligations  obligationdomain.Service
	renderer     Renderer
}

func NewService(p Params) Service {
	return &service{
		log:          p.Log.Named("report.service"),
		clock:        p.Clock,
		users:        p.Users,
		authz:        p.Authz,
		celebrations: p.Celebrations,
		obligations:  p.Obligations,
		renderer:     p.Renderer,
	}
}

func (s *service) MonthlyRegister(ctx context.Context, year, month int) (*Document, error) {
	if year < 1900 || year > 9999 {
		return nil, ErrInvalidYear
	}
	if month < 1 || month > 12 {
		return nil, ErrInvalidMonth
	}
	userID, err := priestcontext.Require(ctx)
	if err != nil {
		return nil, err
	}
	role := priestcontext.RoleFromContext(ctx)
	if err := s.authz.Authorize(ctx, userID, role, authorization.ObjectReport, authorization.ActionReportExport); err != nil {
		if errors.Is(err, authorization.ErrForbidden) || errors.Is(err, authorization.ErrInvalidActor) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	user, err := s.users.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)
	rows, err := s.celebrations.Between(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load celebrations: %w", err)
	}
	summary, err := s.celebrations.MonthlySummary(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("monthly summary: %w", err)
	}

	reg := Register{
		PriestName:     user.FullName,
		Period:         fmt.Sprintf("%s %d", start.Month(), year),
		Generated:      s.clock.Now().UTC().Format("2006-01-02 15:04 MST"),
		Entries:        make([]RegisterEntry, 0, len(rows)),
		TotalMasses:    summary.TotalMasses,
		BulkMasses:     summary.BulkMasses,
		PersonalMasses: summary.PersonalMasses,
		Obligation:     "not tracked",
	}
	if user.CurrentAssignment != nil {
		reg.Assignment = *user.CurrentAssignment
	}
	for _, c := range rows {
		reg.Entries = append(reg.Entries, entryOf(c))
	}

	obligation, err := s.obligations.Get(ctx, year, month)
	switch {
	case errors.Is(err, obligationdomain.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("load obligation: %w", err)
	default:
		reg.Obligation = fmt.Sprintf("%d / %d", obligation.CompletedCount, obligation.TargetCount)
	}

	body, err := s.renderer.Render(ctx, reg)
	if err != nil {
		return nil, err
	}
	s.log.Info("monthly register generated",
		zap.String("priest_id", userID.String()),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.Int("entries", len(reg.Entries)),
	)
	return &Document{
		Filename:    fmt.Sprintf("mass-register-%04d-%02d.pdf", year, month),
		ContentType: ContentTypePDF,
		Body:        body,
	}, nil
}

func entryOf(c celebrationdomain.View) RegisterEntry {
	e := RegisterEntry{
		Date:      c.CelebrationDate.Format(time.DateOnly),
		Kind:      c.CelebrationType,
		Intention: "General mass",
	}
	if c.MassTime != nil {
		e.Time = *c.MassTime
	}
	if c.Location != nil {
		e.Location = *c.Location
	}
	if c.IntentionTitle != nil {
		e.Intention = *c.IntentionTitle
	}
	if c.SerialNumber != nil {
		e.Serial = "#" + strconv.Itoa(*c.SerialNumber)
	}
	return e
}
