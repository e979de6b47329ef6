package report_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	celebrationdomain "github.com/smallbiznis/masstrack/internal/celebration/domain"
	intentiondomain "github.com/smallbiznis/masstrack/internal/intention/domain"
	"github.com/smallbiznis/masstrack/internal/report"
	"github.com/smallbiznis/masstrack/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRenderer struct {
	got report.Register
}

func (r *captureRenderer) Render(_ context.Context, reg report.Register) ([]byte, error) {
	r.got = reg
	return []byte("%PDF-capture"), nil
}

func newReport(h *testkit.Harness, renderer report.Renderer) report.Service {
	return report.NewService(report.Params{
		Log:          h.Log,
		Clock:        h.Clock,
		Users:        h.Auth,
		Authz:        h.Authz,
		Celebrations: h.Celebrations,
		Obligations:  h.Obligations,
		Renderer:     renderer,
	})
}

func TestMonthlyRegisterCollectsEntries(t *testing.T) {
	h := testkit.New(t)
	_, ctx := h.Priest(t, "gerard")
	capture := &captureRenderer{}
	svc := newReport(h, capture)

	batch := h.BulkBatch(t, ctx, "Parish batch", 10)
	personal := h.Intention(t, ctx, intentiondomain.TypePersonal, "For my family")
	first := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	second := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	location := "Cathedral"
	_, err := h.Celebrations.Create(ctx, celebrationdomain.CreateRequest{
		CelebrationDate: &first,
		BulkIntentionID: &batch.ID,
		Details:         celebrationdomain.Details{Location: &location},
	})
	require.NoError(t, err)
	_, err = h.Celebrations.Create(ctx, celebrationdomain.CreateRequest{CelebrationDate: &second, IntentionID: &personal.ID})
	require.NoError(t, err)

	doc, err := svc.MonthlyRegister(ctx, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "mass-register-2024-03.pdf", doc.Filename)
	assert.Equal(t, report.ContentTypePDF, doc.ContentType)

	reg := capture.got
	assert.Equal(t, "Fr. gerard", reg.PriestName)
	assert.Equal(t, "March 2024", reg.Period)
	require.Len(t, reg.Entries, 2)
	assert.Equal(t, "2024-03-02", reg.Entries[0].Date)
	assert.Equal(t, "#10", reg.Entries[0].Serial)
	assert.Equal(t, "Cathedral", reg.Entries[0].Location)
	assert.Equal(t, "For my family", reg.Entries[1].Intention)
	assert.Equal(t, 2, reg.TotalMasses)
	assert.Equal(t, 1, reg.BulkMasses)
	assert.Equal(t, 1, reg.PersonalMasses)
	assert.Equal(t, "1 / 3", reg.Obligation)
}

func TestMonthlyRegisterRendersPDF(t *testing.T) {
	h := testkit.New(t)
	_, ctx := h.Priest(t, "hugh")
	svc := newReport(h, report.NewPDFRenderer())

	doc, err := svc.MonthlyRegister(ctx, 2024, 2)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Body, []byte("%PDF")))
}

func TestMonthlyRegisterValidatesPeriod(t *testing.T) {
	h := testkit.New(t)
	_, ctx := h.Priest(t, "isidore")
	svc := newReport(h, &captureRenderer{})

	_, err := svc.MonthlyRegister(ctx, 2024, 0)
	assert.ErrorIs(t, err, report.ErrInvalidMonth)
	_, err = svc.MonthlyRegister(ctx, 10000, 1)
	assert.ErrorIs(t, err, report.ErrInvalidYear)
	_, err = svc.MonthlyRegister(context.Background(), 2024, 1)
	assert.Error(t, err)
}
