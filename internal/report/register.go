package report

import (
	"context"
	"fmt"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// Register is the printable content of a monthly mass register.
type Register struct {
	PriestName string
	Assignment string
	Period     string
	Generated  string

	Entries []RegisterEntry

	TotalMasses    int
	BulkMasses     int
	PersonalMasses int
	Obligation     string
}

type RegisterEntry struct {
	Date      string
	Time      string
	Intention string
	Kind      string
	Serial    string
	Location  string
}

// Renderer turns a register into a document body.
type Renderer interface {
	Render(ctx context.Context, reg Register) ([]byte, error)
}

type pdfRenderer struct{}

func NewPDFRenderer() Renderer {
	return &pdfRenderer{}
}

func (r *pdfRenderer) Render(_ context.Context, reg Register) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Mass Register", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(18,
		col.New(8).Add(
			text.New(reg.PriestName, props.Text{Style: fontstyle.Bold}),
			text.New(reg.Assignment, props.Text{Top: 5, Size: 9}),
		),
		col.New(4).Add(
			text.New(reg.Period, props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New("Generated "+reg.Generated, props.Text{Top: 5, Size: 8, Align: align.Right}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	m.AddRow(8,
		text.NewCol(2, "Date", header),
		text.NewCol(1, "Time", header),
		text.NewCol(4, "Intention", header),
		text.NewCol(2, "Type", header),
		text.NewCol(1, "Serial", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Location", header),
	)
	m.AddRow(2, line.NewCol(12))

	cell := props.Text{Size: 8}
	if len(reg.Entries) == 0 {
		m.AddRow(8, text.NewCol(12, "No masses recorded for this month.", props.Text{Size: 9, Style: fontstyle.Italic}))
	}
	for _, e := range reg.Entries {
		m.AddRow(7,
			text.NewCol(2, e.Date, cell),
			text.NewCol(1, e.Time, cell),
			text.NewCol(4, e.Intention, cell),
			text.NewCol(2, e.Kind, cell),
			text.NewCol(1, e.Serial, props.Text{Size: 8, Align: align.Right}),
			text.NewCol(2, e.Location, cell),
		)
	}

	m.AddRow(2, line.NewCol(12))
	summary := []struct {
		label string
		value string
	}{
		{"Total masses", strconv.Itoa(reg.TotalMasses)},
		{"Bulk intention masses", strconv.Itoa(reg.BulkMasses)},
		{"Personal masses", strconv.Itoa(reg.PersonalMasses)},
		{"Monthly obligation", reg.Obligation},
	}
	for _, s := range summary {
		m.AddRow(7,
			col.New(7),
			text.NewCol(3, s.label, props.Text{Size: 9}),
			text.NewCol(2, s.value, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate register pdf: %w", err)
	}
	return doc.GetBytes(), nil
}
