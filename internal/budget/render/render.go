// Package render turns a budget into a downloadable PDF.
package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"
	budgetdomain "github.com/smallbiznis/quoteflow/internal/budget/domain"
	clientdomain "github.com/smallbiznis/quoteflow/internal/client/domain"
	profiledomain "github.com/smallbiznis/quoteflow/internal/profile/domain"
	"github.com/smallbiznis/quoteflow/internal/userctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const ContentType = "application/pdf"

// Document is a rendered file ready to stream.
type Document struct {
	Filename string
	Content  []byte
}

type Params struct {
	fx.In

	Log        *zap.Logger
	BudgetSvc  budgetdomain.Service
	ClientSvc  clientdomain.Service
	ProfileSvc profiledomain.Service
}

type Renderer struct {
	log        *zap.Logger
	budgetSvc  budgetdomain.Service
	clientSvc  clientdomain.Service
	profileSvc profiledomain.Service
}

func New(p Params) *Renderer {
	return &Renderer{
		log:        p.Log.Named("budget.render"),
		budgetSvc:  p.BudgetSvc,
		clientSvc:  p.ClientSvc,
		profileSvc: p.ProfileSvc,
	}
}

// Render loads the caller's budget with its client and company profile and lays it out.
func (r *Renderer) Render(ctx context.Context, budgetID string) (*Document, error) {
	budget, err := r.budgetSvc.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	var profile *profiledomain.Profile
	if userID, ok := userctx.UserIDFromContext(ctx); ok {
		profile, err = r.profileSvc.GetForUser(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	client, err := r.clientSvc.Get(ctx, budget.ClientID.String())
	if err != nil {
		return nil, err
	}

	content, err := Build(budget, &client, profile)
	if err != nil {
		r.log.Error("render budget pdf", zap.String("budget_id", budget.ID.String()), zap.Error(err))
		return nil, err
	}
	return &Document{Filename: Filename(budget), Content: content}, nil
}

// Filename is the slugged title followed by the first block of the public id.
func Filename(budget *budgetdomain.Budget) string {
	base := slug.Make(budget.Title)
	if base == "" {
		base = "budget"
	}
	prefix, _, _ := strings.Cut(budget.PublicID, "-")
	if prefix == "" {
		return base + ".pdf"
	}
	return fmt.Sprintf("%s-%s.pdf", base, prefix)
}

// Build lays out the document. profile may be nil.
func Build(budget *budgetdomain.Budget, client *clientdomain.Client, profile *profiledomain.Profile) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	m := maroto.New(cfg)

	company := "Budget"
	var companyLines []string
	if profile != nil {
		company = profile.CompanyName
		companyLines = profileLines(profile)
	}

	m.AddRow(12,
		text.NewCol(8, company, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, strings.ToUpper(string(budget.Status)), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)
	if len(companyLines) > 0 {
		m.AddRow(float64(5*len(companyLines)), stackedCol(12, companyLines, props.Text{Size: 9}))
	}

	m.AddRow(14, text.NewCol(12, budget.Title, props.Text{Size: 14, Style: fontstyle.Bold, Top: 4}))

	meta := []string{"Issued: " + budget.CreatedAt.Format(time.DateOnly)}
	if budget.ValidUntil != nil {
		meta = append(meta, "Valid until: "+budget.ValidUntil.Format(time.DateOnly))
	}
	meta = append(meta, "Reference: "+budget.PublicID)

	clientLines := []string{client.Name, client.Email}
	if client.Whatsapp != nil {
		clientLines = append(clientLines, "WhatsApp: "+*client.Whatsapp)
	}
	m.AddRow(float64(5*(len(clientLines)+1)),
		stackedCol(6, append([]string{"Prepared for"}, clientLines...), props.Text{Size: 9}),
		stackedCol(6, meta, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(8, line.NewCol(12))

	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(8,
		text.NewCol(5, "Description", header),
		text.NewCol(1, "Unit", header),
		text.NewCol(2, "Qty", headerRight),
		text.NewCol(2, "Unit price", headerRight),
		text.NewCol(2, "Amount", headerRight),
	)

	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}
	for _, item := range budget.Items {
		label := item.Name
		if item.Description != nil {
			label = label + " - " + *item.Description
		}
		m.AddRow(8,
			text.NewCol(5, label, cell),
			text.NewCol(1, string(item.Unit), cell),
			text.NewCol(2, item.Quantity.String(), cellRight),
			text.NewCol(2, money(budget.Currency, item.UnitPrice), cellRight),
			text.NewCol(2, money(budget.Currency, item.LineTotal), cellRight),
		)
	}

	m.AddRow(4, line.NewCol(12))
	m.AddRow(7, col.New(8), text.NewCol(2, "Subtotal", cell), text.NewCol(2, money(budget.Currency, budget.Subtotal), cellRight))
	if !budget.DiscountAmount.IsZero() {
		m.AddRow(7, col.New(8), text.NewCol(2, "Discount", cell), text.NewCol(2, "-"+money(budget.Currency, budget.DiscountAmount), cellRight))
	}
	m.AddRow(8, col.New(8), text.NewCol(2, "Total", header), text.NewCol(2, money(budget.Currency, budget.Total), headerRight))

	if budget.Notes != nil {
		m.AddRow(20, text.NewCol(12, *budget.Notes, props.Text{Size: 9, Top: 6}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func stackedCol(size int, lines []string, base props.Text) core.Col {
	c := col.New(size)
	for i, l := range lines {
		p := base
		p.Top = float64(5 * i)
		c.Add(text.New(l, p))
	}
	return c
}

func profileLines(p *profiledomain.Profile) []string {
	var lines []string
	if p.DocumentNumber != "" {
		lines = append(lines, strings.ToUpper(p.DocumentType)+": "+p.DocumentNumber)
	}
	address := strings.TrimSpace(strings.Join(nonEmpty(p.AddressLine1, p.AddressLine2), ", "))
	if address != "" {
		lines = append(lines, address)
	}
	if place := strings.Join(nonEmpty(p.City, p.State, p.PostalCode, p.Country), " "); place != "" {
		lines = append(lines, place)
	}
	if contact := strings.Join(nonEmpty(p.Whatsapp, p.Phone, p.Website), " | "); contact != "" {
		lines = append(lines, contact)
	}
	return lines
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func money(currency string, amount decimal.Decimal) string {
	return currency + " " + amount.StringFixed(2)
}
