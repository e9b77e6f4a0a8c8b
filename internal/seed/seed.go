package seed

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/quoteflow/internal/auth/domain"
	budgetdomain "github.com/smallbiznis/quoteflow/internal/budget/domain"
	clientdomain "github.com/smallbiznis/quoteflow/internal/client/domain"
	"github.com/smallbiznis/quoteflow/internal/config"
	"github.com/smallbiznis/quoteflow/internal/userctx"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	DemoEmail    = "demo@quoteflow.local"
	DemoPassword = "demo-password"
	demoName     = "Demo Account"
)

var Module = fx.Module("seed",
	fx.Invoke(Run),
)

type Params struct {
	fx.In

	Cfg       config.Config
	Log       *zap.Logger
	Users     authdomain.Repository
	AuthSvc   authdomain.Service
	ClientSvc clientdomain.Service
	BudgetSvc budgetdomain.Service
}

// Run seeds the demo account when SEED_DEMO is set outside production.
func Run(p Params) error {
	if !p.Cfg.SeedDemo || p.Cfg.IsProduction() {
		return nil
	}
	created, err := EnsureDemoAccount(context.Background(), p)
	if err != nil {
		return err
	}
	if created {
		p.Log.Named("seed").Info("demo account created", zap.String("email", DemoEmail))
	}
	return nil
}

// EnsureDemoAccount creates a demo user with one client and one draft budget.
// It is a no-op once the demo user exists.
func EnsureDemoAccount(ctx context.Context, p Params) (bool, error) {
	_, err := p.Users.FindByEmail(ctx, DemoEmail)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, authdomain.ErrUserNotFound):
		return false, err
	}

	user, err := p.AuthSvc.Register(ctx, authdomain.RegisterRequest{
		Name:     demoName,
		Email:    DemoEmail,
		Password: DemoPassword,
	})
	if err != nil {
		return false, err
	}
	ctx = userctx.WithUserID(ctx, user.ID)

	client, err := p.ClientSvc.Create(ctx, clientdomain.CreateClientRequest{
		Name:  "Padaria Bom Dia",
		Email: "contato@padariabomdia.example",
	})
	if err != nil {
		return false, err
	}

	_, err = p.BudgetSvc.CreateBudget(ctx, budgetdomain.CreateBudgetRequest{
		Budget: budgetdomain.BudgetFields{
			ClientID:       client.ID.String(),
			Title:          "Website institucional",
			DiscountAmount: decimal.NewFromInt(50),
		},
		Items: []budgetdomain.ItemInput{
			{Name: "Design das páginas", Unit: string(budgetdomain.UnitHour), Quantity: decimal.NewFromInt(12), UnitPrice: decimal.NewFromInt(90)},
			{Name: "Hospedagem anual", Unit: string(budgetdomain.UnitValue), Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("299.90")},
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
