package budget

import (
	"github.com/smallbiznis/quoteflow/internal/budget/render"
	"github.com/smallbiznis/quoteflow/internal/budget/repository"
	"github.com/smallbiznis/quoteflow/internal/budget/service"
	"go.uber.org/fx"
)

var Module = fx.Module("budget.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(render.New),
)
