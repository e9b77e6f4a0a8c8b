package profile

import (
	"github.com/smallbiznis/quoteflow/internal/profile/domain"
	"github.com/smallbiznis/quoteflow/internal/profile/service"
	"github.com/smallbiznis/quoteflow/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("profile.service",
	fx.Provide(repository.ProvideStore[domain.Profile]),
	fx.Provide(service.New),
)
