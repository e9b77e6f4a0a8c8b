package client

import (
	"github.com/smallbiznis/quoteflow/internal/client/repository"
	"github.com/smallbiznis/quoteflow/internal/client/service"
	"go.uber.org/fx"
)

var Module = fx.Module("client.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
