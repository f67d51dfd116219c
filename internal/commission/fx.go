package commission

import (
	"github.com/urbanease/urbanease/internal/commission/repository"
	"github.com/urbanease/urbanease/internal/commission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
